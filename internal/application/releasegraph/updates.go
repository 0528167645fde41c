package releasegraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/version"
)

// maxConcurrentLookups bounds parallel registry requests.
const maxConcurrentLookups = 8

// ErrNoRegistry indicates NpmCheckUpdates was called without a registry.
var ErrNoRegistry = errors.New("no package registry configured")

// CheckUpdatesOptions configures NpmCheckUpdates.
type CheckUpdatesOptions struct {
	// Unit selects the packages whose dependencies are checked.
	Unit monorepo.ReleaseUnit
	// Include holds doublestar patterns matched against dependency names.
	// Empty means every dependency.
	Include []string
	// Prerelease allows pre-release versions to be selected.
	Prerelease bool
	// Write rewrites manifests in place.
	Write bool
}

// CheckUpdatesResult lists the newer versions found.
type CheckUpdatesResult struct {
	// UpdatedPackages names the packages whose manifests changed, or would
	// change when Write is false.
	UpdatedPackages []string
	Updates         []RangeChange
	Skipped         []SkippedRange
}

// NpmCheckUpdates queries the registry for newer versions of the dependencies
// of unit's members and, when opts.Write is set, rewrites their ranges. A
// failed write restores the ranges already rewritten.
func (o *Ops) NpmCheckUpdates(ctx context.Context, opts CheckUpdatesOptions) (*CheckUpdatesResult, error) {
	if !opts.Write {
		return o.checkUpdates(ctx, opts)
	}
	o.graph.Checkpoint()
	result, err := o.checkUpdates(ctx, opts)
	if err != nil {
		return nil, o.rollback(ctx, err)
	}
	return result, nil
}

func (o *Ops) checkUpdates(ctx context.Context, opts CheckUpdatesOptions) (*CheckUpdatesResult, error) {
	if o.registry == nil {
		return nil, ErrNoRegistry
	}
	members, err := monorepo.Members(o.graph, opts.Unit)
	if err != nil {
		return nil, err
	}

	names, err := dependencyNames(members, opts.Include)
	if err != nil {
		return nil, err
	}

	latest, err := o.lookupLatest(ctx, names, opts.Prerelease)
	if err != nil {
		return nil, err
	}

	result := &CheckUpdatesResult{}
	updated := make(map[string]bool)
	for _, pkg := range members {
		done := make(map[string]bool)
		for _, dep := range pkg.CombinedDependencies() {
			candidate, ok := latest[dep.Name]
			if !ok || done[dep.Name] {
				continue
			}
			done[dep.Name] = true

			current, err := version.MinVersion(dep.Range)
			if errors.Is(err, version.ErrNotSemverRange) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", pkg.Name, dep.Name, err)
			}
			if !candidate.GreaterThan(current) {
				continue
			}

			rng, err := version.RewriteRange(dep.Range, candidate.String())
			if errors.Is(err, version.ErrUnsupportedRangeStyle) {
				result.Skipped = append(result.Skipped, SkippedRange{
					Package:    pkg.Name,
					Dependency: dep.Name,
					Range:      dep.Range,
					Reason:     fmt.Sprintf("%s is available but the range is not a single comparator", candidate),
				})
				continue
			}
			if err != nil {
				return nil, err
			}

			if opts.Write {
				if err := o.graph.WriteDependencyRange(ctx, pkg.Name, dep.Name, rng); err != nil {
					return nil, fmt.Errorf("writing %s range in %s: %w", dep.Name, pkg.Name, err)
				}
			}
			result.Updates = append(result.Updates, RangeChange{Package: pkg.Name, Dependency: dep.Name, From: dep.Range, To: rng})
			updated[pkg.Name] = true
		}
	}

	for name := range updated {
		result.UpdatedPackages = append(result.UpdatedPackages, name)
	}
	sort.Strings(result.UpdatedPackages)
	return result, nil
}

func dependencyNames(members []*monorepo.Package, include []string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, pkg := range members {
		for _, dep := range pkg.CombinedDependencies() {
			if seen[dep.Name] {
				continue
			}
			seen[dep.Name] = true
			ok, err := matchesAny(include, dep.Name)
			if err != nil {
				return nil, err
			}
			if ok {
				names = append(names, dep.Name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func matchesAny(patterns []string, name string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, p := range patterns {
		ok, err := doublestar.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid dependency pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// lookupLatest returns the highest published version of each name.
// Names with no eligible version are omitted.
func (o *Ops) lookupLatest(ctx context.Context, names []string, prerelease bool) (map[string]*semver.Version, error) {
	var mu sync.Mutex
	latest := make(map[string]*semver.Version, len(names))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for _, name := range names {
		g.Go(func() error {
			published, err := o.registry.Versions(gCtx, name)
			if errors.Is(err, monorepo.ErrNotPublished) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("looking up %s: %w", name, err)
			}
			if best := highest(published, prerelease); best != nil {
				mu.Lock()
				latest[name] = best
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return latest, nil
}

func highest(published []string, prerelease bool) *semver.Version {
	var best *semver.Version
	for _, p := range published {
		v, err := semver.StrictNewVersion(p)
		if err != nil {
			continue
		}
		if v.Prerelease() != "" && !prerelease {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	return best
}
