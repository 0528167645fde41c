package releasegraph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/version"
)

// BumpResult lists the manifests rewritten by a bump.
type BumpResult struct {
	Unit     monorepo.ReleaseUnit
	Scheme   version.Scheme
	From     string
	To       string
	Versions []VersionChange
	Ranges   []RangeChange
	Skipped  []SkippedRange
}

// BumpReleaseGroup moves every member of unit to the next version and points
// every in-repo dependency on a member at it. An empty scheme is detected
// from the current version. On failure every manifest already written is
// restored, so no partial bump stays visible.
func (o *Ops) BumpReleaseGroup(ctx context.Context, bump version.BumpType, unit monorepo.ReleaseUnit, scheme version.Scheme) (*BumpResult, error) {
	members, err := monorepo.Members(o.graph, unit)
	if err != nil {
		return nil, err
	}
	current, err := monorepo.UnitVersion(o.graph, unit)
	if err != nil {
		return nil, err
	}
	if scheme == "" {
		if scheme, err = version.DetectScheme(current); err != nil {
			return nil, err
		}
	}
	next, err := version.Bump(current, bump, scheme)
	if err != nil {
		return nil, err
	}

	result := &BumpResult{
		Unit:   unit,
		Scheme: scheme,
		From:   current,
		To:     next.String(),
	}

	o.graph.Checkpoint()
	names := make([]string, 0, len(members))
	for _, m := range members {
		if err := o.graph.WriteVersion(ctx, m.Name, result.To); err != nil {
			return nil, o.rollback(ctx, fmt.Errorf("writing version of %s: %w", m.Name, err))
		}
		result.Versions = append(result.Versions, VersionChange{Package: m.Name, From: current, To: result.To})
		names = append(names, m.Name)
	}

	ranges, skipped, err := o.SetDependencyRange(ctx, allPackages(o.graph), names, result.To)
	if err != nil {
		return nil, o.rollback(ctx, err)
	}
	result.Ranges = ranges
	result.Skipped = skipped
	return result, nil
}

// SetDependencyRange rewrites, within dependents, every range on one of deps
// so that it points at ver, keeping the operator and workspace protocol of
// the existing range. Ranges whose style cannot be carried over are skipped.
func (o *Ops) SetDependencyRange(ctx context.Context, dependents []*monorepo.Package, deps []string, ver string) ([]RangeChange, []SkippedRange, error) {
	wanted := make(map[string]bool, len(deps))
	for _, d := range deps {
		wanted[d] = true
	}

	var changes []RangeChange
	var skipped []SkippedRange
	for _, pkg := range dependents {
		done := make(map[string]bool)
		for _, dep := range pkg.CombinedDependencies() {
			if !wanted[dep.Name] || done[dep.Name] {
				continue
			}
			done[dep.Name] = true

			rng, err := version.RewriteRange(dep.Range, ver)
			if errors.Is(err, version.ErrUnsupportedRangeStyle) {
				skipped = append(skipped, SkippedRange{
					Package:    pkg.Name,
					Dependency: dep.Name,
					Range:      dep.Range,
					Reason:     "range is not a single comparator",
				})
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			if rng == dep.Range {
				continue
			}
			if err := o.graph.WriteDependencyRange(ctx, pkg.Name, dep.Name, rng); err != nil {
				return nil, nil, fmt.Errorf("writing %s range in %s: %w", dep.Name, pkg.Name, err)
			}
			changes = append(changes, RangeChange{Package: pkg.Name, Dependency: dep.Name, From: dep.Range, To: rng})
		}
	}
	return changes, skipped, nil
}

func (o *Ops) rollback(ctx context.Context, cause error) error {
	if err := o.graph.Rollback(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("restoring manifests: %w", err))
	}
	return cause
}

func allPackages(r monorepo.PackageReader) []*monorepo.Package {
	pkgs := make([]*monorepo.Package, 0, len(r.Packages()))
	for _, p := range r.Packages() {
		pkgs = append(pkgs, p)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs
}
