package releasegraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/relicta-tech/relmono/internal/application/dependencies"
	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/release"
	"github.com/relicta-tech/relmono/internal/domain/sourcecontrol"
)

// ErrNoGitRepo indicates a release status query without a git repository.
var ErrNoGitRepo = errors.New("no git repository configured")

// IsReleased reports whether the release tag for unit's current version
// exists after fetching tags from the remotes.
func (o *Ops) IsReleased(ctx context.Context, unit monorepo.ReleaseUnit) (bool, error) {
	if o.git == nil {
		return false, ErrNoGitRepo
	}
	current, err := monorepo.UnitVersion(o.graph, unit)
	if err != nil {
		return false, err
	}
	tag, err := release.TagName(unit, current)
	if err != nil {
		return false, err
	}
	if err := o.git.FetchTags(ctx); err != nil {
		return false, fmt.Errorf("fetching tags: %w", err)
	}
	tags, err := o.git.Tags(ctx, tag)
	if err != nil {
		return false, err
	}
	return sourcecontrol.NewTagList(tags).Contains(tag), nil
}

// LatestRelease returns the release tag with the highest version for unit,
// or nil when no release tag exists. Only local tags are read.
func (o *Ops) LatestRelease(ctx context.Context, unit monorepo.ReleaseUnit) (*sourcecontrol.Tag, error) {
	if o.git == nil {
		return nil, ErrNoGitRepo
	}
	prefix, err := release.TagName(unit, "")
	if err != nil {
		return nil, err
	}
	tags, err := o.git.Tags(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}
	return sourcecontrol.NewTagList(tags).ForUnit(strings.TrimSuffix(prefix, "_v")).Latest(), nil
}

// DependencyBumpResult lists what BumpReleasedDependencies changed.
type DependencyBumpResult struct {
	// Released are the pending units that have shipped and were bumped to.
	Released []monorepo.ReleaseUnit
	// Unreleased are the pending units that still need a release.
	Unreleased []monorepo.ReleaseUnit
	Ranges     []RangeChange
	Skipped    []SkippedRange
}

// Changed returns true if any range was rewritten.
func (r *DependencyBumpResult) Changed() bool {
	return len(r.Ranges) > 0
}

// BumpReleasedDependencies points the pending dependencies of unit at the
// released versions of their owners. Owners without a release tag are
// reported as unreleased and left alone. With viaRegistry the new ranges come
// from the registry, otherwise from the owner's in-repo version. A failure
// restores every range already rewritten.
func (o *Ops) BumpReleasedDependencies(ctx context.Context, unit monorepo.ReleaseUnit, report dependencies.Report, viaRegistry bool) (*DependencyBumpResult, error) {
	members, err := monorepo.Members(o.graph, unit)
	if err != nil {
		return nil, err
	}

	o.graph.Checkpoint()
	result, err := o.bumpReleasedDependencies(ctx, unit, members, report, viaRegistry)
	if err != nil {
		return nil, o.rollback(ctx, err)
	}
	return result, nil
}

func (o *Ops) bumpReleasedDependencies(ctx context.Context, unit monorepo.ReleaseUnit, members []*monorepo.Package, report dependencies.Report, viaRegistry bool) (*DependencyBumpResult, error) {

	pendingByOwner := make(map[monorepo.ReleaseUnit][]string)
	for _, p := range report.Pending {
		pendingByOwner[p.Owner] = appendUnique(pendingByOwner[p.Owner], p.Name)
	}

	result := &DependencyBumpResult{}
	for _, owner := range report.Units() {
		released, err := o.IsReleased(ctx, owner)
		if err != nil {
			return nil, err
		}
		if !released {
			result.Unreleased = append(result.Unreleased, owner)
			continue
		}
		result.Released = append(result.Released, owner)

		deps := pendingByOwner[owner]
		if viaRegistry {
			updates, err := o.checkUpdates(ctx, CheckUpdatesOptions{Unit: unit, Include: deps, Write: true})
			if err != nil {
				return nil, err
			}
			result.Ranges = append(result.Ranges, updates.Updates...)
			result.Skipped = append(result.Skipped, updates.Skipped...)
			continue
		}

		ver, err := monorepo.UnitVersion(o.graph, owner)
		if err != nil {
			return nil, err
		}
		ranges, skipped, err := o.SetDependencyRange(ctx, members, deps, ver)
		if err != nil {
			return nil, err
		}
		result.Ranges = append(result.Ranges, ranges...)
		result.Skipped = append(result.Skipped, skipped...)
	}
	return result, nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
