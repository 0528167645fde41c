// Package dependencies audits a release unit's in-repo dependencies for
// ranges that still resolve to pre-release versions.
package dependencies

import (
	"errors"
	"fmt"
	"sort"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/version"
)

// PendingDependency is one dependency whose minimum version is a pre-release.
type PendingDependency struct {
	// Dependent is the member package declaring the dependency.
	Dependent string
	// Name is the dependency package name.
	Name string
	// Range is the declared range.
	Range string
	// MinVersion is the lowest version the range admits.
	MinVersion string
	// Owner is the unit that releases the dependency.
	Owner monorepo.ReleaseUnit
}

// Report lists the release groups and standalone packages that must be
// released before the audited unit can be.
type Report struct {
	ReleaseGroups []string
	Packages      []string
	Pending       []PendingDependency
}

// IsEmpty returns true if nothing is pending.
func (r Report) IsEmpty() bool {
	return len(r.ReleaseGroups) == 0 && len(r.Packages) == 0
}

// Units returns every pending owner, release groups first.
func (r Report) Units() []monorepo.ReleaseUnit {
	units := make([]monorepo.ReleaseUnit, 0, len(r.ReleaseGroups)+len(r.Packages))
	for _, g := range r.ReleaseGroups {
		units = append(units, monorepo.ReleaseGroup(g))
	}
	for _, p := range r.Packages {
		units = append(units, monorepo.SinglePackage(p))
	}
	return units
}

// GetPreReleaseDependencies audits the combined dependencies of every member
// of unit. Dependencies outside the repository, dependencies on other members
// of the unit, and specifiers that are not version ranges are ignored.
// The report is recomputed from the graph on every call.
func GetPreReleaseDependencies(graph monorepo.PackageReader, unit monorepo.ReleaseUnit) (Report, error) {
	members, err := monorepo.Members(graph, unit)
	if err != nil {
		return Report{}, err
	}

	isMember := make(map[string]bool, len(members))
	for _, m := range members {
		isMember[m.Name] = true
	}

	packages := graph.Packages()
	groups := make(map[string]bool)
	singles := make(map[string]bool)
	var report Report

	for _, m := range members {
		for _, dep := range m.CombinedDependencies() {
			if isMember[dep.Name] {
				continue
			}
			if _, inRepo := packages[dep.Name]; !inRepo {
				continue
			}

			minVersion, err := version.MinVersion(dep.Range)
			if errors.Is(err, version.ErrNotSemverRange) {
				continue
			}
			if err != nil {
				return Report{}, fmt.Errorf("%s: %s: %w", m.Name, dep.Name, err)
			}
			if minVersion.Prerelease() == "" {
				continue
			}

			owner, _ := monorepo.OwnerOf(graph, dep.Name)
			if owner.IsReleaseGroup() {
				groups[owner.Name()] = true
			} else {
				singles[owner.Name()] = true
			}
			report.Pending = append(report.Pending, PendingDependency{
				Dependent:  m.Name,
				Name:       dep.Name,
				Range:      dep.Range,
				MinVersion: minVersion.String(),
				Owner:      owner,
			})
		}
	}

	report.ReleaseGroups = sortedKeys(groups)
	report.Packages = sortedKeys(singles)
	return report, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
