package monorepo

import (
	"context"
	"fmt"
	"sort"
)

// PackageReader provides read access to the packages of a monorepo.
type PackageReader interface {
	// Packages returns the full name to package map.
	Packages() map[string]*Package
	// ReleaseGroups returns the names of all release groups.
	ReleaseGroups() []string
}

// ManifestWriter rewrites package manifests in place.
type ManifestWriter interface {
	// WriteVersion sets the version field of a package manifest.
	WriteVersion(ctx context.Context, pkgName, version string) error
	// WriteDependencyRange sets the range of an existing dependency in any section of a manifest.
	WriteDependencyRange(ctx context.Context, pkgName, dependency, rng string) error
	// Checkpoint marks the current manifests as the state Rollback restores.
	Checkpoint()
	// Rollback undoes every write made since the last Checkpoint, on disk
	// and in memory. Without a Checkpoint it does nothing.
	Rollback(ctx context.Context) error
}

// PackageGraph is the queryable model of the monorepo.
// Implemented in the infrastructure layer.
type PackageGraph interface {
	PackageReader
	ManifestWriter
	// Reload re-reads every manifest, discarding in-memory state.
	Reload(ctx context.Context) error
}

// PackagesInReleaseGroup returns the members of a release group sorted by name.
func PackagesInReleaseGroup(r PackageReader, group string) []*Package {
	return collect(r, func(p *Package) bool { return p.ReleaseGroup == group })
}

// PackagesNotInReleaseGroup returns every package outside a release group sorted by name.
func PackagesNotInReleaseGroup(r PackageReader, group string) []*Package {
	return collect(r, func(p *Package) bool { return p.ReleaseGroup != group })
}

// Dependents returns the packages that declare a dependency on name, sorted by name.
func Dependents(r PackageReader, name string) []*Package {
	return collect(r, func(p *Package) bool { return p.DependsOn(name) })
}

// HasReleaseGroup returns true if the graph knows the release group.
func HasReleaseGroup(r PackageReader, group string) bool {
	for _, g := range r.ReleaseGroups() {
		if g == group {
			return true
		}
	}
	return false
}

// Members resolves a unit to the packages it versions.
func Members(r PackageReader, unit ReleaseUnit) ([]*Package, error) {
	switch unit.Kind() {
	case UnitReleaseGroup:
		if !HasReleaseGroup(r, unit.Name()) {
			return nil, fmt.Errorf("%w: release group %q", ErrUnknownUnit, unit.Name())
		}
		members := PackagesInReleaseGroup(r, unit.Name())
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: release group %q has no packages", ErrUnknownUnit, unit.Name())
		}
		return members, nil
	case UnitPackage:
		pkg, ok := r.Packages()[unit.Name()]
		if !ok {
			return nil, fmt.Errorf("%w: package %q", ErrUnknownUnit, unit.Name())
		}
		if pkg.InReleaseGroup() {
			return nil, fmt.Errorf("%w: %s belongs to %s", ErrPackageInReleaseGroup, pkg.Name, pkg.ReleaseGroup)
		}
		return []*Package{pkg}, nil
	default:
		return nil, ErrNoUnit
	}
}

// UnitVersion returns the version shared by the members of a unit.
func UnitVersion(r PackageReader, unit ReleaseUnit) (string, error) {
	members, err := Members(r, unit)
	if err != nil {
		return "", err
	}
	v := members[0].Version
	for _, m := range members[1:] {
		if m.Version != v {
			return "", fmt.Errorf("%w: %s is %s, %s is %s", ErrInconsistentVersion, members[0].Name, v, m.Name, m.Version)
		}
	}
	return v, nil
}

// OwnerOf returns the unit that versions the named package.
func OwnerOf(r PackageReader, pkgName string) (ReleaseUnit, bool) {
	pkg, ok := r.Packages()[pkgName]
	if !ok {
		return ReleaseUnit{}, false
	}
	if pkg.InReleaseGroup() {
		return ReleaseGroup(pkg.ReleaseGroup), true
	}
	return SinglePackage(pkg.Name), true
}

func collect(r PackageReader, keep func(*Package) bool) []*Package {
	var out []*Package
	for _, p := range r.Packages() {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
