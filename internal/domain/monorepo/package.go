// Package monorepo provides the domain model for querying a monorepo's packages
// and release groups.
package monorepo

import (
	"maps"
	"sort"
	"strings"
)

// DependencyKind names a dependency section of a package manifest.
type DependencyKind string

const (
	// DependencyRegular is the "dependencies" section.
	DependencyRegular DependencyKind = "dependencies"
	// DependencyDev is the "devDependencies" section.
	DependencyDev DependencyKind = "devDependencies"
)

// Dependency is one entry of a package manifest.
type Dependency struct {
	Name  string
	Range string
	Kind  DependencyKind
}

// Package is a package in the monorepo as described by its manifest.
type Package struct {
	// Name is the full package name, e.g. "@fluidframework/container-loader".
	Name string
	// Version is the manifest version.
	Version string
	// Directory is the package directory relative to the repository root.
	Directory string
	// ReleaseGroup is the release group that versions this package, or "" when independent.
	ReleaseGroup string
	// Private packages are never published.
	Private bool
	// Dependencies maps dependency names to ranges.
	Dependencies map[string]string
	// DevDependencies maps dev dependency names to ranges.
	DevDependencies map[string]string
}

// InReleaseGroup returns true if the package is versioned by a release group.
func (p *Package) InReleaseGroup() bool {
	return p.ReleaseGroup != ""
}

// ShortName returns the package name without its npm scope.
func (p *Package) ShortName() string {
	if i := strings.LastIndex(p.Name, "/"); i >= 0 && strings.HasPrefix(p.Name, "@") {
		return p.Name[i+1:]
	}
	return p.Name
}

// CombinedDependencies returns regular and dev dependencies, each section sorted by name.
func (p *Package) CombinedDependencies() []Dependency {
	deps := make([]Dependency, 0, len(p.Dependencies)+len(p.DevDependencies))
	deps = appendSorted(deps, p.Dependencies, DependencyRegular)
	deps = appendSorted(deps, p.DevDependencies, DependencyDev)
	return deps
}

// DependsOn returns true if any section declares the named dependency.
func (p *Package) DependsOn(name string) bool {
	_, inDeps := p.Dependencies[name]
	_, inDev := p.DevDependencies[name]
	return inDeps || inDev
}

// Clone returns a deep copy of the package.
func (p *Package) Clone() *Package {
	c := *p
	c.Dependencies = maps.Clone(p.Dependencies)
	c.DevDependencies = maps.Clone(p.DevDependencies)
	return &c
}

func appendSorted(deps []Dependency, section map[string]string, kind DependencyKind) []Dependency {
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		deps = append(deps, Dependency{Name: name, Range: section[name], Kind: kind})
	}
	return deps
}
