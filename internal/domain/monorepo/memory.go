package monorepo

import (
	"context"
	"fmt"
	"sort"
)

// Ensure MemoryGraph implements PackageGraph.
var _ PackageGraph = (*MemoryGraph)(nil)

// MemoryGraph is a PackageGraph held entirely in memory. Writes change only
// the in-memory packages, which makes it the backing store for dry runs.
type MemoryGraph struct {
	packages map[string]*Package
	groups   []string
	saved    map[string]*Package
}

// NewMemoryGraph creates a graph over copies of the given packages.
// Release groups are derived from the packages' ReleaseGroup fields.
func NewMemoryGraph(pkgs ...*Package) *MemoryGraph {
	g := &MemoryGraph{packages: make(map[string]*Package, len(pkgs))}
	seen := make(map[string]bool)
	for _, p := range pkgs {
		g.packages[p.Name] = p.Clone()
		if p.ReleaseGroup != "" && !seen[p.ReleaseGroup] {
			seen[p.ReleaseGroup] = true
			g.groups = append(g.groups, p.ReleaseGroup)
		}
	}
	sort.Strings(g.groups)
	return g
}

// Packages returns the full name to package map.
func (g *MemoryGraph) Packages() map[string]*Package {
	return g.packages
}

// ReleaseGroups returns the release group names.
func (g *MemoryGraph) ReleaseGroups() []string {
	return g.groups
}

// WriteVersion sets a package version.
func (g *MemoryGraph) WriteVersion(_ context.Context, pkgName, version string) error {
	pkg, ok := g.packages[pkgName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPackageNotFound, pkgName)
	}
	pkg.Version = version
	return nil
}

// WriteDependencyRange sets the range of an existing dependency.
func (g *MemoryGraph) WriteDependencyRange(_ context.Context, pkgName, dependency, rng string) error {
	pkg, ok := g.packages[pkgName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPackageNotFound, pkgName)
	}
	found := false
	if _, ok := pkg.Dependencies[dependency]; ok {
		pkg.Dependencies[dependency] = rng
		found = true
	}
	if _, ok := pkg.DevDependencies[dependency]; ok {
		pkg.DevDependencies[dependency] = rng
		found = true
	}
	if !found {
		return fmt.Errorf("%w: %s in %s", ErrDependencyNotFound, dependency, pkgName)
	}
	return nil
}

// Checkpoint snapshots every package.
func (g *MemoryGraph) Checkpoint() {
	g.saved = cloneAll(g.packages)
}

// Rollback restores the packages captured by Checkpoint.
func (g *MemoryGraph) Rollback(context.Context) error {
	if g.saved == nil {
		return nil
	}
	g.packages = g.saved
	g.saved = nil
	return nil
}

func cloneAll(pkgs map[string]*Package) map[string]*Package {
	out := make(map[string]*Package, len(pkgs))
	for name, p := range pkgs {
		out[name] = p.Clone()
	}
	return out
}

// Reload is a no-op; memory is the source of truth.
func (g *MemoryGraph) Reload(context.Context) error {
	return nil
}
