// Package releasegraph applies version changes across the monorepo's
// package graph and answers release status queries.
package releasegraph

import (
	"context"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/sourcecontrol"
)

// Registry looks up the published versions of a package.
type Registry interface {
	// Versions returns every published version of a package.
	Versions(ctx context.Context, name string) ([]string, error)
}

// Ops groups the graph operations the release workflows invoke.
type Ops struct {
	graph    monorepo.PackageGraph
	git      sourcecontrol.GitRepo
	registry Registry
}

// New creates Ops over a package graph. git is required for IsReleased and
// registry for NpmCheckUpdates; either may be nil when unused.
func New(graph monorepo.PackageGraph, git sourcecontrol.GitRepo, registry Registry) *Ops {
	return &Ops{graph: graph, git: git, registry: registry}
}

// Graph returns the package graph the operations act on.
func (o *Ops) Graph() monorepo.PackageGraph {
	return o.graph
}

// VersionChange records a rewritten manifest version.
type VersionChange struct {
	Package string
	From    string
	To      string
}

// RangeChange records a rewritten dependency range.
type RangeChange struct {
	Package    string
	Dependency string
	From       string
	To         string
}

// SkippedRange records a dependency range that could not be rewritten.
type SkippedRange struct {
	Package    string
	Dependency string
	Range      string
	Reason     string
}
