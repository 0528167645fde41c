package orchestrator

import (
	"github.com/relicta-tech/relmono/internal/application/dependencies"
	"github.com/relicta-tech/relmono/internal/application/releasegraph"
	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/release"
	"github.com/relicta-tech/relmono/internal/domain/sourcecontrol"
)

// Session is the state shared by the handlers of one run.
type Session struct {
	Config     Config
	Ops        *releasegraph.Ops
	Git        sourcecontrol.GitRepo
	Namer      *release.BranchNamer
	Predicates Predicates
	Logger     Logger

	// Remote is the upstream remote name found by CheckHasRemote.
	Remote string
	// Branch is the branch created for a commit.
	Branch string
	// StartVersion is the unit version before any bump.
	StartVersion string
	Report       dependencies.Report
	DepsBump     *releasegraph.DependencyBumpResult
	Bump         *releasegraph.BumpResult
}

// NewSession creates a session. A nil logger discards output and a nil namer
// uses the default branch aliases.
func NewSession(cfg Config, ops *releasegraph.Ops, git sourcecontrol.GitRepo, namer *release.BranchNamer, predicates Predicates, logger Logger) *Session {
	if logger == nil {
		logger = NopLogger()
	}
	if namer == nil {
		namer = release.NewBranchNamer(nil)
	}
	if predicates.Policy == nil {
		predicates.Policy = Pass
	}
	if predicates.InstallTools == nil {
		predicates.InstallTools = Pass
	}
	return &Session{
		Config:     cfg,
		Ops:        ops,
		Git:        git,
		Namer:      namer,
		Predicates: predicates,
		Logger:     logger,
	}
}

// Graph returns the package graph.
func (s *Session) Graph() monorepo.PackageGraph {
	return s.Ops.Graph()
}

// Unit returns the release unit of the run.
func (s *Session) Unit() monorepo.ReleaseUnit {
	return s.Config.Unit
}
