package orchestrator

import (
	"context"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/version"
)

// Config is the resolved input of one workflow run. Each Should* method
// combines its flag with SkipChecks.
type Config struct {
	Unit     monorepo.ReleaseUnit
	BumpType version.BumpType
	// Scheme overrides the version scheme detected from the current version.
	Scheme version.Scheme

	SkipChecks   bool
	PolicyCheck  bool
	BranchCheck  bool
	Commit       bool
	UpdateCheck  bool
	InstallCheck bool

	// Upstream is a partial URL identifying the upstream remote.
	Upstream string
	// DefaultBranch is the branch prep runs start from.
	DefaultBranch string
}

// ShouldRunChecks returns false when every check is skipped.
func (c Config) ShouldRunChecks() bool { return !c.SkipChecks }

// ShouldCheckPolicy reports whether CheckPolicy runs its predicate.
func (c Config) ShouldCheckPolicy() bool { return c.PolicyCheck && !c.SkipChecks }

// ShouldCheckBranch reports whether the branch, remote and freshness checks run.
func (c Config) ShouldCheckBranch() bool { return c.BranchCheck && !c.SkipChecks }

// ShouldCommit reports whether changes are committed to a new branch.
func (c Config) ShouldCommit() bool { return c.Commit && !c.SkipChecks }

// ShouldCheckUpdates reports whether released dependencies are resolved through the registry.
func (c Config) ShouldCheckUpdates() bool { return c.UpdateCheck && !c.SkipChecks }

// ShouldInstall reports whether CheckInstallBuildTools runs its predicate.
func (c Config) ShouldInstall() bool { return c.InstallCheck && !c.SkipChecks }

// Predicate is an external check. It returns false, nil when the check ran and failed.
type Predicate func(ctx context.Context) (bool, error)

// Predicates holds the external checks a workflow runs.
type Predicates struct {
	Policy       Predicate
	InstallTools Predicate
}

// Pass is a Predicate that always succeeds.
func Pass(context.Context) (bool, error) { return true, nil }
