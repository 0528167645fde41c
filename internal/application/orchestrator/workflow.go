package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/relicta-tech/relmono/internal/application/dependencies"
	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	rf "github.com/relicta-tech/relmono/internal/domain/releaseflow"
	"github.com/relicta-tech/relmono/internal/domain/version"
)

// Workflow pairs a machine definition with the layers that handle it.
type Workflow struct {
	Definition *rf.Definition
	Layers     []Layer
}

// NewEngine builds an engine for the workflow.
func (w Workflow) NewEngine(opts ...EngineOption) (*Engine, error) {
	return NewEngine(w.Definition, w.Layers, opts...)
}

// PatchWorkflow releases a patch from the unit's release branch.
func PatchWorkflow() Workflow {
	handlers := dependencyHandlers()
	handlers[rf.StateCheckIfCurrentReleaseGroupIsReleased] = handleIsReleased
	handlers[rf.StateDoReleaseGroupBumpPatch] = bumpHandler(version.BumpPatch)
	handlers[rf.StatePromptToRelease] = promptToRelease
	addBumpPrompts(handlers)

	return Workflow{
		Definition: rf.PatchRelease(),
		Layers: []Layer{
			ChecksLayer(releaseBranchRule),
			{Name: "patch", Handlers: handlers},
		},
	}
}

// PrepWorkflow prepares a major or minor release from the default branch.
func PrepWorkflow() Workflow {
	handlers := dependencyHandlers()
	handlers[rf.StateCheckReleaseBranchDoesNotExist] = handleReleaseBranchDoesNotExist
	handlers[rf.StateCheckInstallBuildTools] = handleInstallBuildTools
	handlers[rf.StateDoReleaseGroupBumpMinor] = bumpHandler("")
	addBumpPrompts(handlers)

	return Workflow{
		Definition: rf.PrepRelease(),
		Layers: []Layer{
			ChecksLayer(defaultBranchRule),
			{Name: "prep", Handlers: handlers},
		},
	}
}

func releaseBranchRule(_ context.Context, s *Session) (string, error) {
	current, err := monorepo.UnitVersion(s.Graph(), s.Unit())
	if err != nil {
		return "", err
	}
	return s.Namer.ReleaseBranchName(s.Unit(), current)
}

func defaultBranchRule(_ context.Context, s *Session) (string, error) {
	if s.Config.DefaultBranch == "" {
		return "main", nil
	}
	return s.Config.DefaultBranch, nil
}

// dependencyHandlers returns the handlers of the pre-release dependency sub-flow.
func dependencyHandlers() map[rf.State]Handler {
	return map[rf.State]Handler{
		rf.StateCheckNoPrereleaseDependencies:     auditHandler(false, true),
		rf.StateDoBumpReleasedDependencies:        handleBumpReleasedDependencies,
		rf.StateCheckNoMorePrereleaseDependencies: auditHandler(false, false),
		rf.StateCheckNoPrereleaseDependencies2:    auditHandler(true, false),
		rf.StatePromptToPRDeps:                    promptToPRDeps,
		rf.StatePromptToCommitDeps:                promptToCommitDeps,
		rf.StatePromptToReleaseDeps:               promptToReleaseDeps,
	}
}

func addBumpPrompts(handlers map[rf.State]Handler) {
	handlers[rf.StatePromptToPRBump] = promptToPRBump
	handlers[rf.StatePromptToCommitBump] = promptToCommitBump
}

// auditHandler recomputes the pre-release dependency report. reload re-reads
// manifests first; verbose lists every pending dependency.
func auditHandler(reload, verbose bool) Handler {
	return func(ctx context.Context, s *Session) (Outcome, error) {
		if reload {
			if err := s.Graph().Reload(ctx); err != nil {
				return Outcome{}, fmt.Errorf("reloading package graph: %w", err)
			}
		}
		report, err := dependencies.GetPreReleaseDependencies(s.Graph(), s.Unit())
		if err != nil {
			return Outcome{}, err
		}
		s.Report = report
		if report.IsEmpty() {
			return Success(), nil
		}
		if verbose {
			for _, p := range report.Pending {
				s.Logger.Warn("pre-release dependency", "package", p.Dependent, "dependency", p.Name, "range", p.Range)
			}
		}
		s.Logger.Info("unit depends on pre-release versions",
			"release_groups", report.ReleaseGroups,
			"packages", report.Packages)
		return Failure(), nil
	}
}

func handleBumpReleasedDependencies(ctx context.Context, s *Session) (Outcome, error) {
	result, err := s.Ops.BumpReleasedDependencies(ctx, s.Unit(), s.Report, s.Config.ShouldCheckUpdates())
	if err != nil {
		return Outcome{}, err
	}
	s.DepsBump = result
	for _, r := range result.Ranges {
		s.Logger.Info("bumped dependency", "package", r.Package, "dependency", r.Dependency, "from", r.From, "to", r.To)
	}
	for _, sk := range result.Skipped {
		s.Logger.Warn("dependency range left unchanged", "package", sk.Package, "dependency", sk.Dependency, "range", sk.Range, "reason", sk.Reason)
	}
	return Verdict(result.Changed()), nil
}

// handleIsReleased succeeds when the release tag of the current version
// exists. Tags are fetched from the remotes first, even with --skipChecks,
// because the answer decides whether a patch bump is allowed at all.
func handleIsReleased(ctx context.Context, s *Session) (Outcome, error) {
	released, err := s.Ops.IsReleased(ctx, s.Unit())
	if err != nil {
		return Outcome{}, err
	}
	return Verdict(released), nil
}

func handleReleaseBranchDoesNotExist(ctx context.Context, s *Session) (Outcome, error) {
	current, err := monorepo.UnitVersion(s.Graph(), s.Unit())
	if err != nil {
		return Outcome{}, err
	}
	branch, err := s.Namer.ReleaseBranchName(s.Unit(), current)
	if err != nil {
		return Outcome{}, err
	}
	exists, err := s.Git.BranchExists(ctx, branch)
	if err != nil {
		return Outcome{}, err
	}
	if exists {
		s.Logger.Error("release branch already exists", "branch", branch)
	}
	return Verdict(!exists), nil
}

func handleInstallBuildTools(ctx context.Context, s *Session) (Outcome, error) {
	if !s.Config.ShouldInstall() {
		s.Logger.Warn("build tools install skipped")
		return Success(), nil
	}
	ok, err := s.Predicates.InstallTools(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("installing build tools: %w", err)
	}
	return Verdict(ok), nil
}

// bumpHandler bumps the unit. An empty fixed bump uses the configured bump
// type, defaulting to minor.
func bumpHandler(fixed version.BumpType) Handler {
	return func(ctx context.Context, s *Session) (Outcome, error) {
		bump := fixed
		if bump == "" {
			bump = s.Config.BumpType
		}
		if bump == "" {
			bump = version.BumpMinor
		}
		s.Config.BumpType = bump
		current, err := monorepo.UnitVersion(s.Graph(), s.Unit())
		if err != nil {
			return Outcome{}, err
		}
		s.StartVersion = current

		result, err := s.Ops.BumpReleaseGroup(ctx, bump, s.Unit(), s.Config.Scheme)
		if err != nil {
			s.Logger.Error("bump failed", "unit", s.Unit(), "err", err)
			return Failure(), nil
		}
		s.Bump = result
		s.Logger.Info("bumped", "unit", s.Unit(), "from", result.From, "to", result.To, "scheme", result.Scheme)
		for _, sk := range result.Skipped {
			s.Logger.Warn("dependency range left unchanged", "package", sk.Package, "dependency", sk.Dependency, "range", sk.Range)
		}
		return Success(), nil
	}
}

func promptToRelease(_ context.Context, s *Session) (Outcome, error) {
	current, err := monorepo.UnitVersion(s.Graph(), s.Unit())
	if err != nil {
		return Outcome{}, err
	}
	return Exit(fmt.Sprintf(
		"%s %s has not been released yet. Queue a release build for it, then run this command again.",
		s.Unit(), current)), nil
}

func promptToPRBump(_ context.Context, s *Session) (Outcome, error) {
	return Exit(fmt.Sprintf(
		"Push branch %s and open a pull request to bump %s to %s.",
		s.Branch, s.Unit(), bumpedVersion(s))), nil
}

func promptToCommitBump(_ context.Context, s *Session) (Outcome, error) {
	return Exit(fmt.Sprintf(
		"%s was bumped to %s. Commit the changes, push them and open a pull request.",
		s.Unit(), bumpedVersion(s))), nil
}

func promptToPRDeps(_ context.Context, s *Session) (Outcome, error) {
	return Exit(fmt.Sprintf(
		"Push branch %s and open a pull request with the dependency bumps. After it merges, run this command again.",
		s.Branch)), nil
}

func promptToCommitDeps(_ context.Context, s *Session) (Outcome, error) {
	return Exit("Dependencies were bumped to released versions. Commit the changes, open a pull request, and run this command again after it merges."), nil
}

func promptToReleaseDeps(_ context.Context, s *Session) (Outcome, error) {
	var names []string
	if s.DepsBump != nil {
		for _, u := range s.DepsBump.Unreleased {
			names = append(names, u.String())
		}
	}
	if len(names) == 0 {
		for _, u := range s.Report.Units() {
			names = append(names, u.String())
		}
	}
	return Exit(fmt.Sprintf(
		"Release these first, then run this command again: %s", strings.Join(names, ", "))), nil
}
