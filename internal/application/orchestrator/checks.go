package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	rf "github.com/relicta-tech/relmono/internal/domain/releaseflow"
	"github.com/relicta-tech/relmono/internal/domain/sourcecontrol"
)

// BranchRule returns the branch a workflow must run on.
type BranchRule func(ctx context.Context, s *Session) (string, error)

// ChecksLayer handles the states every workflow shares: the check gates,
// and the commit gates that create a branch for the changes.
func ChecksLayer(rule BranchRule) Layer {
	return Layer{
		Name: "checks",
		Handlers: map[rf.State]Handler{
			rf.StateInit:                   handleInit,
			rf.StateCheckShouldRunChecks:   handleShouldRunChecks,
			rf.StateCheckValidReleaseGroup: handleValidReleaseGroup,
			rf.StateCheckPolicy:            handlePolicy,
			rf.StateCheckBranchName:        branchNameHandler(rule),
			rf.StateCheckHasRemote:         handleHasRemote,
			rf.StateCheckBranchUpToDate:    handleBranchUpToDate,
			rf.StateCheckShouldCommitBump:  handleShouldCommitBump,
			rf.StateCheckShouldCommitDeps:  handleShouldCommitDeps,
		},
	}
}

func handleInit(_ context.Context, s *Session) (Outcome, error) {
	s.Logger.Info("releasing", "unit", s.Unit(), "kind", s.Unit().Kind(), "bump", s.Config.BumpType)
	return Success(), nil
}

func handleShouldRunChecks(_ context.Context, s *Session) (Outcome, error) {
	if !s.Config.ShouldRunChecks() {
		s.Logger.Warn("skipping all checks")
		return Failure(), nil
	}
	return Success(), nil
}

func handleValidReleaseGroup(_ context.Context, s *Session) (Outcome, error) {
	if _, err := monorepo.Members(s.Graph(), s.Unit()); err != nil {
		s.Logger.Error("invalid release unit", "unit", s.Unit(), "err", err)
		return Failure(), nil
	}
	if _, err := monorepo.UnitVersion(s.Graph(), s.Unit()); err != nil {
		s.Logger.Error("release unit has no single version", "unit", s.Unit(), "err", err)
		return Failure(), nil
	}
	return Success(), nil
}

func handlePolicy(ctx context.Context, s *Session) (Outcome, error) {
	if !s.Config.ShouldCheckPolicy() {
		s.Logger.Warn("policy check skipped")
		return Success(), nil
	}
	ok, err := s.Predicates.Policy(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("running policy check: %w", err)
	}
	if !ok {
		s.Logger.Error("policy check failed; fix the reported issues and try again")
	}
	return Verdict(ok), nil
}

func branchNameHandler(rule BranchRule) Handler {
	return func(ctx context.Context, s *Session) (Outcome, error) {
		if !s.Config.ShouldCheckBranch() {
			s.Logger.Warn("branch name check skipped")
			return Success(), nil
		}
		want, err := rule(ctx, s)
		if err != nil {
			return Outcome{}, err
		}
		got, err := s.Git.CurrentBranchName(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if got != want {
			s.Logger.Error("wrong branch", "current", got, "expected", want)
			return Failure(), nil
		}
		return Success(), nil
	}
}

func handleHasRemote(ctx context.Context, s *Session) (Outcome, error) {
	if !s.Config.ShouldCheckBranch() {
		s.Logger.Warn("remote check skipped")
		return Success(), nil
	}
	remote, err := s.Git.Remote(ctx, s.Config.Upstream)
	if errors.Is(err, sourcecontrol.ErrRemoteNotFound) {
		s.Logger.Error("no remote points at the upstream repository", "upstream", s.Config.Upstream)
		return Failure(), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	s.Remote = remote
	return Success(), nil
}

func handleBranchUpToDate(ctx context.Context, s *Session) (Outcome, error) {
	if !s.Config.ShouldCheckBranch() {
		s.Logger.Warn("branch freshness check skipped")
		return Success(), nil
	}
	branch, err := s.Git.CurrentBranchName(ctx)
	if err != nil {
		return Outcome{}, err
	}
	ok, err := s.Git.IsBranchUpToDate(ctx, branch, s.Remote)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		s.Logger.Error("branch is behind its remote; pull and try again", "branch", branch, "remote", s.Remote)
	}
	return Verdict(ok), nil
}

// handleShouldCommitBump names the branch after the version the bump wrote,
// so a --versionScheme override is reflected in it.
func handleShouldCommitBump(ctx context.Context, s *Session) (Outcome, error) {
	if !s.Config.ShouldCommit() {
		return Failure(), nil
	}
	var branch string
	if s.Bump != nil {
		branch = s.Namer.BumpBranchNameTo(s.Unit(), s.Config.BumpType, s.Bump.To)
	} else {
		var err error
		if branch, err = s.Namer.BumpBranchName(s.Unit(), s.Config.BumpType, s.StartVersion); err != nil {
			return Outcome{}, err
		}
	}
	message := fmt.Sprintf("[bump] %s: %s => %s (%s)", s.Unit(), s.StartVersion, bumpedVersion(s), s.Config.BumpType)
	return commitToBranch(ctx, s, branch, message, "error committing version bump")
}

func handleShouldCommitDeps(ctx context.Context, s *Session) (Outcome, error) {
	if !s.Config.ShouldCommit() {
		return Failure(), nil
	}
	current, err := monorepo.UnitVersion(s.Graph(), s.Unit())
	if err != nil {
		return Outcome{}, err
	}
	branch := s.Namer.DepsBranchName(s.Unit(), current)
	message := fmt.Sprintf("Bump dependencies of %s to released versions", s.Unit())
	return commitToBranch(ctx, s, branch, message, "error committing dependency bumps")
}

func commitToBranch(ctx context.Context, s *Session, branch, message, errorContext string) (Outcome, error) {
	if err := s.Git.CreateBranch(ctx, branch); err != nil {
		return Outcome{}, fmt.Errorf("creating branch %s: %w", branch, err)
	}
	hash, err := s.Git.Commit(ctx, message, errorContext)
	if err != nil {
		return Outcome{}, err
	}
	s.Branch = branch
	s.Logger.Info("committed changes", "branch", branch, "commit", hash.Short())
	return Success(), nil
}

func bumpedVersion(s *Session) string {
	if s.Bump == nil {
		return s.StartVersion
	}
	return s.Bump.To
}
