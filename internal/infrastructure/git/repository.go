// Package git implements the source control port with go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/relicta-tech/relmono/internal/domain/sourcecontrol"
	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

// Default timeouts for git operations to prevent hangs on slow/unreachable remotes.
const (
	// DefaultLocalTimeout is the timeout for local git operations.
	DefaultLocalTimeout = 30 * time.Second

	// DefaultRemoteTimeout is the timeout for remote git operations (network calls).
	DefaultRemoteTimeout = 60 * time.Second
)

// withLocalTimeout applies a timeout for local git operations.
func withLocalTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	// Don't override if context already has a shorter deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultLocalTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultLocalTimeout)
}

// withRemoteTimeout applies a timeout for remote git operations.
func withRemoteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultRemoteTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultRemoteTimeout)
}

// Config holds repository options.
type Config struct {
	// RepoPath is a path inside the repository.
	RepoPath string
	// AuthToken authenticates HTTPS fetches.
	AuthToken string
	// AuthUsername pairs with AuthToken. Defaults to "git".
	AuthUsername string
	// Author signs commits. When empty, go-git reads user.name and user.email from git config.
	Author sourcecontrol.Author
}

// DefaultConfig returns the default repository options.
func DefaultConfig() Config {
	return Config{RepoPath: "."}
}

// Option configures a Repository.
type Option func(*Config)

// WithRepoPath sets the repository path.
func WithRepoPath(path string) Option {
	return func(c *Config) { c.RepoPath = path }
}

// WithAuthToken sets the token used for HTTPS remotes.
func WithAuthToken(token string) Option {
	return func(c *Config) { c.AuthToken = token }
}

// WithAuthUsername sets the username paired with the auth token.
func WithAuthUsername(username string) Option {
	return func(c *Config) { c.AuthUsername = username }
}

// WithAuthor sets the commit signature.
func WithAuthor(name, email string) Option {
	return func(c *Config) { c.Author = sourcecontrol.Author{Name: name, Email: email} }
}

// Ensure Repository implements GitRepo.
var _ sourcecontrol.GitRepo = (*Repository)(nil)

// Repository is the go-git implementation of sourcecontrol.GitRepo.
type Repository struct {
	cfg      Config
	repo     *git.Repository
	worktree *git.Worktree
	auth     transport.AuthMethod
}

// Open opens the repository containing cfg.RepoPath.
func Open(opts ...Option) (*Repository, error) {
	const op = "git.Open"

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	absPath, err := filepath.Abs(cfg.RepoPath)
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get absolute path")
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, rperrors.GitWrap(sourcecontrol.ErrNotARepository, op, absPath)
	}
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to open repository")
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get worktree")
	}

	r := &Repository{cfg: cfg, repo: repo, worktree: worktree}
	if cfg.AuthToken != "" {
		username := cfg.AuthUsername
		if username == "" {
			username = "git"
		}
		r.auth = &githttp.BasicAuth{Username: username, Password: cfg.AuthToken}
	}
	return r, nil
}

// Root returns the worktree root directory.
func (r *Repository) Root() string {
	return r.worktree.Filesystem.Root()
}

// CurrentBranchName returns the short name of the checked out branch.
func (r *Repository) CurrentBranchName(_ context.Context) (string, error) {
	const op = "git.CurrentBranchName"

	head, err := r.repo.Head()
	if err != nil {
		return "", rperrors.GitWrap(err, op, "failed to get HEAD")
	}
	if !head.Name().IsBranch() {
		return "", rperrors.GitWrap(sourcecontrol.ErrDetachedHead, op, head.Hash().String())
	}
	return head.Name().Short(), nil
}

// ShaForBranch returns the commit a local branch points to.
func (r *Repository) ShaForBranch(_ context.Context, branch string) (sourcecontrol.CommitHash, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", fmt.Errorf("%w: %s", sourcecontrol.ErrBranchNotFound, branch)
	}
	if err != nil {
		return "", rperrors.GitWrap(err, "git.ShaForBranch", branch)
	}
	return sourcecontrol.CommitHash(ref.Hash().String()), nil
}

// BranchExists returns true if a local branch or a remote-tracking branch of
// any remote has the name.
func (r *Repository) BranchExists(ctx context.Context, branch string) (bool, error) {
	const op = "git.BranchExists"

	iter, err := r.repo.References()
	if err != nil {
		return false, rperrors.GitWrap(err, op, "failed to list references")
	}
	defer iter.Close()

	found := false
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := ref.Name()
		switch {
		case name.IsBranch():
			found = name.Short() == branch
		case name.IsRemote():
			// refs/remotes/{remote}/{branch}
			_, rest, ok := strings.Cut(strings.TrimPrefix(name.String(), "refs/remotes/"), "/")
			found = ok && rest == branch
		}
		if found {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return false, rperrors.GitWrap(err, op, "failed to iterate references")
	}
	return found, nil
}

// errStopIteration is a sentinel used to end reference iteration early.
var errStopIteration = errors.New("stop iteration")

// Remote returns the first remote, by name, whose URL contains partialURL.
func (r *Repository) Remote(_ context.Context, partialURL string) (string, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return "", rperrors.GitWrap(err, "git.Remote", "failed to list remotes")
	}
	sort.Slice(remotes, func(i, j int) bool {
		return remotes[i].Config().Name < remotes[j].Config().Name
	})
	for _, remote := range remotes {
		for _, url := range remote.Config().URLs {
			if strings.Contains(url, partialURL) {
				return remote.Config().Name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", sourcecontrol.ErrRemoteNotFound, partialURL)
}

// IsBranchUpToDate fetches branch from remote and reports whether the local
// branch contains the fetched head.
func (r *Repository) IsBranchUpToDate(ctx context.Context, branch, remote string) (bool, error) {
	const op = "git.IsBranchUpToDate"

	remoteRef := plumbing.NewRemoteReferenceName(remote, branch)
	spec := config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(branch), remoteRef))
	if err := r.fetch(ctx, remote, []config.RefSpec{spec}, git.NoTags); err != nil {
		return false, rperrors.GitWrap(err, op, "failed to fetch "+remote)
	}

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return false, err
	}

	local, err := r.ShaForBranch(ctx, branch)
	if err != nil {
		return false, err
	}
	ref, err := r.repo.Reference(remoteRef, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, fmt.Errorf("%w: %s/%s", sourcecontrol.ErrBranchNotFound, remote, branch)
	}
	if err != nil {
		return false, rperrors.GitWrap(err, op, remoteRef.String())
	}
	if ref.Hash().String() == local.String() {
		return true, nil
	}

	localCommit, err := r.repo.CommitObject(plumbing.NewHash(local.String()))
	if err != nil {
		return false, rperrors.GitWrap(err, op, "failed to read "+branch)
	}
	remoteCommit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return false, rperrors.GitWrap(err, op, "failed to read "+remoteRef.String())
	}
	ok, err := remoteCommit.IsAncestor(localCommit)
	if err != nil {
		return false, rperrors.GitWrap(err, op, "failed to compare branches")
	}
	return ok, nil
}

// FetchTags fetches every tag from every remote.
func (r *Repository) FetchTags(ctx context.Context) error {
	const op = "git.FetchTags"

	remotes, err := r.repo.Remotes()
	if err != nil {
		return rperrors.GitWrap(err, op, "failed to list remotes")
	}
	spec := config.RefSpec("+refs/tags/*:refs/tags/*")
	for _, remote := range remotes {
		name := remote.Config().Name
		if err := r.fetch(ctx, name, []config.RefSpec{spec}, git.AllTags); err != nil {
			return rperrors.GitWrap(fmt.Errorf("%w: %w", sourcecontrol.ErrFetchFailed, err), op, name)
		}
	}
	return nil
}

func (r *Repository) fetch(ctx context.Context, remote string, specs []config.RefSpec, tags git.TagMode) error {
	ctx, cancel := withRemoteTimeout(ctx)
	defer cancel()

	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   specs,
		Tags:       tags,
		Auth:       r.auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// Tags returns the tag names matching a glob pattern, or every tag when pattern is empty.
func (r *Repository) Tags(ctx context.Context, pattern string) ([]string, error) {
	const op = "git.Tags"

	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, rperrors.Git(op, "invalid tag pattern "+pattern)
	}

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get tags iterator")
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := ref.Name().Short()
		if pattern == "" || doublestar.MatchUnvalidated(pattern, name) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to iterate tags")
	}
	sort.Strings(names)
	return names, nil
}

// CreateBranch creates a branch at HEAD and checks it out, keeping local changes.
func (r *Repository) CreateBranch(ctx context.Context, branch string) error {
	const op = "git.CreateBranch"

	name := plumbing.NewBranchReferenceName(branch)
	if _, err := r.repo.Reference(name, false); err == nil {
		return fmt.Errorf("%w: %s", sourcecontrol.ErrBranchAlreadyExists, branch)
	}
	if err := name.Validate(); err != nil {
		return rperrors.GitWrap(err, op, branch)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.worktree.Checkout(&git.CheckoutOptions{
		Branch: name,
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return rperrors.GitWrap(err, op, "failed to check out "+branch)
	}
	return nil
}

// Commit stages the worktree changes to tracked files, deletions included,
// and commits them together with anything already staged. Untracked files
// stay out of the commit.
func (r *Repository) Commit(ctx context.Context, message, errorContext string) (sourcecontrol.CommitHash, error) {
	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	staged, err := r.stageTracked()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", errorContext, sourcecontrol.ErrCommitFailed, err)
	}
	if !staged {
		return "", fmt.Errorf("%s: %w", errorContext, sourcecontrol.ErrNothingToCommit)
	}

	opts := &git.CommitOptions{}
	if r.cfg.Author.Name != "" {
		opts.Author = &object.Signature{
			Name:  r.cfg.Author.Name,
			Email: r.cfg.Author.Email,
			When:  time.Now(),
		}
	}
	hash, err := r.worktree.Commit(message, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", errorContext, sourcecontrol.ErrCommitFailed, err)
	}
	return sourcecontrol.CommitHash(hash.String()), nil
}

// stageTracked adds modified tracked files to the index and removes deleted
// ones. It reports whether the index then differs from HEAD.
func (r *Repository) stageTracked() (bool, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return false, err
	}

	staged := false
	paths := make([]string, 0, len(status))
	for path, fs := range status {
		if fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging != git.Unmodified {
			staged = true
		}
		if fs.Worktree != git.Unmodified {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if status[path].Worktree == git.Deleted {
			_, err = r.worktree.Remove(path)
		} else {
			_, err = r.worktree.Add(path)
		}
		if err != nil {
			return false, fmt.Errorf("staging %s: %w", path, err)
		}
		staged = true
	}
	return staged, nil
}
