package sourcecontrol

// This file provides an in-memory GitRepo for tests.

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Ensure MemoryRepo implements GitRepo.
var _ GitRepo = (*MemoryRepo)(nil)

// MemoryRepo is a GitRepo held in memory. Fields may be set directly before use.
type MemoryRepo struct {
	Branch string
	// Branches maps local branch names to commit hashes.
	Branches map[string]CommitHash
	// Remotes maps remote names to URLs.
	Remotes map[string]string
	// Stale lists local branches that are behind their remote.
	Stale map[string]bool
	// TagNames are the tags visible after FetchTags.
	TagNames []string
	Commits  []string

	FetchCount int
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryRepo creates a repository on branch with an "origin" remote.
func NewMemoryRepo(branch, originURL string) *MemoryRepo {
	return &MemoryRepo{
		Branch:   branch,
		Branches: map[string]CommitHash{branch: "0000000000000000000000000000000000000001"},
		Remotes:  map[string]string{"origin": originURL},
		Stale:    map[string]bool{},
	}
}

// CurrentBranchName returns Branch.
func (r *MemoryRepo) CurrentBranchName(context.Context) (string, error) {
	return r.Branch, r.Err
}

// ShaForBranch returns the hash recorded for branch.
func (r *MemoryRepo) ShaForBranch(_ context.Context, branch string) (CommitHash, error) {
	if r.Err != nil {
		return "", r.Err
	}
	h, ok := r.Branches[branch]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	return h, nil
}

// BranchExists returns true for recorded branches.
func (r *MemoryRepo) BranchExists(_ context.Context, branch string) (bool, error) {
	_, ok := r.Branches[branch]
	return ok, r.Err
}

// Remote returns the first remote, by name, whose URL contains partialURL.
func (r *MemoryRepo) Remote(_ context.Context, partialURL string) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	names := make([]string, 0, len(r.Remotes))
	for name := range r.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(r.Remotes[name], partialURL) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRemoteNotFound, partialURL)
}

// IsBranchUpToDate returns false for branches listed in Stale.
func (r *MemoryRepo) IsBranchUpToDate(_ context.Context, branch, remote string) (bool, error) {
	if r.Err != nil {
		return false, r.Err
	}
	if _, ok := r.Remotes[remote]; !ok {
		return false, fmt.Errorf("%w: %s", ErrRemoteNotFound, remote)
	}
	return !r.Stale[branch], nil
}

// FetchTags counts fetches.
func (r *MemoryRepo) FetchTags(context.Context) error {
	r.FetchCount++
	return r.Err
}

// Tags returns the tag names matching pattern.
func (r *MemoryRepo) Tags(_ context.Context, pattern string) ([]string, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	var out []string
	for _, t := range r.TagNames {
		if pattern == "" {
			out = append(out, t)
			continue
		}
		ok, err := doublestar.Match(pattern, t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// CreateBranch records a branch and checks it out.
func (r *MemoryRepo) CreateBranch(_ context.Context, branch string) error {
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Branches[branch]; ok {
		return fmt.Errorf("%w: %s", ErrBranchAlreadyExists, branch)
	}
	r.Branches[branch] = r.Branches[r.Branch]
	r.Branch = branch
	return nil
}

// Commit records the message.
func (r *MemoryRepo) Commit(_ context.Context, message, errorContext string) (CommitHash, error) {
	if r.Err != nil {
		return "", fmt.Errorf("%s: %w", errorContext, r.Err)
	}
	r.Commits = append(r.Commits, message)
	h := CommitHash(fmt.Sprintf("%040d", len(r.Commits)+1))
	r.Branches[r.Branch] = h
	return h, nil
}
