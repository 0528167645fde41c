// Package sourcecontrol provides domain types for source control operations.
package sourcecontrol

import "errors"

// Domain errors for source control operations.
var (
	// ErrNotARepository indicates the path is not a git repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrDetachedHead indicates HEAD does not point at a branch.
	ErrDetachedHead = errors.New("HEAD is detached")

	// ErrBranchNotFound indicates the branch was not found.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBranchAlreadyExists indicates a branch with the same name exists.
	ErrBranchAlreadyExists = errors.New("branch already exists")

	// ErrRemoteNotFound indicates no remote matches the requested URL.
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrNothingToCommit indicates the working tree has no changes to commit.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrFetchFailed indicates a fetch operation failed.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrCommitFailed indicates a commit operation failed.
	ErrCommitFailed = errors.New("commit failed")
)
