package sourcecontrol

import "context"

// CommitHash represents a git commit hash.
type CommitHash string

// Short returns the short (7 character) hash.
func (h CommitHash) Short() string {
	if len(h) > 7 {
		return string(h[:7])
	}
	return string(h)
}

// String returns the full hash.
func (h CommitHash) String() string {
	return string(h)
}

// IsEmpty returns true if the hash is empty.
func (h CommitHash) IsEmpty() bool {
	return h == ""
}

// Author identifies the signature used for commits.
type Author struct {
	Name  string
	Email string
}

// BranchReader provides read access to local and remote-tracking branches.
type BranchReader interface {
	// CurrentBranchName returns the short name of the checked out branch.
	CurrentBranchName(ctx context.Context) (string, error)
	// ShaForBranch returns the commit a local branch points to.
	ShaForBranch(ctx context.Context, branch string) (CommitHash, error)
	// BranchExists returns true if a local or remote-tracking branch has the name.
	BranchExists(ctx context.Context, branch string) (bool, error)
}

// RemoteOperator provides operations against remote repositories.
type RemoteOperator interface {
	// Remote returns the name of the remote whose URL contains partialURL.
	// It returns ErrRemoteNotFound when none matches.
	Remote(ctx context.Context, partialURL string) (string, error)
	// IsBranchUpToDate fetches the remote and reports whether the local branch
	// contains the remote branch head.
	IsBranchUpToDate(ctx context.Context, branch, remote string) (bool, error)
	// FetchTags fetches every tag from every remote.
	FetchTags(ctx context.Context) error
}

// TagReader provides read access to tags.
type TagReader interface {
	// Tags returns the tag names matching a glob pattern, or every tag when pattern is empty.
	Tags(ctx context.Context, pattern string) ([]string, error)
}

// WorkingTreeWriter records changes in the repository.
type WorkingTreeWriter interface {
	// CreateBranch creates a branch at HEAD and checks it out.
	CreateBranch(ctx context.Context, branch string) error
	// Commit stages changes to tracked files and commits them. Untracked files
	// are never committed. errorContext prefixes any failure.
	Commit(ctx context.Context, message, errorContext string) (CommitHash, error)
}

// GitRepo is the git surface the release workflows depend on.
// Implemented in the infrastructure layer.
type GitRepo interface {
	BranchReader
	RemoteOperator
	TagReader
	WorkingTreeWriter
}
