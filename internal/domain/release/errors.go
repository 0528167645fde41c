// Package release derives the git branch and tag names used by release workflows.
package release

import "errors"

// Domain errors for release naming.
var (
	// ErrAmbiguousTagName indicates a unit name that cannot be encoded as a
	// "{name}_v{version}" tag without colliding with the convention.
	ErrAmbiguousTagName = errors.New("unit name is ambiguous in release tags")
)
