package monorepo

import "errors"

// Domain errors for monorepo queries.
var (
	// ErrUnknownUnit indicates a release group or package that does not exist in the repository.
	ErrUnknownUnit = errors.New("unknown release group or package")

	// ErrNoUnit indicates neither a release group nor a package was named.
	ErrNoUnit = errors.New("a release group or a package is required")

	// ErrConflictingUnit indicates both a release group and a package were named.
	ErrConflictingUnit = errors.New("release group and package are mutually exclusive")

	// ErrPackageInReleaseGroup indicates a package was named on its own but is versioned by its release group.
	ErrPackageInReleaseGroup = errors.New("package is versioned by its release group")

	// ErrInconsistentVersion indicates members of a release group disagree on the group version.
	ErrInconsistentVersion = errors.New("release group members have different versions")

	// ErrPackageNotFound indicates a package name missing from the graph.
	ErrPackageNotFound = errors.New("package not found")

	// ErrDependencyNotFound indicates a manifest does not declare the named dependency.
	ErrDependencyNotFound = errors.New("dependency not found")

	// ErrNotPublished indicates a package the registry has no record of.
	ErrNotPublished = errors.New("package not published")
)
