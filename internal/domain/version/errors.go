// Package version provides scheme-aware version arithmetic.
package version

import "errors"

// Domain errors for version operations.
var (
	// ErrMalformedVersion indicates a version string that cannot be parsed at all.
	ErrMalformedVersion = errors.New("malformed version")

	// ErrInvalidBumpType indicates an invalid bump type.
	ErrInvalidBumpType = errors.New("invalid bump type")

	// ErrUnknownScheme indicates a version scheme name that is not recognized.
	ErrUnknownScheme = errors.New("unknown version scheme")

	// ErrInvalidVirtualPatchBase indicates a virtual patch bump on a version whose major is not 0.
	ErrInvalidVirtualPatchBase = errors.New("virtual patch versions must have a major version of 0")

	// ErrNotVirtualPatch indicates a conversion from the virtual patch scheme on a version not in that scheme.
	ErrNotVirtualPatch = errors.New("version is not in the virtual patch scheme")

	// ErrNotInternalScheme indicates a version that does not use the internal scheme.
	ErrNotInternalScheme = errors.New("version is not in the internal scheme")

	// ErrMalformedRange indicates a dependency range that cannot be parsed.
	ErrMalformedRange = errors.New("malformed version range")

	// ErrNotSemverRange indicates a dependency specifier that is not a version range
	// (file paths, git urls, dist-tags, bare workspace references).
	ErrNotSemverRange = errors.New("dependency specifier is not a semver range")

	// ErrUnsupportedRangeStyle indicates a range whose style cannot be carried over to a new version.
	ErrUnsupportedRangeStyle = errors.New("range style cannot be rewritten")
)
