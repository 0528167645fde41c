package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// BumpType represents the type of version bump to apply.
type BumpType string

const (
	// BumpMajor indicates a major version bump (breaking changes).
	BumpMajor BumpType = "major"
	// BumpMinor indicates a minor version bump (new features).
	BumpMinor BumpType = "minor"
	// BumpPatch indicates a patch version bump (bug fixes).
	BumpPatch BumpType = "patch"
)

// IsValid returns true if the bump type is valid.
func (b BumpType) IsValid() bool {
	switch b {
	case BumpMajor, BumpMinor, BumpPatch:
		return true
	default:
		return false
	}
}

// String returns the string representation of the bump type.
func (b BumpType) String() string {
	return string(b)
}

// ParseBumpType parses a string into a BumpType.
func ParseBumpType(s string) (BumpType, error) {
	bt := BumpType(s)
	if !bt.IsValid() {
		return "", fmt.Errorf("%w: %q (must be major, minor, or patch)", ErrInvalidBumpType, s)
	}
	return bt, nil
}

// Bump computes the next version of version under the given scheme.
func Bump(version string, bump BumpType, scheme Scheme) (*semver.Version, error) {
	if !bump.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBumpType, bump)
	}
	sv, err := Parse(version)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case SchemeSemver:
		if IsVirtualPatch(sv) {
			return bumpVirtualPatch(bump, sv)
		}
		return bumpSemver(sv, bump), nil
	case SchemeVirtualPatch:
		return bumpVirtualPatch(bump, sv)
	case SchemeInternal:
		return bumpInternal(bump, sv)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// BumpDetected bumps version under the scheme detected from its shape.
func BumpDetected(version string, bump BumpType) (*semver.Version, error) {
	scheme, err := DetectScheme(version)
	if err != nil {
		return nil, err
	}
	return Bump(version, bump, scheme)
}

// bumpSemver follows npm's increment rules: a prerelease of the target
// version is released rather than skipped over.
func bumpSemver(v *semver.Version, bump BumpType) *semver.Version {
	pre := v.Prerelease() != ""

	switch bump {
	case BumpMajor:
		if pre && v.Minor() == 0 && v.Patch() == 0 {
			return semver.New(v.Major(), 0, 0, "", "")
		}
		return semver.New(v.Major()+1, 0, 0, "", "")
	case BumpMinor:
		if pre && v.Patch() == 0 {
			return semver.New(v.Major(), v.Minor(), 0, "", "")
		}
		return semver.New(v.Major(), v.Minor()+1, 0, "", "")
	default:
		if pre {
			return semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
		}
		return semver.New(v.Major(), v.Minor(), v.Patch()+1, "", "")
	}
}
