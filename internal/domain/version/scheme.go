package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Scheme identifies how a version string encodes its release line.
type Scheme string

const (
	// SchemeSemver is plain semantic versioning.
	SchemeSemver Scheme = "semver"
	// SchemeInternal embeds an internal major.minor.patch in the prerelease
	// of a fixed public version, e.g. 2.0.0-internal.3.1.0.
	SchemeInternal Scheme = "internal"
	// SchemeVirtualPatch packs major.minor.patch into a 0.x.y version.
	SchemeVirtualPatch Scheme = "virtualPatch"
)

// IsValid returns true if the scheme is one of the known schemes.
func (s Scheme) IsValid() bool {
	switch s {
	case SchemeSemver, SchemeInternal, SchemeVirtualPatch:
		return true
	default:
		return false
	}
}

// String returns the string representation of the scheme.
func (s Scheme) String() string {
	return string(s)
}

// ParseScheme parses a scheme name.
func ParseScheme(s string) (Scheme, error) {
	scheme := Scheme(s)
	if !scheme.IsValid() {
		return "", fmt.Errorf("%w: %q (must be semver, internal, or virtualPatch)", ErrUnknownScheme, s)
	}
	return scheme, nil
}

// Parse parses a strict semantic version. A leading "v" is tolerated.
func Parse(s string) (*semver.Version, error) {
	sv, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedVersion, s, err)
	}
	return sv, nil
}

// DetectScheme classifies a version string by its shape.
// Virtual patch takes precedence over internal, which takes precedence over semver.
func DetectScheme(s string) (Scheme, error) {
	sv, err := Parse(s)
	if err != nil {
		return "", err
	}
	return SchemeOf(sv), nil
}

// SchemeOf classifies a parsed version.
func SchemeOf(v *semver.Version) Scheme {
	if IsVirtualPatch(v) {
		return SchemeVirtualPatch
	}
	if IsInternalVersion(v) {
		return SchemeInternal
	}
	return SchemeSemver
}
