package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// internalIdentifier is the first prerelease identifier of internal scheme versions.
const internalIdentifier = "internal"

// IsInternalVersion reports whether v has the shape public-internal.major.minor.patch.
func IsInternalVersion(v *semver.Version) bool {
	_, ok := internalTriple(v)
	return ok
}

// FromInternalScheme splits an internal scheme version into its public version
// and the internal version embedded in its prerelease.
func FromInternalScheme(version string) (public, internal *semver.Version, err error) {
	sv, err := Parse(version)
	if err != nil {
		return nil, nil, err
	}
	return splitInternal(sv)
}

// ToInternalScheme combines a public and an internal version into one internal scheme version.
func ToInternalScheme(public, internal string) (*semver.Version, error) {
	pub, err := Parse(public)
	if err != nil {
		return nil, err
	}
	in, err := Parse(internal)
	if err != nil {
		return nil, err
	}
	return joinInternal(pub, in), nil
}

func splitInternal(v *semver.Version) (public, internal *semver.Version, err error) {
	triple, ok := internalTriple(v)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotInternalScheme, v)
	}
	public = semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	internal = semver.New(triple[0], triple[1], triple[2], "", "")
	return public, internal, nil
}

func joinInternal(public, internal *semver.Version) *semver.Version {
	pre := fmt.Sprintf("%s.%d.%d.%d", internalIdentifier, internal.Major(), internal.Minor(), internal.Patch())
	return semver.New(public.Major(), public.Minor(), public.Patch(), pre, "")
}

// bumpInternal moves the embedded internal version; the public version is fixed.
func bumpInternal(bump BumpType, v *semver.Version) (*semver.Version, error) {
	public, internal, err := splitInternal(v)
	if err != nil {
		return nil, err
	}
	return joinInternal(public, bumpSemver(internal, bump)), nil
}

func internalTriple(v *semver.Version) ([3]uint64, bool) {
	var triple [3]uint64
	parts := strings.Split(v.Prerelease(), ".")
	if len(parts) < 4 || parts[0] != internalIdentifier {
		return triple, false
	}
	for i := 0; i < 3; i++ {
		p := parts[i+1]
		if len(p) > 1 && p[0] == '0' {
			return triple, false
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return triple, false
		}
		triple[i] = n
	}
	return triple, true
}
