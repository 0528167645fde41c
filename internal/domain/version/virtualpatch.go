package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// virtualPatchBlock is the width of one minor release line inside the patch field.
const virtualPatchBlock = 1000

// IsVirtualPatch reports whether v is encoded in the virtual patch scheme:
// major is 0 and patch is at least 1000.
func IsVirtualPatch(v *semver.Version) bool {
	return v.Major() == 0 && v.Patch() >= virtualPatchBlock
}

// BumpVirtualPatch bumps a 0.x.y version as if it were the major.minor.patch
// it encodes. Major reserves the next minor field with patch 1000, minor moves
// to the next thousand-block, and patch increments by one.
func BumpVirtualPatch(bump BumpType, version string) (*semver.Version, error) {
	sv, err := Parse(version)
	if err != nil {
		return nil, err
	}
	return bumpVirtualPatch(bump, sv)
}

func bumpVirtualPatch(bump BumpType, v *semver.Version) (*semver.Version, error) {
	if v.Major() != 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVirtualPatchBase, v)
	}

	switch bump {
	case BumpMajor:
		return semver.New(0, v.Minor()+1, virtualPatchBlock, "", ""), nil
	case BumpMinor:
		patch := v.Patch() + virtualPatchBlock
		patch -= patch % virtualPatchBlock
		return semver.New(0, v.Minor(), patch, "", ""), nil
	case BumpPatch:
		return semver.New(0, v.Minor(), v.Patch()+1, "", ""), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBumpType, bump)
	}
}

// ToVirtualPatchScheme converts a standard version into the virtual patch
// scheme. Versions already in the scheme are returned unchanged.
//
// A minor of 0 maps to block 1, not block 0, so the encoded patch never
// falls below 1000. As a consequence X.0.Z converts to the same value as X.1.Z.
func ToVirtualPatchScheme(version string) (*semver.Version, error) {
	sv, err := Parse(version)
	if err != nil {
		return nil, err
	}
	if IsVirtualPatch(sv) {
		return sv, nil
	}

	base := sv.Minor()
	if base == 0 {
		base = 1
	}
	patch := base*virtualPatchBlock + sv.Patch()%virtualPatchBlock
	return semver.New(0, sv.Major(), patch, sv.Prerelease(), sv.Metadata()), nil
}

// FromVirtualPatchScheme decodes a virtual patch version into the
// major.minor.patch it represents.
func FromVirtualPatchScheme(version string) (*semver.Version, error) {
	sv, err := Parse(version)
	if err != nil {
		return nil, err
	}
	if !IsVirtualPatch(sv) {
		return nil, fmt.Errorf("%w: %s", ErrNotVirtualPatch, version)
	}
	return semver.New(
		sv.Minor(),
		sv.Patch()/virtualPatchBlock,
		sv.Patch()%virtualPatchBlock,
		sv.Prerelease(),
		sv.Metadata(),
	), nil
}
