package monorepo

import "fmt"

// UnitKind distinguishes the two forms of ReleaseUnit.
type UnitKind uint8

const (
	// UnitReleaseGroup is a set of co-versioned packages.
	UnitReleaseGroup UnitKind = iota + 1
	// UnitPackage is a single independently versioned package.
	UnitPackage
)

// String returns the string representation of the kind.
func (k UnitKind) String() string {
	switch k {
	case UnitReleaseGroup:
		return "release group"
	case UnitPackage:
		return "package"
	default:
		return "unknown"
	}
}

// ReleaseUnit names exactly one release group or one independent package.
// The zero value names nothing.
type ReleaseUnit struct {
	kind UnitKind
	name string
}

// ReleaseGroup returns a unit naming a release group.
func ReleaseGroup(name string) ReleaseUnit {
	return ReleaseUnit{kind: UnitReleaseGroup, name: name}
}

// SinglePackage returns a unit naming an independent package.
func SinglePackage(name string) ReleaseUnit {
	return ReleaseUnit{kind: UnitPackage, name: name}
}

// NewReleaseUnit builds a unit from the mutually exclusive --releaseGroup and --package inputs.
func NewReleaseUnit(releaseGroup, pkg string) (ReleaseUnit, error) {
	switch {
	case releaseGroup != "" && pkg != "":
		return ReleaseUnit{}, fmt.Errorf("%w: got %q and %q", ErrConflictingUnit, releaseGroup, pkg)
	case releaseGroup != "":
		return ReleaseGroup(releaseGroup), nil
	case pkg != "":
		return SinglePackage(pkg), nil
	default:
		return ReleaseUnit{}, ErrNoUnit
	}
}

// Kind returns whether the unit is a release group or a package.
func (u ReleaseUnit) Kind() UnitKind {
	return u.kind
}

// Name returns the release group or package name.
func (u ReleaseUnit) Name() string {
	return u.name
}

// IsReleaseGroup returns true if the unit names a release group.
func (u ReleaseUnit) IsReleaseGroup() bool {
	return u.kind == UnitReleaseGroup
}

// IsZero returns true if the unit names nothing.
func (u ReleaseUnit) IsZero() bool {
	return u.kind == 0
}

// String returns the unit name.
func (u ReleaseUnit) String() string {
	return u.name
}
