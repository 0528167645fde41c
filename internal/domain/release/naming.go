package release

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/version"
)

// DefaultBranchAliases holds the legacy release branch names that predate
// their release group's current name.
var DefaultBranchAliases = map[string]string{
	"server": "routerlicious",
}

// BranchNamer derives branch names for a release unit.
type BranchNamer struct {
	aliases map[string]string
}

// NewBranchNamer creates a BranchNamer. A nil aliases map uses DefaultBranchAliases.
func NewBranchNamer(aliases map[string]string) *BranchNamer {
	if aliases == nil {
		aliases = DefaultBranchAliases
	}
	return &BranchNamer{aliases: aliases}
}

// BumpBranchName returns "bump_{unit}_{bumpType}_{newVersion}" where newVersion is
// current bumped with the scheme detected from current.
func (n *BranchNamer) BumpBranchName(unit monorepo.ReleaseUnit, bump version.BumpType, current string) (string, error) {
	next, err := version.BumpDetected(current, bump)
	if err != nil {
		return "", err
	}
	return n.BumpBranchNameTo(unit, bump, next.String()), nil
}

// BumpBranchNameTo returns the bump branch name for a bump that already
// produced next.
func (n *BranchNamer) BumpBranchNameTo(unit monorepo.ReleaseUnit, bump version.BumpType, next string) string {
	return fmt.Sprintf("bump_%s_%s_%s", lower(unit.Name()), bump, next)
}

// DepsBranchName returns the branch used to commit dependency bumps for a unit.
func (n *BranchNamer) DepsBranchName(unit monorepo.ReleaseUnit, current string) string {
	return fmt.Sprintf("bump_deps_%s_%s", lower(unit.Name()), current)
}

// ReleaseBranchName returns "release/{alias}/{branchVersion}".
//
// branchVersion is "{major}.{minor}" for semver, the full version for the
// virtual patch scheme, and "v{publicMajor}int/{major}.{minor}" of the
// internal triple for internal versions.
func (n *BranchNamer) ReleaseBranchName(unit monorepo.ReleaseUnit, current string) (string, error) {
	scheme, err := version.DetectScheme(current)
	if err != nil {
		return "", err
	}

	var branchVersion string
	switch scheme {
	case version.SchemeVirtualPatch:
		v, err := version.Parse(current)
		if err != nil {
			return "", err
		}
		branchVersion = v.String()
	case version.SchemeInternal:
		public, internal, err := version.FromInternalScheme(current)
		if err != nil {
			return "", err
		}
		branchVersion = fmt.Sprintf("v%dint/%d.%d", public.Major(), internal.Major(), internal.Minor())
	default:
		v, err := version.Parse(current)
		if err != nil {
			return "", err
		}
		branchVersion = fmt.Sprintf("%d.%d", v.Major(), v.Minor())
	}

	return fmt.Sprintf("release/%s/%s", n.Alias(unit), branchVersion), nil
}

// Alias returns the release branch name segment for a unit.
func (n *BranchNamer) Alias(unit monorepo.ReleaseUnit) string {
	name := lower(ShortName(unit))
	if alias, ok := n.aliases[name]; ok {
		return alias
	}
	return name
}

// ShortName returns the release group name, or the package name without its scope.
func ShortName(unit monorepo.ReleaseUnit) string {
	if unit.IsReleaseGroup() {
		return unit.Name()
	}
	return (&monorepo.Package{Name: unit.Name()}).ShortName()
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// invalidRefChars cannot appear in a git ref name.
const invalidRefChars = " ~^:?*[\\"

// TagName returns the release tag "{shortname}_v{version}" for a unit.
// Names that contain the "_v" separator or characters git rejects in refs
// return ErrAmbiguousTagName.
func TagName(unit monorepo.ReleaseUnit, ver string) (string, error) {
	name := lower(ShortName(unit))
	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty name", ErrAmbiguousTagName)
	case strings.Contains(name, "_v"):
		return "", fmt.Errorf("%w: %q contains the \"_v\" separator", ErrAmbiguousTagName, name)
	case strings.ContainsAny(name, invalidRefChars), strings.Contains(name, ".."), strings.Contains(name, "@{"):
		return "", fmt.Errorf("%w: %q is not a valid ref name", ErrAmbiguousTagName, name)
	}
	return fmt.Sprintf("%s_v%s", name, ver), nil
}
