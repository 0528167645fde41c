package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// workspacePrefix is the pnpm/yarn workspace protocol prefix.
const workspacePrefix = "workspace:"

var (
	// operatorSpacing joins an operator to the version that follows it: ">= 1.2.3" -> ">=1.2.3".
	operatorSpacing = regexp.MustCompile(`(\^|~>|~|>=|<=|>|<|=)\s+`)

	// comparatorPattern matches one npm comparator; wildcards and partial versions are allowed.
	comparatorPattern = regexp.MustCompile(
		`^(\^|~>|~|>=|<=|>|<|=)?v?(\d+|[xX*])(?:\.(\d+|[xX*]))?(?:\.(\d+|[xX*]))?(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?(?:\+[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?$`,
	)

	// simpleRangePattern matches ranges made of a single operator and a full version.
	simpleRangePattern = regexp.MustCompile(`^(\^|~|>=|=)?v?\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

	distTagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)
)

// nonRangePrefixes are dependency specifiers that name a location rather than a version.
var nonRangePrefixes = []string{"file:", "link:", "portal:", "npm:", "catalog:", "git", "http:", "https:", "github:"}

// MinVersion returns the lowest version that satisfies an npm dependency range.
// It returns ErrNotSemverRange for specifiers that are not version ranges.
func MinVersion(rng string) (*semver.Version, error) {
	r := strings.TrimSpace(rng)
	r = strings.TrimPrefix(r, workspacePrefix)

	for _, prefix := range nonRangePrefixes {
		if strings.HasPrefix(r, prefix) {
			return nil, fmt.Errorf("%w: %q", ErrNotSemverRange, rng)
		}
	}
	if strings.Contains(r, "/") {
		return nil, fmt.Errorf("%w: %q", ErrNotSemverRange, rng)
	}
	// A bare workspace operator refers to the in-repo version and carries none itself.
	if r == "^" || r == "~" {
		return nil, fmt.Errorf("%w: %q", ErrNotSemverRange, rng)
	}
	if !comparatorPattern.MatchString(r) && distTagPattern.MatchString(r) {
		return nil, fmt.Errorf("%w: %q", ErrNotSemverRange, rng)
	}

	var lowest *semver.Version
	for _, set := range strings.Split(r, "||") {
		candidate, err := minOfComparatorSet(strings.TrimSpace(set))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedRange, rng, err)
		}
		if lowest == nil || candidate.LessThan(lowest) {
			lowest = candidate
		}
	}
	return lowest, nil
}

// minOfComparatorSet returns the greatest lower bound among the comparators of
// one intersection set, which is the smallest version the set admits.
func minOfComparatorSet(set string) (*semver.Version, error) {
	if set == "" || set == "*" {
		return semver.New(0, 0, 0, "", ""), nil
	}
	if lo, _, found := strings.Cut(set, " - "); found {
		set = lo
	}
	set = operatorSpacing.ReplaceAllString(set, "$1")

	var best *semver.Version
	for _, token := range strings.Fields(set) {
		m := comparatorPattern.FindStringSubmatch(token)
		if m == nil {
			return nil, fmt.Errorf("invalid comparator %q", token)
		}
		op := m[1]
		if op == "<" || op == "<=" {
			continue
		}

		candidate, err := lowerBound(op, m[2], m[3], m[4], m[5])
		if err != nil {
			return nil, err
		}
		if best == nil || candidate.GreaterThan(best) {
			best = candidate
		}
	}
	if best == nil {
		return semver.New(0, 0, 0, "", ""), nil
	}
	return best, nil
}

func lowerBound(op, major, minor, patch, pre string) (*semver.Version, error) {
	parts := []string{major, minor, patch}
	nums := [3]uint64{}
	// precision is the number of leading components that are concrete numbers.
	precision := 0
	for i, p := range parts {
		if p == "" || p == "x" || p == "X" || p == "*" {
			break
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		nums[i] = n
		precision++
	}

	if op != ">" {
		if precision < 3 {
			pre = ""
		}
		return semver.New(nums[0], nums[1], nums[2], pre, ""), nil
	}

	switch precision {
	case 0:
		// ">*" admits nothing; npm treats it as unsatisfiable, report the floor instead.
		return semver.New(0, 0, 0, "", ""), nil
	case 1:
		return semver.New(nums[0]+1, 0, 0, "", ""), nil
	case 2:
		return semver.New(nums[0], nums[1]+1, 0, "", ""), nil
	default:
		if pre != "" {
			return semver.New(nums[0], nums[1], nums[2], pre+".0", ""), nil
		}
		return semver.New(nums[0], nums[1], nums[2]+1, "", ""), nil
	}
}

// RangeStyle describes how a simple range is written so it can be
// re-applied to another version.
type RangeStyle struct {
	// Workspace is true when the range uses the workspace: protocol.
	Workspace bool
	// Operator is the comparison operator: "", "^", "~", ">=", or "=".
	Operator string
}

// ParseRangeStyle extracts the style of a single-comparator range.
func ParseRangeStyle(rng string) (RangeStyle, error) {
	r := strings.TrimSpace(rng)
	style := RangeStyle{}
	if strings.HasPrefix(r, workspacePrefix) {
		style.Workspace = true
		r = strings.TrimPrefix(r, workspacePrefix)
	}
	m := simpleRangePattern.FindStringSubmatch(r)
	if m == nil {
		return RangeStyle{}, fmt.Errorf("%w: %q", ErrUnsupportedRangeStyle, rng)
	}
	style.Operator = m[1]
	return style, nil
}

// Format writes version in this style.
func (s RangeStyle) Format(version string) string {
	out := s.Operator + version
	if s.Workspace {
		out = workspacePrefix + out
	}
	return out
}

// RewriteRange returns rng rewritten to point at version while keeping its style.
func RewriteRange(rng, version string) (string, error) {
	style, err := ParseRangeStyle(rng)
	if err != nil {
		return "", err
	}
	return style.Format(version), nil
}
