package sourcecontrol

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// releaseTagSeparator divides the unit name from the version in release tags.
const releaseTagSeparator = "_v"

// Tag is a git tag name, optionally parsed as a release tag of the form
// "{unit}_v{version}".
type Tag struct {
	name    string
	unit    string
	version *semver.Version
}

// NewTag parses a tag name. Tags that do not follow the release tag form
// are kept but report IsReleaseTag false.
func NewTag(name string) *Tag {
	t := &Tag{name: name}
	i := strings.LastIndex(name, releaseTagSeparator)
	if i <= 0 {
		return t
	}
	v, err := semver.StrictNewVersion(name[i+len(releaseTagSeparator):])
	if err != nil {
		return t
	}
	t.unit = name[:i]
	t.version = v
	return t
}

// Name returns the tag name.
func (t *Tag) Name() string {
	return t.name
}

// Version returns the version of a release tag, or nil.
func (t *Tag) Version() *semver.Version {
	return t.version
}

// IsReleaseTag returns true if the tag carries a unit and a version.
func (t *Tag) IsReleaseTag() bool {
	return t.version != nil
}

// TagList is a list of tags.
type TagList []*Tag

// NewTagList parses every name into a Tag.
func NewTagList(names []string) TagList {
	tl := make(TagList, 0, len(names))
	for _, n := range names {
		tl = append(tl, NewTag(n))
	}
	return tl
}

// Contains returns true if a tag with exactly this name exists.
func (tl TagList) Contains(name string) bool {
	for _, t := range tl {
		if t.name == name {
			return true
		}
	}
	return false
}

// ForUnit returns the release tags of a unit.
func (tl TagList) ForUnit(unit string) TagList {
	result := make(TagList, 0, len(tl)/4+1)
	for _, t := range tl {
		if t.IsReleaseTag() && t.unit == unit {
			result = append(result, t)
		}
	}
	return result
}

// Latest returns the release tag with the highest version.
func (tl TagList) Latest() *Tag {
	var latest *Tag
	for _, t := range tl {
		if !t.IsReleaseTag() {
			continue
		}
		if latest == nil || t.version.GreaterThan(latest.version) {
			latest = t
		}
	}
	return latest
}
