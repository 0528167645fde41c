package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
)

// ErrInvalidManifest indicates a package.json that is not valid JSON or lacks a name.
var ErrInvalidManifest = errors.New("invalid package manifest")

// ErrFieldNotFound indicates a manifest field that an edit expected to exist.
var ErrFieldNotFound = errors.New("manifest field not found")

// maxManifestSize bounds package.json reads.
const maxManifestSize = 4 << 20

// parseManifest reads the fields of a package.json the package graph needs.
func parseManifest(data []byte) (*monorepo.Package, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidManifest)
	}
	fields := gjson.GetManyBytes(data, "name", "version", "private", "dependencies", "devDependencies")
	if fields[0].String() == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidManifest)
	}
	return &monorepo.Package{
		Name:            fields[0].String(),
		Version:         fields[1].String(),
		Private:         fields[2].Bool(),
		Dependencies:    stringMap(fields[3]),
		DevDependencies: stringMap(fields[4]),
	}, nil
}

func stringMap(r gjson.Result) map[string]string {
	if !r.IsObject() {
		return nil
	}
	out := make(map[string]string)
	r.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.String()
		return true
	})
	return out
}

// setString replaces the string value at path in place, leaving every other
// byte of the document untouched.
func setString(data []byte, path, value string) ([]byte, error) {
	r := gjson.GetBytes(data, path)
	if !r.Exists() || r.Index <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, path)
	}
	quoted, err := quote(value)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(data)+len(quoted)-len(r.Raw))
	out = append(out, data[:r.Index]...)
	out = append(out, quoted...)
	out = append(out, data[r.Index+len(r.Raw):]...)
	return out, nil
}

// quote encodes s as a JSON string without HTML escaping, so ranges such as
// ">=1.0.0" stay readable.
func quote(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// setDependencyRange rewrites dep in every dependency section that declares it.
func setDependencyRange(data []byte, dep, rng string) ([]byte, error) {
	found := false
	for _, section := range []monorepo.DependencyKind{monorepo.DependencyRegular, monorepo.DependencyDev} {
		path := string(section) + "." + escapeKey(dep)
		if !gjson.GetBytes(data, path).Exists() {
			continue
		}
		var err error
		if data, err = setString(data, path, rng); err != nil {
			return nil, err
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", monorepo.ErrDependencyNotFound, dep)
	}
	return data, nil
}

// escapeKey escapes a package name for use as a single gjson path component.
// Scoped names contain '@' and '/', and some contain '.'.
func escapeKey(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
