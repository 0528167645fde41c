package version

import (
	"errors"
	"testing"
)

func TestBumpType_IsValid(t *testing.T) {
	for _, bt := range []BumpType{BumpMajor, BumpMinor, BumpPatch} {
		if !bt.IsValid() {
			t.Errorf("IsValid() = false for %s, want true", bt)
		}
	}

	for _, bt := range []BumpType{"invalid", "", "MAJOR", "prerelease"} {
		if bt.IsValid() {
			t.Errorf("IsValid() = true for %q, want false", bt)
		}
	}
}

func TestParseBumpType(t *testing.T) {
	tests := []struct {
		input   string
		wantBT  BumpType
		wantErr bool
	}{
		{"major", BumpMajor, false},
		{"minor", BumpMinor, false},
		{"patch", BumpPatch, false},
		{"invalid", "", true},
		{"", "", true},
		{"MAJOR", "", true}, // Not case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			bt, err := ParseBumpType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBumpType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidBumpType) {
				t.Errorf("ParseBumpType(%q) error = %v, want ErrInvalidBumpType", tt.input, err)
			}
			if !tt.wantErr && bt != tt.wantBT {
				t.Errorf("ParseBumpType(%q) = %v, want %v", tt.input, bt, tt.wantBT)
			}
		})
	}
}

func TestBump(t *testing.T) {
	tests := []struct {
		name    string
		version string
		bump    BumpType
		scheme  Scheme
		want    string
		wantErr error
	}{
		{"semver major", "1.2.3", BumpMajor, SchemeSemver, "2.0.0", nil},
		{"semver minor", "1.2.3", BumpMinor, SchemeSemver, "1.3.0", nil},
		{"semver patch", "1.2.3", BumpPatch, SchemeSemver, "1.2.4", nil},
		{"semver patch releases prerelease", "1.2.3-dev.4", BumpPatch, SchemeSemver, "1.2.3", nil},
		{"semver minor releases prerelease of minor", "1.3.0-rc.1", BumpMinor, SchemeSemver, "1.3.0", nil},
		{"semver minor past patch prerelease", "1.3.1-rc.1", BumpMinor, SchemeSemver, "1.4.0", nil},
		{"semver major releases prerelease of major", "2.0.0-dev.1", BumpMajor, SchemeSemver, "2.0.0", nil},
		{"semver on virtual patch version", "0.4.2000", BumpPatch, SchemeSemver, "0.4.2001", nil},
		{"virtual patch major", "0.3.1000", BumpMajor, SchemeVirtualPatch, "0.4.1000", nil},
		{"virtual patch minor", "0.4.1000", BumpMinor, SchemeVirtualPatch, "0.4.2000", nil},
		{"virtual patch patch", "0.4.2000", BumpPatch, SchemeVirtualPatch, "0.4.2001", nil},
		{"virtual patch bad base", "1.0.1000", BumpPatch, SchemeVirtualPatch, "", ErrInvalidVirtualPatchBase},
		{"internal minor", "2.0.0-internal.3.1.2", BumpMinor, SchemeInternal, "2.0.0-internal.3.2.0", nil},
		{"internal major", "2.0.0-internal.3.1.2", BumpMajor, SchemeInternal, "2.0.0-internal.4.0.0", nil},
		{"internal patch", "2.0.0-internal.3.1.2", BumpPatch, SchemeInternal, "2.0.0-internal.3.1.3", nil},
		{"internal on plain version", "2.0.0", BumpPatch, SchemeInternal, "", ErrNotInternalScheme},
		{"malformed", "not-a-version", BumpPatch, SchemeSemver, "", ErrMalformedVersion},
		{"unknown scheme", "1.0.0", BumpPatch, Scheme("calver"), "", ErrUnknownScheme},
		{"invalid bump", "1.0.0", BumpType("huge"), SchemeSemver, "", ErrInvalidBumpType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bump(tt.version, tt.bump, tt.scheme)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Bump() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Bump() unexpected error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("Bump(%s, %s, %s) = %s, want %s", tt.version, tt.bump, tt.scheme, got, tt.want)
			}
		})
	}
}

func TestBumpDetected(t *testing.T) {
	tests := []struct {
		version string
		bump    BumpType
		want    string
	}{
		{"1.2.3", BumpMinor, "1.3.0"},
		{"0.4.1000", BumpMinor, "0.4.2000"},
		{"2.0.0-internal.1.0.0", BumpMinor, "2.0.0-internal.1.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := BumpDetected(tt.version, tt.bump)
			if err != nil {
				t.Fatalf("BumpDetected() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("BumpDetected(%s, %s) = %s, want %s", tt.version, tt.bump, got, tt.want)
			}
		})
	}
}
