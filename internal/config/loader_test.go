package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `repository:
  upstream: microsoft/FluidFramework
  default_branch: main
release_groups:
  - name: client
    directory: .
  - name: server
    directory: server/routerlicious
    packages:
      - packages/*
packages:
  - common/lib/*
branches:
  aliases:
    server: routerlicious
checks:
  policy_command: npm run policy-check
  install_command: pnpm install --frozen-lockfile
npm:
  registry: https://npm.example.com
  token: ${RELMONO_TEST_NPM_TOKEN}
  timeout: 5s
  retry_attempts: 2
git:
  author_name: Release Bot
  author_email: bot@example.com
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadFromDirectory(t *testing.T) {
	t.Setenv("RELMONO_TEST_NPM_TOKEN", "npm-secret")
	dir := writeConfig(t, "relmono.config.yaml", sampleYAML)

	cfg, err := LoadFromDirectory(dir)
	if err != nil {
		t.Fatalf("LoadFromDirectory() error = %v", err)
	}

	if cfg.Repository.Upstream != "microsoft/FluidFramework" {
		t.Errorf("Repository.Upstream = %q", cfg.Repository.Upstream)
	}
	if len(cfg.ReleaseGroups) != 2 || cfg.ReleaseGroups[1].Name != "server" {
		t.Fatalf("ReleaseGroups = %+v", cfg.ReleaseGroups)
	}
	if got := cfg.ReleaseGroups[1].Packages; len(got) != 1 || got[0] != "packages/*" {
		t.Errorf("server packages = %v", got)
	}
	if cfg.Branches.Aliases["server"] != "routerlicious" {
		t.Errorf("Branches.Aliases = %v", cfg.Branches.Aliases)
	}
	if cfg.Checks.PolicyCommand != "npm run policy-check" {
		t.Errorf("Checks.PolicyCommand = %q", cfg.Checks.PolicyCommand)
	}
	if cfg.Npm.Token != "npm-secret" {
		t.Errorf("Npm.Token = %q, want expanded value", cfg.Npm.Token)
	}
	if cfg.Npm.Timeout != 5*time.Second {
		t.Errorf("Npm.Timeout = %s", cfg.Npm.Timeout)
	}
	if cfg.Npm.RetryAttempts != 2 {
		t.Errorf("Npm.RetryAttempts = %d", cfg.Npm.RetryAttempts)
	}
	// Unset keys keep their defaults.
	if cfg.Output.LogLevel != "info" {
		t.Errorf("Output.LogLevel = %q, want default", cfg.Output.LogLevel)
	}
	if cfg.Checks.Timeout != 10*time.Minute {
		t.Errorf("Checks.Timeout = %s, want default", cfg.Checks.Timeout)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().WithSearchPaths(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Repository.DefaultBranch != "main" {
		t.Errorf("Repository.DefaultBranch = %q", cfg.Repository.DefaultBranch)
	}
	if len(cfg.ReleaseGroups) != 1 || cfg.ReleaseGroups[0].Name != "client" || cfg.ReleaseGroups[0].Directory != "." {
		t.Errorf("ReleaseGroups = %+v", cfg.ReleaseGroups)
	}
	if cfg.Npm.Registry != "https://registry.npmjs.org" {
		t.Errorf("Npm.Registry = %q", cfg.Npm.Registry)
	}
	if !cfg.Output.Color {
		t.Error("Output.Color should default to true")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, "relmono.config.yaml", sampleYAML)
	t.Setenv("RELMONO_NPM_REGISTRY", "https://mirror.example.com")
	t.Setenv("RELMONO_OUTPUT_LOG_LEVEL", "debug")

	cfg, err := LoadFromDirectory(dir)
	if err != nil {
		t.Fatalf("LoadFromDirectory() error = %v", err)
	}
	if cfg.Npm.Registry != "https://mirror.example.com" {
		t.Errorf("Npm.Registry = %q, want env override", cfg.Npm.Registry)
	}
	if cfg.Output.LogLevel != "debug" {
		t.Errorf("Output.LogLevel = %q, want env override", cfg.Output.LogLevel)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	dir := writeConfig(t, "release.json", `{"repository": {"upstream": "contoso/monorepo"}, "npm": {"retry_attempts": 0}}`)

	cfg, err := LoadFromFile(filepath.Join(dir, "release.json"))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Repository.Upstream != "contoso/monorepo" {
		t.Errorf("Repository.Upstream = %q", cfg.Repository.Upstream)
	}
	if cfg.Npm.RetryAttempts != 0 {
		t.Errorf("Npm.RetryAttempts = %d", cfg.Npm.RetryAttempts)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	dir := writeConfig(t, "relmono.config.yaml", "repository: [unterminated")
	if _, err := LoadFromDirectory(dir); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := writeConfig(t, ".relmono.toml", "[repository]\nupstream = \"contoso/monorepo\"\n")

	path, err := FindConfigFile(dir)
	if err != nil {
		t.Fatalf("FindConfigFile() error = %v", err)
	}
	if !strings.HasSuffix(path, ".relmono.toml") {
		t.Errorf("FindConfigFile() = %q", path)
	}

	if _, err := FindConfigFile(t.TempDir()); err == nil {
		t.Error("expected error when no config file exists")
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("RELMONO_TEST_TOKEN", "abc123")
	t.Setenv("RELMONO_TEST_FALLBACK", "")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"${RELMONO_TEST_TOKEN}", "abc123"},
		{"$RELMONO_TEST_TOKEN", "abc123"},
		{"${RELMONO_TEST_FALLBACK:-default}", "default"},
		{"prefix-${RELMONO_TEST_TOKEN}-suffix", "prefix-abc123-suffix"},
		{"$RELMONO_TEST_UNSET", "$RELMONO_TEST_UNSET"},
	}
	for _, tt := range tests {
		if got := expandEnvVar(tt.in); got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
