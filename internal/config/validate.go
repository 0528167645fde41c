package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

// maxRetryAttempts bounds npm.retry_attempts.
const maxRetryAttempts = 10

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}

	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning to the validation error.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: &ValidationError{},
	}
}

// Validate validates the configuration. Warnings do not fail validation;
// read them with Warnings.
func (v *Validator) Validate(cfg *Config) error {
	v.validateRepository(cfg.Repository)
	v.validateReleaseGroups(cfg.ReleaseGroups)
	v.validateGlobs("packages", cfg.Packages)
	v.validateBranches(cfg.Branches, cfg.ReleaseGroups)
	v.validateChecks(cfg.Checks)
	v.validateNpm(cfg.Npm)
	v.validateGit(cfg.Git)
	v.validateOutput(cfg.Output)

	if v.errors.HasErrors() {
		return rperrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

// Warnings returns the warnings collected by Validate.
func (v *Validator) Warnings() []string {
	return v.errors.Warnings
}

func (v *Validator) validateRepository(cfg RepositoryConfig) {
	if strings.TrimSpace(cfg.DefaultBranch) == "" {
		v.errors.Addf("repository.default_branch: must not be empty")
	}
	if cfg.Upstream == "" {
		v.errors.Warnf("repository.upstream: not set, the upstream remote check will fail")
	}
}

func (v *Validator) validateReleaseGroups(groups []ReleaseGroupConfig) {
	seen := make(map[string]bool, len(groups))
	for i, g := range groups {
		field := fmt.Sprintf("release_groups[%d]", i)
		switch {
		case g.Name == "":
			v.errors.Addf("%s.name: must not be empty", field)
		case strings.ContainsAny(g.Name, " /\\~^:?*[") || strings.Contains(g.Name, "_v"):
			v.errors.Addf("%s.name: %q cannot be used in branch and tag names", field, g.Name)
		case seen[g.Name]:
			v.errors.Addf("%s.name: duplicate release group %q", field, g.Name)
		}
		seen[g.Name] = true

		if strings.HasPrefix(g.Directory, "/") || strings.Contains(g.Directory, "..") {
			v.errors.Addf("%s.directory: must be relative to the repository root, got %q", field, g.Directory)
		}
		v.validateGlobs(field+".packages", g.Packages)
	}
}

func (v *Validator) validateGlobs(field string, globs []string) {
	for _, g := range globs {
		if !doublestar.ValidatePattern(strings.TrimPrefix(g, "!")) {
			v.errors.Addf("%s: invalid glob %q", field, g)
		}
	}
}

func (v *Validator) validateBranches(cfg BranchesConfig, groups []ReleaseGroupConfig) {
	for group, alias := range cfg.Aliases {
		if strings.TrimSpace(alias) == "" {
			v.errors.Addf("branches.aliases.%s: must not be empty", group)
		}
		known := slices.ContainsFunc(groups, func(g ReleaseGroupConfig) bool { return g.Name == group })
		if !known && len(groups) > 0 {
			v.errors.Warnf("branches.aliases.%s: no release group named %q", group, group)
		}
	}
}

func (v *Validator) validateChecks(cfg ChecksConfig) {
	if cfg.Timeout < 0 {
		v.errors.Addf("checks.timeout: must not be negative, got %s", cfg.Timeout)
	}
}

func (v *Validator) validateNpm(cfg NpmConfig) {
	u, err := url.Parse(cfg.Registry)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.errors.Addf("npm.registry: must be an http(s) URL, got %q", cfg.Registry)
	} else if u.Scheme == "http" {
		v.errors.Warnf("npm.registry: %q is not using HTTPS", cfg.Registry)
	}
	if cfg.Timeout <= 0 {
		v.errors.Addf("npm.timeout: must be positive, got %s", cfg.Timeout)
	}
	if cfg.RetryAttempts < 0 || cfg.RetryAttempts > maxRetryAttempts {
		v.errors.Addf("npm.retry_attempts: must be between 0 and %d, got %d", maxRetryAttempts, cfg.RetryAttempts)
	}
	if cfg.RateLimitRPM < 0 {
		v.errors.Addf("npm.rate_limit_rpm: must not be negative, got %d", cfg.RateLimitRPM)
	}
}

func (v *Validator) validateGit(cfg GitConfig) {
	if (cfg.AuthorName == "") != (cfg.AuthorEmail == "") {
		v.errors.Addf("git.author_name and git.author_email: must be set together")
	}
	if cfg.AuthorEmail != "" && !strings.Contains(cfg.AuthorEmail, "@") {
		v.errors.Addf("git.author_email: %q is not an email address", cfg.AuthorEmail)
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.LogLevel) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLevels, cfg.LogLevel)
	}
}

// Validate validates cfg with a fresh Validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
