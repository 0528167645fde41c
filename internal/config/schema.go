// Package config provides configuration management for relmono.
package config

import (
	"time"
)

// Config is the root configuration for relmono.
type Config struct {
	// Repository locates the monorepo and its upstream.
	Repository RepositoryConfig `mapstructure:"repository" json:"repository"`
	// ReleaseGroups lists the release groups and where their packages live.
	ReleaseGroups []ReleaseGroupConfig `mapstructure:"release_groups" json:"release_groups"`
	// Packages are globs, relative to the repository root, of independently
	// versioned packages.
	Packages []string `mapstructure:"packages" json:"packages,omitempty"`
	// Branches configures release branch naming.
	Branches BranchesConfig `mapstructure:"branches" json:"branches"`
	// Checks configures the external commands the release checks run.
	Checks ChecksConfig `mapstructure:"checks" json:"checks"`
	// Npm configures the package registry client.
	Npm NpmConfig `mapstructure:"npm" json:"npm"`
	// Git configures commit signatures and remote authentication.
	Git GitConfig `mapstructure:"git" json:"git"`
	// Output configures logging and terminal output.
	Output OutputConfig `mapstructure:"output" json:"output"`
}

// RepositoryConfig locates the monorepo.
type RepositoryConfig struct {
	// Upstream is a partial remote URL, such as "microsoft/FluidFramework",
	// identifying the upstream remote.
	Upstream string `mapstructure:"upstream" json:"upstream"`
	// DefaultBranch is the branch release preparation starts from.
	DefaultBranch string `mapstructure:"default_branch" json:"default_branch"`
	// Root is the monorepo root directory.
	Root string `mapstructure:"root" json:"root"`
}

// ReleaseGroupConfig locates the packages of one release group.
type ReleaseGroupConfig struct {
	Name string `mapstructure:"name" json:"name"`
	// Directory is the release group root, relative to the repository root.
	Directory string `mapstructure:"directory" json:"directory"`
	// Packages are globs relative to Directory. When empty, pnpm-workspace.yaml
	// in Directory supplies them.
	Packages []string `mapstructure:"packages" json:"packages,omitempty"`
}

// BranchesConfig configures release branch naming.
type BranchesConfig struct {
	// Aliases maps a release group to the name its release branches use.
	Aliases map[string]string `mapstructure:"aliases" json:"aliases,omitempty"`
}

// ChecksConfig configures the commands behind the policy and install checks.
type ChecksConfig struct {
	// PolicyCommand is run by the policy check. Empty passes.
	PolicyCommand string `mapstructure:"policy_command" json:"policy_command,omitempty"`
	// InstallCommand is run by the build tools check. Empty passes.
	InstallCommand string `mapstructure:"install_command" json:"install_command,omitempty"`
	// Timeout bounds each command.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// NpmConfig configures the package registry client.
type NpmConfig struct {
	// Registry is the registry base URL.
	Registry string `mapstructure:"registry" json:"registry"`
	// Token is a registry bearer token (can use env var expansion).
	Token string `mapstructure:"token" json:"token,omitempty"`
	// Timeout bounds each registry request.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// RetryAttempts is the number of attempts per request.
	RetryAttempts int `mapstructure:"retry_attempts" json:"retry_attempts"`
	// RateLimitRPM caps registry requests per minute. Zero disables the limit.
	RateLimitRPM int `mapstructure:"rate_limit_rpm" json:"rate_limit_rpm"`
}

// GitConfig configures commit signatures and remote authentication.
type GitConfig struct {
	// AuthorName and AuthorEmail sign bump commits. When empty the
	// repository's own user configuration applies.
	AuthorName  string `mapstructure:"author_name" json:"author_name,omitempty"`
	AuthorEmail string `mapstructure:"author_email" json:"author_email,omitempty"`
	// AuthToken authenticates HTTPS fetches (can use env var expansion).
	AuthToken string `mapstructure:"auth_token" json:"auth_token,omitempty"`
	// AuthUsername accompanies AuthToken. Defaults to "git".
	AuthUsername string `mapstructure:"auth_username" json:"auth_username,omitempty"`
}

// OutputConfig configures logging and terminal output.
type OutputConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color"`
}

// DefaultConfig returns the default configuration: a single "client"
// release group at the repository root, described by pnpm-workspace.yaml.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			DefaultBranch: "main",
			Root:          ".",
		},
		ReleaseGroups: []ReleaseGroupConfig{
			{Name: "client", Directory: "."},
		},
		Branches: BranchesConfig{
			Aliases: map[string]string{"server": "routerlicious"},
		},
		Checks: ChecksConfig{
			Timeout: 10 * time.Minute,
		},
		Npm: NpmConfig{
			Registry:      "https://registry.npmjs.org",
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			RateLimitRPM:  600,
		},
		Git: GitConfig{
			AuthUsername: "git",
		},
		Output: OutputConfig{
			LogLevel: "info",
			Color:    true,
		},
	}
}

// ConfigFileNames to search for.
var ConfigFileNames = []string{
	"relmono.config",
	".relmono",
}

// ConfigFileExtensions supported by Viper.
var ConfigFileExtensions = []string{
	"yaml",
	"yml",
	"json",
	"toml",
}
