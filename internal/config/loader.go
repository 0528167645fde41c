package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

var (
	// envVarPattern matches ${VAR} or ${VAR:-default} syntax
	envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)
	// simpleEnvVarPattern matches $VAR syntax
	simpleEnvVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader. Environment variables
// prefixed RELMONO_ override file values, e.g. RELMONO_NPM_REGISTRY.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("RELMONO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths adds directories to search for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = append(l.searchPaths, paths...)
	return l
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	expandEnvVars(cfg)
	return cfg, nil
}

// setDefaults sets default values using Viper.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("repository.upstream", defaults.Repository.Upstream)
	l.v.SetDefault("repository.default_branch", defaults.Repository.DefaultBranch)
	l.v.SetDefault("repository.root", defaults.Repository.Root)

	groups := make([]map[string]any, 0, len(defaults.ReleaseGroups))
	for _, g := range defaults.ReleaseGroups {
		groups = append(groups, map[string]any{"name": g.Name, "directory": g.Directory})
	}
	l.v.SetDefault("release_groups", groups)
	l.v.SetDefault("packages", defaults.Packages)

	l.v.SetDefault("branches.aliases", defaults.Branches.Aliases)

	l.v.SetDefault("checks.policy_command", defaults.Checks.PolicyCommand)
	l.v.SetDefault("checks.install_command", defaults.Checks.InstallCommand)
	l.v.SetDefault("checks.timeout", defaults.Checks.Timeout)

	l.v.SetDefault("npm.registry", defaults.Npm.Registry)
	l.v.SetDefault("npm.token", defaults.Npm.Token)
	l.v.SetDefault("npm.timeout", defaults.Npm.Timeout)
	l.v.SetDefault("npm.retry_attempts", defaults.Npm.RetryAttempts)
	l.v.SetDefault("npm.rate_limit_rpm", defaults.Npm.RateLimitRPM)

	l.v.SetDefault("git.author_name", defaults.Git.AuthorName)
	l.v.SetDefault("git.author_email", defaults.Git.AuthorEmail)
	l.v.SetDefault("git.auth_token", defaults.Git.AuthToken)
	l.v.SetDefault("git.auth_username", defaults.Git.AuthUsername)

	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
	l.v.SetDefault("output.color", defaults.Output.Color)
}

// loadConfigFile loads the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	configFile, ok := findConfigFile(l.searchPaths)
	if !ok {
		// No config file found, defaults apply.
		return nil
	}
	l.v.SetConfigFile(configFile)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", configFile, err)
	}
	return nil
}

// expandEnvVars expands environment variables in sensitive configuration fields.
func expandEnvVars(cfg *Config) {
	cfg.Npm.Token = expandEnvVar(cfg.Npm.Token)
	cfg.Npm.Registry = expandEnvVar(cfg.Npm.Registry)
	cfg.Git.AuthToken = expandEnvVar(cfg.Git.AuthToken)
	cfg.Git.AuthUsername = expandEnvVar(cfg.Git.AuthUsername)
}

// expandEnvVar expands environment variables in a string.
// Supports both ${VAR} and $VAR syntax.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		varName := submatch[1]
		defaultValue := ""
		if len(submatch) > 2 {
			defaultValue = submatch[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})

	result = simpleEnvVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		if value := os.Getenv(match[1:]); value != "" {
			return value
		}
		return match
	})

	return result
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	if configFile, ok := findConfigFile(searchPaths); ok {
		return configFile, nil
	}
	return "", rperrors.NotFound("config.FindConfigFile", "no config file found")
}

func findConfigFile(searchPaths []string) (string, bool) {
	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, true
				}
			}
		}
	}
	return "", false
}
