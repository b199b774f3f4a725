// Package config loads the devforge application configuration: discovery
// sources, cache TTL, and defaults for the init command.
//
// Configuration is resolved through viper in the usual precedence order:
// explicit file (--config), then $XDG_CONFIG_HOME/devforge/config.yaml,
// then DEVFORGE_* environment variables, then built-in defaults. The
// loaded Config is plain data; nothing in this package is a singleton.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devforge-io/devforge/internal/model"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "devforge"

	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"

	// DefaultDiscoveryTag is the tag discovery filters packages by when
	// the config does not override it.
	DefaultDiscoveryTag = "devcontainer-template"
)

// Config is the loaded application configuration.
type Config struct {
	// RemoteFeeds lists remote package-index base URLs.
	RemoteFeeds []string `mapstructure:"remote_feeds"`

	// LocalSources lists local directories scanned for package archives.
	LocalSources []string `mapstructure:"local_sources"`

	// DiscoveryTag is the required tag packages must carry to be
	// considered templates.
	DiscoveryTag string `mapstructure:"discovery_tag"`

	// CacheTTL is the discovery result cache lifetime.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// DefaultTemplate is the template used when init is called without
	// --template.
	DefaultTemplate string `mapstructure:"default_template"`

	// LogLevel is the minimum log level: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// Sources converts the configured feeds and directories into discovery
// source references, local sources first.
func (c *Config) Sources() []model.SourceRef {
	out := make([]model.SourceRef, 0, len(c.LocalSources)+len(c.RemoteFeeds))
	for _, dir := range c.LocalSources {
		out = append(out, model.SourceRef{Kind: model.SourceLocal, Location: dir})
	}
	for _, feed := range c.RemoteFeeds {
		out = append(out, model.SourceRef{Kind: model.SourceRemote, Location: feed})
	}
	return out
}

// Dir returns the devforge configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on
// macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
func Dir() (string, error) {
	var base string

	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, AppName), nil
}

// Load resolves the configuration. configFile, when non-empty, is used
// exclusively; otherwise the standard config directory is searched. A
// missing config file is not an error — defaults apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("remote_feeds", []string{})
	v.SetDefault("local_sources", []string{})
	v.SetDefault("discovery_tag", DefaultDiscoveryTag)
	v.SetDefault("cache_ttl", "24h")
	v.SetDefault("default_template", "cli")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			// Defaults apply when no config file exists; any other read
			// failure (malformed YAML, permissions) is reported.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read configuration: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.DiscoveryTag == "" {
		cfg.DiscoveryTag = DefaultDiscoveryTag
	}

	return &cfg, nil
}
