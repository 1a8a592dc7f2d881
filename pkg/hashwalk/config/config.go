// Package config loads hashwalk configuration from file, environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Defaults applied when neither config file nor environment provide a value.
const (
	DefaultDigest       = "md5"
	DefaultMaxOpenFiles = 128
)

// DefaultFileWorkers returns the default hashing pool size.
func DefaultFileWorkers() int {
	return runtime.NumCPU()
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// CacheConfig configures the persistent digest cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Empty means DefaultCachePath()
}

// Config represents the application configuration.
type Config struct {
	Digest       string `mapstructure:"digest"`
	MaxOpenFiles int64  `mapstructure:"max_open_files"`
	Workers      struct {
		File int `mapstructure:"file"`
	} `mapstructure:"workers"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/hashwalk/config.yaml
//   - $HOME/.config/hashwalk/config.yaml
//
// Environment variables are prefixed with HASHWALK_ (e.g., HASHWALK_DIGEST).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "hashwalk"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "hashwalk"))

	v.SetEnvPrefix("HASHWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals a configuration from an already-configured viper
// instance. The CLI uses this with its flag-bound viper so that command-line
// flags override file and environment values.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults registers every default on the given viper instance. Shared
// between Load and the CLI's flag-bound viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("digest", DefaultDigest)
	v.SetDefault("max_open_files", DefaultMaxOpenFiles)
	v.SetDefault("workers.file", DefaultFileWorkers())

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // Empty means DefaultCachePath()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath()
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", map[string]string{
		"engine": "info",
		"walker": "warn",
		"cache":  "info",
		"watch":  "info",
		"cli":    "info",
	})
}

// DefaultCachePath returns the default digest cache directory.
// It uses $XDG_CACHE_HOME/hashwalk/digests.
func DefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, "hashwalk", "digests")
}
