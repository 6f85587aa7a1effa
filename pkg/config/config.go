// Package config loads, validates and materializes the system
// configuration: the local database, content storage, cache and upload
// tuning, and the connected provider accounts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FEDFS_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Each provider type defines its own configuration shape; only the section
// matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Database configures the local database holding metadata, mappings,
	// tags and security rows.
	Database DatabaseConfig `mapstructure:"database"`

	// Content configures blob storage for internal file content and
	// upload spill.
	Content ContentConfig `mapstructure:"content"`

	// Cache tunes the per-provider read cache.
	Cache CacheConfig `mapstructure:"cache"`

	// Upload tunes chunked upload sessions.
	Upload UploadConfig `mapstructure:"upload"`

	// Metrics controls Prometheus metrics collection and the scrape
	// endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// GC controls orphaned content collection.
	GC GCConfig `mapstructure:"gc"`

	// Providers lists the connected provider accounts.
	Providers []ProviderConfig `mapstructure:"providers" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// DatabaseConfig configures the local database.
type DatabaseConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory keeps the database off disk. Tests only.
	InMemory bool `mapstructure:"in_memory"`
}

// ContentConfig specifies the blob repository type and its settings.
type ContentConfig struct {
	// Type selects the implementation: filesystem or memory.
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory"`

	// Filesystem is used when Type = "filesystem".
	Filesystem map[string]any `mapstructure:"filesystem"`
}

// CacheConfig tunes the provider read cache.
type CacheConfig struct {
	// TTL is how long a cached item or listing stays valid.
	TTL time.Duration `mapstructure:"ttl"`

	// MaxEntries bounds the cache size per provider.
	MaxEntries int `mapstructure:"max_entries"`
}

// UploadConfig tunes chunked upload sessions.
type UploadConfig struct {
	// ChunkThreshold is the size above which uploads are chunked.
	ChunkThreshold int64 `mapstructure:"chunk_threshold"`

	// SessionTTL is how long an idle session stays resumable.
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on the Prometheus registry and the scrape endpoint.
	Enabled bool `mapstructure:"enabled"`

	// Port is the scrape endpoint port.
	Port int `mapstructure:"port"`
}

// GCConfig controls orphaned content collection.
type GCConfig struct {
	// Enabled turns on periodic collection.
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often collection runs.
	Interval time.Duration `mapstructure:"interval"`

	// DryRun logs orphans without deleting them.
	DryRun bool `mapstructure:"dry_run"`

	// GracePrefixes names blob id prefixes collection never touches.
	// Unset falls back to sparing upload spill files; an explicit empty
	// list spares nothing.
	GracePrefixes []string `mapstructure:"grace_prefixes"`
}

// RateLimitConfig throttles calls against one provider backend.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained call rate, 0 for unlimited.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the bucket capacity; defaults to RequestsPerSecond.
	Burst uint `mapstructure:"burst"`
}

// ProviderConfig is one connected provider account.
type ProviderConfig struct {
	// ID is the numeric registration id, unique across providers.
	ID int `mapstructure:"id" validate:"required"`

	// Key is the provider key that prefixes federated identifiers.
	Key string `mapstructure:"key" validate:"required"`

	// Title is the display title of the provider's root folder.
	Title string `mapstructure:"title"`

	// Type selects the backend: s3 or memory.
	Type string `mapstructure:"type" validate:"required,oneof=s3 memory"`

	// Root names the tree the account mounts under: user, common or
	// virtualrooms.
	Root string `mapstructure:"root" validate:"omitempty,oneof=user common virtualrooms"`

	// Owner is the UUID of the user who connected the account.
	Owner string `mapstructure:"owner" validate:"omitempty,uuid4"`

	// RateLimit throttles calls against the backend.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// S3 is used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// Load reads, defaults and validates the configuration. An empty configPath
// falls back to $XDG_CONFIG_HOME/fedfs/config.yaml; a missing file is not
// an error and yields the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("FEDFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fedfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "fedfs")
}
