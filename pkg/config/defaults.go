package config

import "time"

// Default values applied to any field left unset.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultDatabasePath = "./data/fedfs.db"
	DefaultContentPath  = "./data/content"

	DefaultCacheTTL        = time.Minute
	DefaultCacheMaxEntries = 1000

	DefaultChunkThreshold = 10 * 1024 * 1024
	DefaultSessionTTL     = 12 * time.Hour

	DefaultMetricsPort = 9090

	DefaultGCInterval = 24 * time.Hour
)

// ApplyDefaults fills any missing values with the defaults above. Log level
// is lowercased so both spellings validate.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Database.Path == "" && !cfg.Database.InMemory {
		cfg.Database.Path = DefaultDatabasePath
	}

	if cfg.Content.Type == "" {
		cfg.Content.Type = "filesystem"
	}
	if cfg.Content.Type == "filesystem" && cfg.Content.Filesystem == nil {
		cfg.Content.Filesystem = map[string]any{"path": DefaultContentPath}
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}

	if cfg.Upload.ChunkThreshold == 0 {
		cfg.Upload.ChunkThreshold = DefaultChunkThreshold
	}
	if cfg.Upload.SessionTTL == 0 {
		cfg.Upload.SessionTTL = DefaultSessionTTL
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}

	if cfg.GC.Interval == 0 {
		cfg.GC.Interval = DefaultGCInterval
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].Title == "" {
			cfg.Providers[i].Title = cfg.Providers[i].Key
		}
		if cfg.Providers[i].Root == "" {
			cfg.Providers[i].Root = "user"
		}
	}
}
