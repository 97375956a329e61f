package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/rmshelf/pkg/gc"
	"github.com/marmos91/rmshelf/pkg/session"
	"github.com/marmos91/rmshelf/pkg/store/metadata/memory"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are written into the type maps so a generated
//     config file documents every option
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetadataDefaults(&cfg.Metadata)
	applyContentDefaults(&cfg.Content)
	applySessionDefaults(&cfg.Session)
	applySortDefaults(&cfg.Sort)
	applyGCDefaults(&cfg.GC)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 100 << 20 // 100MB
	}

	// Five attempts a minute with bursts of three. Only applied when both are
	// unset so "per_minute: 0" still disables limiting.
	if cfg.LoginRate.PerMinute == 0 && cfg.LoginRate.Burst == 0 {
		cfg.LoginRate.PerMinute = 5
		cfg.LoginRate.Burst = 3
	}
}

// applyMetadataDefaults sets document backend defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// The memory backend is the demo backend: seeded library, cloud-like latency
	if _, ok := cfg.Memory["seed"]; !ok {
		cfg.Memory["seed"] = true
	}
	if _, ok := cfg.Memory["latency"]; !ok {
		latency := memory.DefaultLatency()
		cfg.Memory["latency"] = map[string]any{
			"load":   latency.Load.String(),
			"create": latency.Create.String(),
			"upload": latency.Upload.String(),
			"update": latency.Update.String(),
			"delete": latency.Delete.String(),
		}
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/rmshelf-metadata"
	}
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/tmp/rmshelf-content"
	}
	if _, ok := cfg.S3["key_prefix"]; !ok {
		cfg.S3["key_prefix"] = "documents/"
	}
}

// applySessionDefaults sets session defaults.
func applySessionDefaults(cfg *SessionConfig) {
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "file"
	}
	if cfg.Storage.File == nil {
		cfg.Storage.File = make(map[string]any)
	}
	if cfg.Storage.Badger == nil {
		cfg.Storage.Badger = make(map[string]any)
	}
	if _, ok := cfg.Storage.File["path"]; !ok {
		cfg.Storage.File["path"] = filepath.Join(getConfigDir(), "session.json")
	}
	if _, ok := cfg.Storage.Badger["db_path"]; !ok {
		cfg.Storage.Badger["db_path"] = "/tmp/rmshelf-session"
	}

	if cfg.Email == "" {
		cfg.Email = session.DefaultEmail
	}
	if cfg.SyncVersion == "" {
		cfg.SyncVersion = session.DefaultSyncVersion
	}
}

// applySortDefaults sets collation defaults.
func applySortDefaults(cfg *SortConfig) {
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
}

// applyGCDefaults sets orphan collector defaults. Enabled stays false.
func applyGCDefaults(cfg *gc.Config) {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000
	}
}

// applyMetricsDefaults sets metrics defaults. Enabled stays false.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
