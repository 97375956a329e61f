package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/rmshelf/pkg/gc"
	"github.com/spf13/viper"
)

// Config represents the complete rmshelf configuration.
//
// This structure captures all configurable aspects of the rmshelf server including:
//   - Logging configuration
//   - HTTP server settings (listen address, CORS, login rate limit)
//   - Document backend selection and configuration (store-specific)
//   - Content store selection and configuration (store-specific)
//   - Session persistence and the minted profile
//   - Name collation, orphan collection and metrics
//
// Configuration sources (in order of precedence):
//  1. Environment variables (RMSHELF_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and factory function.
// The Config struct contains type-specific sections (e.g., content.filesystem, content.s3)
// and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metadata specifies the document backend type and type-specific configuration
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Content specifies the content store type and type-specific configuration
	Content ContentConfig `mapstructure:"content" yaml:"content"`

	// Session controls where the login session is persisted
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Sort controls how document names are collated
	Sort SortConfig `mapstructure:"sort" yaml:"sort"`

	// GC controls the orphaned content collector
	GC gc.Config `mapstructure:"gc" yaml:"gc"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Listen is the host:port the API binds to (e.g. ":8080")
	Listen string `mapstructure:"listen" yaml:"listen" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// CORSOrigins lists the origins allowed to call the API ("*" allows any)
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" validate:"dive,required"`

	// MaxUploadBytes caps the size of a multipart upload request
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" validate:"gt=0"`

	// LoginRate limits login attempts per client address
	LoginRate LoginRateConfig `mapstructure:"login_rate" yaml:"login_rate"`
}

// LoginRateConfig limits login attempts per client address.
type LoginRateConfig struct {
	// PerMinute is the sustained number of attempts (0 disables limiting)
	PerMinute float64 `mapstructure:"per_minute" yaml:"per_minute" validate:"gte=0"`

	// Burst is the number of attempts allowed back to back
	Burst int `mapstructure:"burst" yaml:"burst" validate:"gte=0"`
}

// MetadataConfig specifies document backend configuration.
//
// The Type field determines which backend implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataConfig struct {
	// Type specifies which backend implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration (seed, latency)
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// ContentConfig specifies content store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: memory, filesystem, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// SessionConfig controls session persistence and the profile minted at login.
type SessionConfig struct {
	// Storage selects the key-value store holding the session entries
	Storage SessionStorageConfig `mapstructure:"storage" yaml:"storage"`

	// Email is the account address stored with the session
	Email string `mapstructure:"email" yaml:"email" validate:"required,email"`

	// SyncVersion is the sync protocol version stored with the session
	SyncVersion string `mapstructure:"sync_version" yaml:"sync_version" validate:"required"`

	// TokenSecret signs user tokens. A random secret is generated at start
	// when empty, which invalidates API tokens across restarts.
	TokenSecret string `mapstructure:"token_secret" yaml:"token_secret" validate:"omitempty,min=16"`
}

// SessionStorageConfig selects the key-value store for session entries.
type SessionStorageConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, file, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory file badger"`

	// File contains file-specific configuration (path)
	File map[string]any `mapstructure:"file" yaml:"file"`

	// Badger contains BadgerDB-specific configuration (db_path, in_memory)
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// SortConfig controls name collation.
type SortConfig struct {
	// Locale is the BCP 47 tag used to collate names (e.g. "en", "de")
	Locale string `mapstructure:"locale" yaml:"locale" validate:"required"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled starts the metrics server and Prometheus-backed collectors
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the metrics HTTP port
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RMSHELF_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use RMSHELF_ prefix and underscores
	// Example: RMSHELF_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("RMSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/rmshelf/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing file is acceptable - defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist surfaces as a PathError
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rmshelf")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "rmshelf")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
