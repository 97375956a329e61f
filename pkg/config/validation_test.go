package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_StructTags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"content type", func(c *Config) { c.Content.Type = "tape" }},
		{"metadata type", func(c *Config) { c.Metadata.Type = "postgres" }},
		{"session storage type", func(c *Config) { c.Session.Storage.Type = "cookie" }},
		{"session email", func(c *Config) { c.Session.Email = "not-an-email" }},
		{"short token secret", func(c *Config) { c.Session.TokenSecret = "short" }},
		{"shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }},
		{"negative login rate", func(c *Config) { c.Server.LoginRate.PerMinute = -1 }},
		{"empty cors origin", func(c *Config) { c.Server.CORSOrigins = []string{""} }},
		{"upload limit", func(c *Config) { c.Server.MaxUploadBytes = -1 }},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			if err := Validate(cfg); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestValidate_ListenAddress(t *testing.T) {
	tests := []struct {
		listen string
		valid  bool
	}{
		{":8080", true},
		{"127.0.0.1:8080", true},
		{"[::1]:8080", true},
		{"8080", false},
		{":http", false},
		{":0", true},
		{"127.0.0.1:0", true},
		{":-1", false},
		{":70000", false},
	}

	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Server.Listen = tt.listen

			err := Validate(cfg)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be valid, got: %v", tt.listen, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to be rejected", tt.listen)
			}
		})
	}
}

func TestValidate_Locale(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sort.Locale = "not a locale!"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for malformed locale")
	}
	if !strings.Contains(err.Error(), "sort.locale") {
		t.Errorf("Expected sort.locale error, got: %v", err)
	}
}

func TestValidate_MetricsPortConflict(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 8080

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for metrics port clash")
	}
	if !strings.Contains(err.Error(), "metrics.port") {
		t.Errorf("Expected metrics.port error, got: %v", err)
	}

	// The clash does not matter while metrics are disabled
	cfg.Metrics.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected disabled metrics to skip the port check, got: %v", err)
	}
}

func TestValidate_GCInterval(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.GC.Enabled = true
	cfg.GC.Interval = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for enabled gc without interval")
	}
}
