package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolateConfigDir points the default config location at a temp dir.
func isolateConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return dir
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	isolateConfigDir(t)
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

content:
  type: "filesystem"
  filesystem:
    path: "/var/lib/rmshelf"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("Expected default listen ':8080', got %q", cfg.Server.Listen)
	}
	if cfg.Content.Filesystem["path"] != "/var/lib/rmshelf" {
		t.Errorf("Expected explicit filesystem path to be kept, got %v", cfg.Content.Filesystem["path"])
	}
	if cfg.Metadata.Type != "memory" {
		t.Errorf("Expected default metadata type 'memory', got %q", cfg.Metadata.Type)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	isolateConfigDir(t)
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected default content type 'memory', got %q", cfg.Content.Type)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	isolateConfigDir(t)
	configPath := writeConfig(t, "config.yaml", `
content:
  type: "tape"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown content type")
	}
}

func TestLoad_TOML(t *testing.T) {
	isolateConfigDir(t)
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[server]
listen = "127.0.0.1:9000"

[sort]
locale = "de"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Server.Listen != "127.0.0.1:9000" {
		t.Errorf("Expected listen '127.0.0.1:9000', got %q", cfg.Server.Listen)
	}
	if cfg.Sort.Locale != "de" {
		t.Errorf("Expected locale 'de', got %q", cfg.Sort.Locale)
	}
}

func TestLoad_StoreSpecificSections(t *testing.T) {
	isolateConfigDir(t)
	configPath := writeConfig(t, "config.yaml", `
metadata:
  type: memory
  memory:
    seed: false
    latency:
      load: 10ms

session:
  storage:
    type: badger
    badger:
      in_memory: true
  email: reader@example.com

gc:
  enabled: true
  interval: 15m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Metadata.Memory["seed"] != false {
		t.Errorf("Expected seed=false to be kept, got %v", cfg.Metadata.Memory["seed"])
	}
	if cfg.Session.Storage.Type != "badger" {
		t.Errorf("Expected session storage 'badger', got %q", cfg.Session.Storage.Type)
	}
	if cfg.Session.Email != "reader@example.com" {
		t.Errorf("Expected email 'reader@example.com', got %q", cfg.Session.Email)
	}
	if cfg.Session.SyncVersion != "1.5" {
		t.Errorf("Expected default sync version '1.5', got %q", cfg.Session.SyncVersion)
	}
	if !cfg.GC.Enabled || cfg.GC.Interval != 15*time.Minute {
		t.Errorf("Expected gc enabled every 15m, got enabled=%t interval=%v", cfg.GC.Enabled, cfg.GC.Interval)
	}
	if cfg.GC.BatchSize != 1000 {
		t.Errorf("Expected default gc batch size 1000, got %d", cfg.GC.BatchSize)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected default content type 'memory', got %q", cfg.Content.Type)
	}
	if cfg.Session.Storage.Type != "file" {
		t.Errorf("Expected default session storage 'file', got %q", cfg.Session.Storage.Type)
	}
	if cfg.Sort.Locale != "en" {
		t.Errorf("Expected default locale 'en', got %q", cfg.Sort.Locale)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.GC.Enabled {
		t.Error("Expected gc disabled by default")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	isolateConfigDir(t)
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir := GetConfigDir()
	if dir != filepath.Join(xdg, "rmshelf") {
		t.Errorf("Expected %q, got %q", filepath.Join(xdg, "rmshelf"), dir)
	}
}

func TestConfigExists(t *testing.T) {
	isolateConfigDir(t)

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	isolateConfigDir(t)
	t.Setenv("RMSHELF_LOGGING_LEVEL", "ERROR")
	t.Setenv("RMSHELF_SERVER_LISTEN", ":9100")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

server:
  listen: ":8080"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Listen != ":9100" {
		t.Errorf("Expected listen ':9100' from env var, got %q", cfg.Server.Listen)
	}
}
