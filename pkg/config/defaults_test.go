package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("Expected default CORS origins [*], got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.MaxUploadBytes != 100<<20 {
		t.Errorf("Expected default max upload 100MB, got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Server.LoginRate.PerMinute != 5 || cfg.Server.LoginRate.Burst != 3 {
		t.Errorf("Expected default login rate 5/min burst 3, got %+v", cfg.Server.LoginRate)
	}
}

func TestApplyDefaults_LoginRateExplicitBurstKept(t *testing.T) {
	cfg := &Config{Server: ServerConfig{LoginRate: LoginRateConfig{Burst: 10}}}
	ApplyDefaults(cfg)

	if cfg.Server.LoginRate.PerMinute != 0 || cfg.Server.LoginRate.Burst != 10 {
		t.Errorf("Expected partial login rate to be kept, got %+v", cfg.Server.LoginRate)
	}
}

func TestApplyDefaults_Metadata(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Metadata.Type != "memory" {
		t.Errorf("Expected default metadata type 'memory', got %q", cfg.Metadata.Type)
	}
	if cfg.Metadata.Memory["seed"] != true {
		t.Errorf("Expected memory backend seeded by default, got %v", cfg.Metadata.Memory["seed"])
	}
	latency, ok := cfg.Metadata.Memory["latency"].(map[string]any)
	if !ok {
		t.Fatalf("Expected latency map, got %T", cfg.Metadata.Memory["latency"])
	}
	if latency["load"] != "500ms" || latency["upload"] != "1s" {
		t.Errorf("Expected demo latencies, got %v", latency)
	}
	if cfg.Metadata.Badger["db_path"] != "/tmp/rmshelf-metadata" {
		t.Errorf("Expected default badger path, got %v", cfg.Metadata.Badger["db_path"])
	}
}

func TestApplyDefaults_MetadataKeepsExplicitValues(t *testing.T) {
	cfg := &Config{Metadata: MetadataConfig{
		Type:   "badger",
		Memory: map[string]any{"seed": false},
	}}
	ApplyDefaults(cfg)

	if cfg.Metadata.Type != "badger" {
		t.Errorf("Expected type 'badger' to be kept, got %q", cfg.Metadata.Type)
	}
	if cfg.Metadata.Memory["seed"] != false {
		t.Errorf("Expected seed=false to be kept, got %v", cfg.Metadata.Memory["seed"])
	}
}

func TestApplyDefaults_Content(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Content.Type != "memory" {
		t.Errorf("Expected default content type 'memory', got %q", cfg.Content.Type)
	}
	if path := cfg.Content.Filesystem["path"]; path != "/tmp/rmshelf-content" {
		t.Errorf("Expected default filesystem path '/tmp/rmshelf-content', got %v", path)
	}
	if prefix := cfg.Content.S3["key_prefix"]; prefix != "documents/" {
		t.Errorf("Expected default S3 key prefix 'documents/', got %v", prefix)
	}
}

func TestApplyDefaults_Session(t *testing.T) {
	isolateConfigDir(t)
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Session.Storage.Type != "file" {
		t.Errorf("Expected default session storage 'file', got %q", cfg.Session.Storage.Type)
	}
	path, _ := cfg.Session.Storage.File["path"].(string)
	if path == "" || path[len(path)-len("session.json"):] != "session.json" {
		t.Errorf("Expected session.json under the config dir, got %q", path)
	}
	if cfg.Session.Email != "user@example.com" {
		t.Errorf("Expected default email, got %q", cfg.Session.Email)
	}
	if cfg.Session.SyncVersion != "1.5" {
		t.Errorf("Expected default sync version '1.5', got %q", cfg.Session.SyncVersion)
	}
}

func TestApplyDefaults_GCAndMetrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.GC.Interval != time.Hour || cfg.GC.BatchSize != 1000 {
		t.Errorf("Expected gc defaults 1h/1000, got %v/%d", cfg.GC.Interval, cfg.GC.BatchSize)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}
