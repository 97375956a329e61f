package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/rmshelf/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns an in-memory configuration without simulated latency.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg := &config.Config{}
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Metadata.Memory = map[string]any{
		"seed":    true,
		"latency": map[string]any{},
	}
	cfg.Session.Storage.Type = "memory"
	cfg.Session.TokenSecret = "test-secret-0123456789"
	config.ApplyDefaults(cfg)
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func TestNew_MemoryStack(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.True(t, a.Store.Loaded())
	assert.Len(t, a.Store.Documents(), 5)
	assert.False(t, a.Session.IsAuthenticated())
	assert.NotNil(t, a.Collector)
	assert.Nil(t, a.Metrics.Server)
}

func TestNew_PersistentStack(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.Metadata.Type = "badger"
	cfg.Metadata.Badger = map[string]any{"db_path": filepath.Join(dir, "metadata")}
	cfg.Content.Type = "filesystem"
	cfg.Content.Filesystem = map[string]any{"path": filepath.Join(dir, "content")}
	cfg.Session.Storage.Type = "file"
	cfg.Session.Storage.File = map[string]any{"path": filepath.Join(dir, "session.json")}

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)

	_, err = a.Session.Login(ctx, "abcd1234")
	require.NoError(t, err)
	_, err = a.Store.CreateFolder(ctx, "Drafts", "/")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// session and library survive a restart
	b, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, b.Close()) })

	assert.True(t, b.Session.IsAuthenticated())
	var names []string
	for _, d := range b.Store.ListChildren("/") {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Drafts"}, names)
}

func TestNew_CorruptSessionFileStartsLoggedOut(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	cfg.Session.Storage.Type = "file"
	cfg.Session.Storage.File = map[string]any{"path": path}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.False(t, a.Session.IsAuthenticated())
	_, err = a.Session.Login(context.Background(), "abcd1234")
	assert.NoError(t, err)
}

func TestNew_InvalidStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Content.Type = "filesystem"
	cfg.Content.Filesystem = map[string]any{}

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "content store")
}

func TestRun_ServesAPIUntilCancelled(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-a.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("API did not start")
	}

	resp, err := http.Get("http://" + a.Addr() + "/healthz")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", health["status"])

	login, err := http.Post("http://"+a.Addr()+"/api/v1/session", "application/json",
		strings.NewReader(`{"device_code":"abcd1234"}`))
	require.NoError(t, err)
	_ = login.Body.Close()
	assert.Equal(t, http.StatusCreated, login.StatusCode)
	assert.True(t, a.Session.IsAuthenticated())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
