package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ".memcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewWatcher_NoConfigFile(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), func(*Config) {})
	require.NoError(t, err)
	assert.Nil(t, w, "nothing to watch without a project config")
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := writeProjectConfig(t, dir, "search:\n  trigram_budget: 100\n")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(dir, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("search:\n  trigram_budget: 250\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 250, cfg.Search.TrigramBudget)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatcher_KeepsRunningConfigOnInvalidEdit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := writeProjectConfig(t, dir, "search:\n  trigram_budget: 100\n")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(dir, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte(":\tnot yaml"), 0o644))

	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid config must not trigger reload, got %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "version: \"1.0\"\n")

	w, err := NewWatcher(dir, func(*Config) {})
	require.NoError(t, err)
	require.NotNil(t, w)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
