package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "wikigraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchWindow())
	assert.Equal(t, 4, cfg.Search.MaxDepth)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
server:
  addr: ":9999"
search:
  maxDepth: 6
batch:
  windowMs: 250
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 6, cfg.Search.MaxDepth)
	assert.Equal(t, 250*time.Millisecond, cfg.BatchWindow())

	// Untouched sections keep their defaults
	assert.Equal(t, float64(120), cfg.Layout.LinkDistance)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
search:
  maxDepth: 99
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("WIKIGRAPH_SERVER_ADDR", ":7777")
	t.Setenv("WIKIGRAPH_BATCH_WINDOW_MS", "100")

	path := writeConfig(t, t.TempDir(), `
server:
  addr: ":9999"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, 100*time.Millisecond, cfg.BatchWindow())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
server:
  addr: ":8081"
`)

	watcher, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	watcher.Start()
	defer watcher.Stop()

	reloaded := make(chan Config, 1)
	watcher.OnChange(func(cfg Config) { reloaded <- cfg })

	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":8082\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ":8082", cfg.Server.Addr)
		assert.Equal(t, ":8082", watcher.Current().Server.Addr)
	case <-time.After(3 * time.Second):
		t.Fatal("reload did not fire")
	}
}

func TestWatcherKeepsCurrentOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
server:
  addr: ":8081"
`)

	watcher, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)

	// Feed the reload path an invalid file directly; the live config survives
	require.NoError(t, os.WriteFile(path, []byte("search:\n  maxDepth: 99\n"), 0o644))
	watcher.reload()

	assert.Equal(t, ":8081", watcher.Current().Server.Addr)
	assert.Equal(t, 4, watcher.Current().Search.MaxDepth)
}
