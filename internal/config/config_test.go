package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, StateBackendFile, cfg.StateBackend)
	assert.Equal(t, MergeLastWins, cfg.MergePolicy)
	assert.Equal(t, time.Hour, cfg.TimeoutDuration())
	assert.Equal(t, "kiwix-server", cfg.Handlers["kiwix"].Service)
	assert.Subset(t, cfg.Formats.Supported, cfg.Formats.Creation)
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().MaxParallel, cfg.MaxParallel)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		content := `
cache_dir = "/srv/cache"
state_backend = "sqlite"
timeout = "5m"
merge_policy = "reject"

[handlers.kiwix]
install_dir = "/srv/kiwix"
service = "kiwix"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/cache", cfg.CacheDir)
		assert.Equal(t, StateBackendSQLite, cfg.StateBackend)
		assert.Equal(t, 5*time.Minute, cfg.TimeoutDuration())
		assert.Equal(t, MergeReject, cfg.MergePolicy)
		assert.Equal(t, "/srv/kiwix", cfg.Handlers["kiwix"].InstallDir)
		assert.Equal(t, "/srv/cache/remotes", cfg.RemotesDir())
		assert.Equal(t, "/srv/cache/packages", cfg.PackagesDir())
	})

	t.Run("creation formats must be supported", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[formats]
supported = ["zip"]
creation = ["zip", "tar.zst"]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tar.zst")
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := DefaultConfig()
	cfg.CacheDir = "/tmp/cubepkg"
	cfg.Timeout = duration{2 * time.Minute}

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cubepkg", loaded.CacheDir)
	assert.Equal(t, 2*time.Minute, loaded.TimeoutDuration())
	assert.Equal(t, cfg.Formats, loaded.Formats)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"state backend": func(c *Config) { c.StateBackend = "redis" },
		"merge policy":  func(c *Config) { c.MergePolicy = "first-wins" },
		"max parallel":  func(c *Config) { c.MaxParallel = 0 },
		"retries":       func(c *Config) { c.DownloadRetries = -1 },
		"install dir":   func(c *Config) { c.Handlers["kiwix"] = HandlerConfig{} },
		"cache dir":     func(c *Config) { c.CacheDir = "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
