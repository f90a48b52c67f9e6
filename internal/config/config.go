package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StateBackendFile   = "file"
	StateBackendSQLite = "sqlite"

	MergeLastWins = "last-wins"
	MergeReject   = "reject"
)

type Config struct {
	CacheDir        string                   `toml:"cache_dir"`
	StateBackend    string                   `toml:"state_backend"`
	Timeout         duration                 `toml:"timeout"`
	MaxParallel     int                      `toml:"max_parallel"`
	DownloadRetries int                      `toml:"download_retries"`
	MergePolicy     string                   `toml:"merge_policy"`
	LogLevel        string                   `toml:"log_level"`
	Formats         Formats                  `toml:"formats"`
	Handlers        map[string]HandlerConfig `toml:"handlers"`
}

// Formats lists the payload formats this build reads and the ones it can
// produce. Creation is always a subset of what can still be installed.
type Formats struct {
	Supported []string `toml:"supported"`
	Creation  []string `toml:"creation"`
}

type HandlerConfig struct {
	InstallDir string `toml:"install_dir"`
	Service    string `toml:"service"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".cubepkg")

	return &Config{
		CacheDir:        filepath.Join(base, "cache"),
		StateBackend:    StateBackendFile,
		Timeout:         duration{time.Hour},
		MaxParallel:     4,
		DownloadRetries: 1,
		MergePolicy:     MergeLastWins,
		LogLevel:        "warn",
		Formats: Formats{
			Supported: []string{"zip", "tar", "tar.gz", "tar.bz2", "tar.xz", "tar.zst"},
			Creation:  []string{"zip", "tar.zst"},
		},
		Handlers: map[string]HandlerConfig{
			"kiwix": {
				InstallDir: filepath.Join(base, "kiwix"),
				Service:    "kiwix-server",
			},
		},
	}
}

// Path returns the default location of the configuration file.
func Path() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cubepkg", "config.toml")
}

// Load reads the configuration at path on top of the defaults. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = Path()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("config: cache_dir must be set")
	}

	switch c.StateBackend {
	case StateBackendFile, StateBackendSQLite:
	default:
		return fmt.Errorf("config: unknown state_backend %q", c.StateBackend)
	}

	switch c.MergePolicy {
	case MergeLastWins, MergeReject:
	default:
		return fmt.Errorf("config: unknown merge_policy %q", c.MergePolicy)
	}

	if c.MaxParallel < 1 {
		return fmt.Errorf("config: max_parallel must be at least 1")
	}

	if c.DownloadRetries < 0 {
		return fmt.Errorf("config: download_retries must not be negative")
	}

	for _, f := range c.Formats.Creation {
		if !slices.Contains(c.Formats.Supported, f) {
			return fmt.Errorf("config: creation format %q is not a supported format", f)
		}
	}

	for tag, h := range c.Handlers {
		if h.InstallDir == "" {
			return fmt.Errorf("config: handler %q has no install_dir", tag)
		}
	}

	return nil
}

func (c *Config) TimeoutDuration() time.Duration {
	return c.Timeout.Duration
}

func (c *Config) RemotesDir() string {
	return filepath.Join(c.CacheDir, "remotes")
}

func (c *Config) PackagesDir() string {
	return filepath.Join(c.CacheDir, "packages")
}

func (c *Config) ManifestsDir() string {
	return filepath.Join(c.CacheDir, "manifests")
}

func (c *Config) StateFile() string {
	return filepath.Join(c.CacheDir, "catalog.yml")
}

func (c *Config) StateDB() string {
	return filepath.Join(c.CacheDir, "catalog.db")
}

// InstalledExport is the JSON snapshot the SQLite backend keeps next to the database.
func (c *Config) InstalledExport() string {
	return filepath.Join(c.CacheDir, "installed.json")
}
