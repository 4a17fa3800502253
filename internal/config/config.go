package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvAPIURL         = "CLOUDCANVAS_API_URL"
	EnvTimeoutSeconds = "CLOUDCANVAS_TIMEOUT_SECONDS"
	EnvLogLevel       = "CLOUDCANVAS_LOG_LEVEL"
)

// Config holds cloudcanvas configuration.
type Config struct {
	API      APIConfig      `toml:"api"`
	UI       UIConfig       `toml:"ui"`
	Log      LogConfig      `toml:"log"`
	Parallel ParallelConfig `toml:"parallel"`
	Cache    CacheConfig    `toml:"cache"`
}

// APIConfig points the client at a backend.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// UIConfig controls display options.
type UIConfig struct {
	Color bool `toml:"color"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error", "disabled"
}

// ParallelConfig bounds concurrent lookups (label resolution on load).
type ParallelConfig struct {
	Concurrency int `toml:"concurrency"`
}

// CacheConfig controls the on-disk component catalog cache.
type CacheConfig struct {
	Enabled    bool `toml:"enabled"`
	TTLMinutes int  `toml:"ttl_minutes"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API:      APIConfig{BaseURL: "http://localhost:8000", TimeoutSeconds: 15},
		UI:       UIConfig{Color: true},
		Log:      LogConfig{Level: "warn"},
		Parallel: ParallelConfig{Concurrency: 4},
		Cache:    CacheConfig{Enabled: true, TTLMinutes: 60},
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// CacheTTL returns the catalog cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// ConfigDir returns the cloudcanvas config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "cloudcanvas")
}

func configPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file and applies environment overrides.
// A missing or unreadable file yields the defaults.
func Load() *Config {
	cfg := LoadFile()
	ApplyEnv(cfg)
	return cfg
}

// LoadFile reads the config file without environment overrides.
func LoadFile() *Config {
	cfg := Default()
	if data, err := os.ReadFile(configPath()); err == nil {
		_ = toml.Unmarshal(data, cfg)
	}
	return cfg
}

// ApplyEnv loads an optional .env file from the working directory and
// overlays the CLOUDCANVAS_* variables onto cfg.
func ApplyEnv(cfg *Config) {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvTimeoutSeconds); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.API.TimeoutSeconds = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
