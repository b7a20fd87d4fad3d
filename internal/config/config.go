package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials guarding the admin
// endpoints (trip creation and deletion).
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the site API.
	Listen string `yaml:"listen" json:"listen"`

	// BaseURL is the public base URL of the site, used when building
	// absolute links (RSS feed items, ics download paths).
	BaseURL string `yaml:"base_url" json:"base_url"`

	// DBPath is the SQLite database file holding trips and RSVPs.
	DBPath string `yaml:"db_path" json:"db_path"`

	// StaticDir, if set, is served at / for the site pages. When empty
	// the server is API-only.
	StaticDir string `yaml:"static_dir" json:"static_dir"`

	// WeatherRefreshCron is a cron-style schedule (e.g. "*/30 * * * *")
	// for refreshing cached destination forecasts in the background.
	WeatherRefreshCron string `yaml:"weather_refresh" json:"weather_refresh"`

	// WeatherCacheMinutes is how long a fetched forecast stays fresh for
	// direct API requests.
	WeatherCacheMinutes int `yaml:"weather_cache_minutes" json:"weather_cache_minutes"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on the
	// admin endpoints. Read-only endpoints stay open.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              "127.0.0.1:8080",
		BaseURL:             "https://www.overland-eastbay.com",
		DBPath:              "./var/ebosite.db",
		StaticDir:           "",
		WeatherRefreshCron:  "*/30 * * * *",
		WeatherCacheMinutes: 10,
		BasicAuth:           nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://www.overland-eastbay.com"
	}
	// Trailing slash makes joined paths ugly; strip one if present.
	for len(c.BaseURL) > 0 && c.BaseURL[len(c.BaseURL)-1] == '/' {
		c.BaseURL = c.BaseURL[:len(c.BaseURL)-1]
	}
	if c.DBPath == "" {
		c.DBPath = "./var/ebosite.db"
	}
	if c.WeatherRefreshCron == "" {
		c.WeatherRefreshCron = "*/30 * * * *"
	}
	if c.WeatherCacheMinutes <= 0 {
		c.WeatherCacheMinutes = 10
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".ebosite-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
