// Package config loads the farmctl configuration from YAML with FARMFORM_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultBaseURL      = "http://localhost:4000"
	DefaultTimeout      = 15 * time.Second
	DefaultCacheTTL     = 5 * time.Minute
	DefaultDismissAfter = 2 * time.Second
	DefaultLocale       = "es"

	dirName   = ".farmform"
	fileName  = "config.yaml"
	storeName = "farmform.db"
)

// Environment variables read by applyEnvOverrides.
const (
	EnvBaseURL       = "FARMFORM_API_BASE_URL"
	EnvTimeout       = "FARMFORM_API_TIMEOUT"
	EnvContractCheck = "FARMFORM_API_CONTRACT_CHECK"
	EnvStorePath     = "FARMFORM_STORE_PATH"
	EnvLocale        = "FARMFORM_LOCALE"
	EnvDismissAfter  = "FARMFORM_UI_DISMISS_AFTER"
	EnvLogLevel      = "FARMFORM_LOGGING_LEVEL"
	EnvLogDev        = "FARMFORM_LOGGING_DEVELOPMENT"
)

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds the farmctl settings.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Locale  string        `yaml:"locale"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL       string `yaml:"base_url"`
	Timeout       string `yaml:"timeout"`
	CacheTTL      string `yaml:"cache_ttl"`
	ContractCheck bool   `yaml:"contract_check"`
}

// StoreConfig locates the local SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// UIConfig tunes the interactive screens.
type UIConfig struct {
	DismissAfter string `yaml:"dismiss_after"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Dir returns ~/.farmform, or .farmform when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), fileName)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  DefaultBaseURL,
			Timeout:  DefaultTimeout.String(),
			CacheTTL: DefaultCacheTTL.String(),
		},
		Store:  StoreConfig{Path: filepath.Join(Dir(), storeName)},
		Locale: DefaultLocale,
		UI:     UIConfig{DismissAfter: DefaultDismissAfter.String()},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		c.API.Timeout = v
	}
	if v := os.Getenv(EnvContractCheck); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvContractCheck, err)
		}
		c.API.ContractCheck = b
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		c.Locale = v
	}
	if v := os.Getenv(EnvDismissAfter); v != "" {
		c.UI.DismissAfter = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogDev); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvLogDev, err)
		}
		c.Logging.Development = b
	}
	return nil
}

func duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetTimeout returns the HTTP timeout.
func (c *Config) GetTimeout() time.Duration {
	return duration(c.API.Timeout, DefaultTimeout)
}

// GetCacheTTL returns how long GET responses stay cached.
func (c *Config) GetCacheTTL() time.Duration {
	return duration(c.API.CacheTTL, DefaultCacheTTL)
}

// GetDismissAfter returns how long outcome modals stay up.
func (c *Config) GetDismissAfter() time.Duration {
	return duration(c.UI.DismissAfter, DefaultDismissAfter)
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api.base_url %q is not an absolute URL", ErrInvalid, c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: api.base_url scheme %q", ErrInvalid, u.Scheme)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("%w: store.path is empty", ErrInvalid)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}
