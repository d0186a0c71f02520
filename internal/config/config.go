// Package config loads the wizard's deployment configuration from YAML.
// Values of the form ${VAR} are expanded from the environment before parsing,
// so credentials stay out of the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure. It mirrors config.yaml.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	S3       S3Config       `yaml:"s3"`
	Sync     SyncConfig     `yaml:"sync"`
	Currency CurrencyConfig `yaml:"currency"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// StorageConfig selects the keyed-store backend for drafts.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file, used when Backend is "sqlite".
	Path string `yaml:"path"`

	// QuotaBytes bounds the in-memory backend. Zero selects the default.
	QuotaBytes int64 `yaml:"quota_bytes"`
}

// S3Config configures the document object store.
type S3Config struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"` // supports ${VAR}
	SecretKey     string `yaml:"secret_key"` // supports ${VAR}
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// SyncConfig tunes remote-record replication.
type SyncConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// CurrencyConfig configures price display and conversion.
type CurrencyConfig struct {
	Source   string `yaml:"source"`
	Endpoint string `yaml:"endpoint"`

	// StaticRates serves conversions without a network endpoint. Keys
	// are "FROM/TO" pairs.
	StaticRates map[string]float64 `yaml:"static_rates"`
}

// GeocodeConfig configures address auto-fill.
type GeocodeConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// CatalogConfig points at the static catalog definition.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Load reads the YAML file, expands environment variables and validates the
// result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Sync.Debounce == 0 {
		c.Sync.Debounce = 2 * time.Second
	}
	if c.Currency.Source == "" {
		c.Currency.Source = "USD"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3.endpoint is set")
	}
	return nil
}
