package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ankittk/taskzone/pkg/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAddr is where serve listens unless configured otherwise.
const DefaultAddr = "127.0.0.1:3550"

// Config is the contents of <home>/config.yaml after defaults and env overrides.
type Config struct {
	Addr         string        `yaml:"addr"`
	APIKey       string        `yaml:"api_key,omitempty"`
	MaxBodyBytes int64         `yaml:"max_body_bytes,omitempty"`
	Metrics      bool          `yaml:"metrics"`
	Store        StoreConfig   `yaml:"store"`
	Log          LogConfig     `yaml:"log"`
	Webhook      WebhookConfig `yaml:"webhook,omitempty"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres, memory
	DSN    string `yaml:"dsn,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// WebhookConfig enables notifications when a task enters ACTIVE.
type WebhookConfig struct {
	URL            string        `yaml:"url,omitempty"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         DefaultAddr,
		MaxBodyBytes: models.DefaultMaxRequestBodyBytes,
		Metrics:      true,
		Store:        StoreConfig{Driver: "sqlite"},
		Log:          LogConfig{Level: "info", Format: "text"},
		Webhook:      WebhookConfig{BreakerTimeout: 30 * time.Second},
	}
}

// Path returns <home>/config.yaml.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load reads <home>/config.yaml over the defaults (a missing file is not an error),
// then applies DATABASE_URL, TASKZONE_API_KEY and TASKZONE_WEBHOOK_URL from the environment.
func Load(home string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(Path(home))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", Path(home), err)
		}
	case !os.IsNotExist(err):
		return cfg, err
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Store.DSN == "" {
		cfg.Store.DSN = v
		if cfg.Store.Driver == "" || cfg.Store.Driver == "sqlite" {
			cfg.Store.Driver = "postgres"
		}
	}
	if v := os.Getenv("TASKZONE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("TASKZONE_WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = models.DefaultMaxRequestBodyBytes
	}
	return cfg, nil
}

// Save writes cfg to <home>/config.yaml.
func Save(home string, cfg Config) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(home), data, 0o600)
}

// SetAPIKey records key as api_key in <home>/config.yaml. Only the file's own
// contents are rewritten; environment overrides are not persisted.
func SetAPIKey(home, key string) error {
	cfg := Default()
	data, err := os.ReadFile(Path(home))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", Path(home), err)
		}
	case !os.IsNotExist(err):
		return err
	}
	cfg.APIKey = key
	return Save(home, cfg)
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment without
// overriding variables that are already set. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
