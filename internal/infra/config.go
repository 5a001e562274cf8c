package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Values from the config file can be
// overridden through CRYPTOCHANGE_* environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Price struct {
			URL                string `yaml:"url"`
			TimeoutSec         int    `yaml:"timeout_sec"`
			RefreshIntervalSec int    `yaml:"refresh_interval_sec"`
			UserAgent          string `yaml:"user_agent"`
		} `yaml:"price"`
	} `yaml:"api"`

	Storage struct {
		Backend string `yaml:"backend"` // "sqlite" or "redis"
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns the built-in settings used when no config file exists.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "crypto-change"
	cfg.App.Version = "1.0"
	cfg.API.Price.URL = "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin,litecoin,monero&vs_currencies=usd"
	cfg.API.Price.TimeoutSec = 8
	cfg.API.Price.RefreshIntervalSec = 180
	cfg.API.Price.UserAgent = "CurrencyConverter/1.0"
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.Redis.Addr = "localhost:6379"
	cfg.Server.Addr = "localhost:8080"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads and parses the config file. A missing file is not an
// error: the built-in defaults are used so the app works on first run.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.Price.URL == "" || (!hasPrefix(c.API.Price.URL, "http://") && !hasPrefix(c.API.Price.URL, "https://")) {
		return fmt.Errorf("invalid price API URL: %s", c.API.Price.URL)
	}
	if c.API.Price.TimeoutSec <= 0 {
		return fmt.Errorf("price API timeout must be positive")
	}
	if c.API.Price.RefreshIntervalSec <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Storage.Backend != "sqlite" && c.Storage.Backend != "redis" {
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.Backend == "redis" && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("redis backend requires an address")
	}
	return nil
}

// RefreshInterval returns the price refresh period as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.API.Price.RefreshIntervalSec) * time.Second
}

// FetchTimeout returns the bound on a single price API call.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.API.Price.TimeoutSec) * time.Second
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over file values.
// Environment takes precedence so deployments can avoid editing files.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("CRYPTOCHANGE_PRICE_URL"); v != "" {
		cfg.API.Price.URL = v
	}
	if v := os.Getenv("CRYPTOCHANGE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("CRYPTOCHANGE_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("CRYPTOCHANGE_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("CRYPTOCHANGE_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CRYPTOCHANGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
