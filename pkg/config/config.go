package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the hub configuration.
type Config struct {
	// DataDir is the root of the persisted state tree.
	DataDir string `yaml:"data_dir"`

	// APIAddr is the HTTP API bind address.
	APIAddr string `yaml:"api_addr"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Bus struct {
		// HistorySize bounds the in-memory ring of recent messages.
		HistorySize int `yaml:"history_size"`

		// QueueCapacity bounds each long-poll subscription queue.
		QueueCapacity int `yaml:"queue_capacity"`

		// DefaultWaitTimeout applies to wait_for requests without an
		// explicit timeout.
		DefaultWaitTimeout time.Duration `yaml:"default_wait_timeout"`

		// SubscriptionIdleTimeout expires long-poll subscriptions nobody
		// drains.
		SubscriptionIdleTimeout time.Duration `yaml:"subscription_idle_timeout"`
	} `yaml:"bus"`

	Notifications struct {
		// DefaultTimeToLive applies to notifications published without one.
		DefaultTimeToLive time.Duration `yaml:"default_time_to_live"`
	} `yaml:"notifications"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		DataDir: "data",
		APIAddr: ":80",
	}
	cfg.Log.Level = "info"
	cfg.Bus.HistorySize = 2048
	cfg.Bus.QueueCapacity = 256
	cfg.Bus.DefaultWaitTimeout = 5 * time.Second
	cfg.Bus.SubscriptionIdleTimeout = 5 * time.Minute
	cfg.Notifications.DefaultTimeToLive = 24 * time.Hour
	return cfg
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged; a missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
