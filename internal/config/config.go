// Package config provides YAML-based configuration loading for agentline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level agentline configuration, loaded from config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Wassenger WassengerConfig `yaml:"wassenger"`
	Backend   BackendConfig   `yaml:"backend"`
	Notify    NotifyConfig    `yaml:"notify"`
	Intent    IntentConfig    `yaml:"intent"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
}

// ServerConfig holds settings for the webhook HTTP server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// DatabaseConfig holds connection settings for the session database.
// Driver "mysql" uses host/port/name; driver "sqlite" uses path.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
}

// WassengerConfig holds credentials for the Wassenger WhatsApp API.
type WassengerConfig struct {
	APIURL      string `yaml:"api_url"`
	APIKey      string `yaml:"api_key"`
	DeviceID    string `yaml:"device_id"`
	VerifyToken string `yaml:"verify_token"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// BackendConfig holds settings for the insurance backend API.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// NotifyConfig selects the ops-notification platform. An empty platform
// disables notifications entirely.
type NotifyConfig struct {
	Platform string `yaml:"platform"` // "slack", "discord" or ""
	Token    string `yaml:"token"`
	Channel  string `yaml:"channel"`
}

// IntentConfig configures the optional AI intent classifier. Leaving the
// API key empty disables intent shortcutting.
type IntentConfig struct {
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// SweeperConfig configures the idle-session sweeper.
type SweeperConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Cron      string `yaml:"cron"`
	IdleHours int    `yaml:"idle_hours"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BackendTimeout returns the bounded timeout for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}

// WassengerTimeout returns the bounded timeout for outbound message sends.
func (c *Config) WassengerTimeout() time.Duration {
	return time.Duration(c.Wassenger.TimeoutSec) * time.Second
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "agentline"
	}
	if c.Database.Path == "" {
		c.Database.Path = "agentline.db"
	}
	if c.Wassenger.APIURL == "" {
		c.Wassenger.APIURL = "https://api.wassenger.com/v1/messages"
	}
	if c.Wassenger.TimeoutSec == 0 {
		c.Wassenger.TimeoutSec = 10
	}
	if c.Backend.TimeoutSec == 0 {
		c.Backend.TimeoutSec = 10
	}
	if c.Intent.Model == "" {
		c.Intent.Model = "claude-haiku-4-5"
	}
	if c.Intent.MinConfidence == 0 {
		c.Intent.MinConfidence = 0.7
	}
	if c.Sweeper.Cron == "" {
		c.Sweeper.Cron = "0 3 * * *"
	}
	if c.Sweeper.IdleHours == 0 {
		c.Sweeper.IdleHours = 72
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, sqlite)", c.Database.Driver))
	}
	if c.Wassenger.APIKey == "" {
		errs = append(errs, "wassenger.api_key is required")
	}
	if c.Wassenger.DeviceID == "" {
		errs = append(errs, "wassenger.device_id is required")
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	switch c.Notify.Platform {
	case "", "slack", "discord":
		if c.Notify.Platform != "" && c.Notify.Token == "" {
			errs = append(errs, "notify.token is required when notify.platform is set")
		}
		if c.Notify.Platform != "" && c.Notify.Channel == "" {
			errs = append(errs, "notify.channel is required when notify.platform is set")
		}
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q is not supported (slack, discord)", c.Notify.Platform))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
