package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the client.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	Poll     PollConfig     `yaml:"poll"`
	Exporter ExporterConfig `yaml:"exporter"`
	Timezone string         `yaml:"timezone"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	AuthURL        string  `yaml:"auth_url"`
	CloudURL       string  `yaml:"cloud_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type AuthConfig struct {
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	ExpirySeconds int    `yaml:"expiry_seconds"`
}

type PollConfig struct {
	// Schedule is a cron spec; @every durations work too.
	Schedule string `yaml:"schedule"`
}

type ExporterConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file, expanding ${VAR}
// references from the environment so credentials can stay out of the
// file. GSE_EMAIL and GSE_PASSWORD environment variables override the
// file when set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overlayEnv(&config)
	config.applyDefaults()

	if config.Auth.Email == "" || config.Auth.Password == "" {
		return nil, fmt.Errorf("auth.email and auth.password are required")
	}

	return &config, nil
}

func overlayEnv(config *Config) {
	v := viper.New()
	v.SetEnvPrefix("GSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if email := v.GetString("email"); email != "" {
		config.Auth.Email = email
	}
	if password := v.GetString("password"); password != "" {
		config.Auth.Password = password
	}
}

func (c *Config) applyDefaults() {
	if c.Auth.ExpirySeconds <= 0 {
		c.Auth.ExpirySeconds = 14400
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.Poll.Schedule == "" {
		c.Poll.Schedule = "@every 30s"
	}
	if c.Exporter.Port == 0 {
		c.Exporter.Port = 9435
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// SessionExpiry returns the auth expiry as a duration.
func (c *Config) SessionExpiry() time.Duration {
	return time.Duration(c.Auth.ExpirySeconds) * time.Second
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
