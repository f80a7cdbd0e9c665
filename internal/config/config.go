package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	DKIM     DKIMConfig     `yaml:"dkim"`
	Storage  StorageConfig  `yaml:"storage"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig contains server-wide settings
type ServerConfig struct {
	Hostname string `yaml:"hostname"` // FQDN used in Message-ID and EHLO
	BaseURL  string `yaml:"base_url"` // public URL tracking links are built from
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	APIKey       string        `yaml:"api_key"` // empty = operator endpoints are open
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// SMTPConfig contains outbound relay settings
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	StartTLS bool          `yaml:"starttls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DKIMConfig contains DKIM signing settings
type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Path      string           `yaml:"path"`
	Retention *RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains delivery job retention settings
type RetentionConfig struct {
	SentMaxAge      time.Duration `yaml:"sent_max_age"` // 0 = keep forever
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DeliveryConfig contains delivery dispatcher settings
type DeliveryConfig struct {
	Workers         int           `yaml:"workers"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
	MaxRetries      int           `yaml:"max_retries"`
	ProcessInterval time.Duration `yaml:"process_interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ListenAddr    string        `yaml:"listen_addr"`
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	AllowedIPs    []string      `yaml:"allowed_ips"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.Hostname == "" {
		hostname, _ := os.Hostname()
		c.Server.Hostname = hostname
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 30 * time.Second
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 30 * time.Second
	}

	if c.DKIM.Selector == "" {
		c.DKIM.Selector = "phishguard"
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/phishguard/phishguard.db"
	}
	if c.Storage.Retention == nil {
		c.Storage.Retention = &RetentionConfig{}
	}
	if c.Storage.Retention.CleanupInterval == 0 {
		c.Storage.Retention.CleanupInterval = time.Hour
	}

	if c.Delivery.Workers == 0 {
		c.Delivery.Workers = 4
	}
	if c.Delivery.RetryInterval == 0 {
		c.Delivery.RetryInterval = 5 * time.Minute
	}
	if c.Delivery.MaxRetries == 0 {
		c.Delivery.MaxRetries = 5
	}
	if c.Delivery.ProcessInterval == 0 {
		c.Delivery.ProcessInterval = time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.FlushInterval == 0 {
		c.Metrics.FlushInterval = 10 * time.Second
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute URL: %q", c.Server.BaseURL)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	if c.DKIM.Enabled {
		if c.DKIM.Domain == "" {
			return fmt.Errorf("dkim.domain is required when DKIM is enabled")
		}
		if c.DKIM.KeyFile == "" {
			return fmt.Errorf("dkim.key_file is required when DKIM is enabled")
		}
	}

	return nil
}
