package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend" toml:"backend"`
	Channel   ChannelConfig   `yaml:"channel" toml:"channel"`
	History   HistoryConfig   `yaml:"history" toml:"history"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// BackendConfig holds the generation backend connection settings.
type BackendConfig struct {
	URL               string   `envconfig:"BACKEND_URL" default:"http://localhost:8000" yaml:"url" toml:"url"`
	WebSocketURL      string   `envconfig:"BACKEND_WS_URL" yaml:"ws_url" toml:"ws_url"`
	Timeout           Duration `envconfig:"BACKEND_TIMEOUT" default:"30s" yaml:"timeout" toml:"timeout"`
	RequestsPerSecond float64  `envconfig:"BACKEND_RPS" default:"0" yaml:"requests_per_second" toml:"requests_per_second"`
	UserID            string   `envconfig:"BACKEND_USER_ID" yaml:"user_id" toml:"user_id"`
}

// ChannelConfig holds progress channel settings.
type ChannelConfig struct {
	HandshakeTimeout Duration `envconfig:"WS_HANDSHAKE_TIMEOUT" default:"10s" yaml:"handshake_timeout" toml:"handshake_timeout"`
	IdleTimeout      Duration `envconfig:"WS_IDLE_TIMEOUT" default:"90s" yaml:"idle_timeout" toml:"idle_timeout"`
	ReadLimit        int64    `envconfig:"WS_READ_LIMIT" default:"1048576" yaml:"read_limit" toml:"read_limit"`
}

// HistoryConfig holds history cache settings.
type HistoryConfig struct {
	Limit int `envconfig:"HISTORY_LIMIT" default:"5" yaml:"limit" toml:"limit"`
}

// ServerConfig holds local control API settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8081" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" yaml:"host" toml:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds local API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration that decodes from strings like "30s" in
// environment variables, YAML and TOML alike.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads configuration from environment variables and then applies
// the file at path on top. Values present in the file win.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("invalid config: backend url is required")
	}
	if c.History.Limit < 1 {
		return fmt.Errorf("invalid config: history limit must be positive, got %d", c.History.Limit)
	}
	if c.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid config: backend rps cannot be negative")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			Timeout: Duration{30 * time.Second},
		},
		Channel: ChannelConfig{
			HandshakeTimeout: Duration{10 * time.Second},
			IdleTimeout:      Duration{90 * time.Second},
			ReadLimit:        1 << 20,
		},
		History: HistoryConfig{
			Limit: 5,
		},
		Server: ServerConfig{
			Port: "8081",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
