package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hakimbdev/items-api/internal/constants"
	"github.com/hakimbdev/items-api/internal/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file
const (
	EnvDataPath = "ITEMS_DATA_PATH"
	EnvPort     = "ITEMS_PORT"
	EnvLogLevel = "ITEMS_LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	DataPath          string `yaml:"data_path"`
	Port              int    `yaml:"port"`
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`

	// Stats cache
	WatchEnabled bool `yaml:"watch_enabled"`

	// Rate limiting for /api routes
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Pagination
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		DataPath:          constants.DefaultDataPath,
		Port:              constants.DefaultPort,
		CORSAllowedOrigin: "http://localhost:3000",
		WatchEnabled:      true,
		RateLimitRPS:      constants.DefaultRequestsPerSecond,
		RateLimitBurst:    constants.DefaultBurstSize,
		DefaultPageSize:   constants.DefaultItemsPerPage,
		MaxPageSize:       constants.MaxItemsPerPage,
		LogLevel:          "info",
		LogFormat:         logging.FormatConsole,
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if present.
// Variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDataPath); v != "" {
		c.DataPath = v
	}

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}

	return nil
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("data_path is required")
	}

	if strings.Contains(c.DataPath, "\x00") {
		return fmt.Errorf("data_path contains invalid characters")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate_limit_rps must be positive")
	}

	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1")
	}

	if c.DefaultPageSize < 1 {
		return fmt.Errorf("default_page_size must be at least 1")
	}

	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("max_page_size must be at least default_page_size")
	}

	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("log_level %q is not a valid level", c.LogLevel)
	}

	if c.LogFormat != logging.FormatConsole && c.LogFormat != logging.FormatJSON {
		return fmt.Errorf("log_format must be %q or %q", logging.FormatConsole, logging.FormatJSON)
	}

	// Validate CORS origin if provided
	if c.CORSAllowedOrigin != "" && c.CORSAllowedOrigin != "*" {
		if !strings.HasPrefix(c.CORSAllowedOrigin, "http://") && !strings.HasPrefix(c.CORSAllowedOrigin, "https://") {
			return fmt.Errorf("cors_allowed_origin must start with http:// or https:// (or be * for all origins)")
		}
	}

	return nil
}
