// Package common provides shared utilities for Vire Analyst
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

// Config holds all configuration for Vire Analyst
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Market      MarketConfig  `toml:"market"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MarketConfig controls which data source is used and how indicators are derived
type MarketConfig struct {
	Provider      string `toml:"provider"`       // "yahoo" or "eodhd"
	Lookback      string `toml:"lookback"`       // "1y" or "6mo"
	ChangeBasis   string `toml:"change_basis"`   // "previous_close" or "open"
	HeadlineLimit int    `toml:"headline_limit"` // 0 disables headlines
	CacheTTL      string `toml:"cache_ttl"`
}

const (
	ProviderYahoo = "yahoo"
	ProviderEODHD = "eodhd"
)

// GetLookback returns the parsed lookback, defaulting to one year
func (c *MarketConfig) GetLookback() models.Lookback {
	if l, ok := models.ParseLookback(c.Lookback); ok {
		return l
	}
	return models.Lookback1Year
}

// GetChangeBasis returns the parsed change basis, defaulting to the previous close
func (c *MarketConfig) GetChangeBasis() models.ChangeBasis {
	if b, ok := models.ParseChangeBasis(c.ChangeBasis); ok {
		return b
	}
	return models.ChangeBasisPreviousClose
}

// GetCacheTTL parses and returns the series cache TTL
func (c *MarketConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Yahoo  YahooConfig  `toml:"yahoo"`
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// YahooConfig holds Yahoo Finance configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	SearchURL string `toml:"search_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout, 30*time.Second)
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout, 30*time.Second)
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GeminiConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout, 60*time.Second)
}

func parseTimeout(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`  // "console" or "json"
	Outputs  []string `toml:"outputs"` // "console", "file"
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Market: MarketConfig{
			Provider:      ProviderYahoo,
			Lookback:      string(models.Lookback1Year),
			ChangeBasis:   string(models.ChangeBasisPreviousClose),
			HeadlineLimit: 3,
			CacheTTL:      "5m",
		},
		Clients: ClientsConfig{
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				SearchURL: "https://query2.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "30s",
			},
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model:   "gemini-3-flash-preview",
				Timeout: "60s",
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/vire-analyst.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalize(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VIRE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("VIRE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("VIRE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("VIRE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("VIRE_MARKET_PROVIDER"); v != "" {
		config.Market.Provider = v
	}
	if v := os.Getenv("VIRE_LOOKBACK"); v != "" {
		config.Market.Lookback = v
	}
	if v := os.Getenv("VIRE_CHANGE_BASIS"); v != "" {
		config.Market.ChangeBasis = v
	}
	if v := os.Getenv("VIRE_GEMINI_MODEL"); v != "" {
		config.Clients.Gemini.Model = v
	}
}

// normalize replaces unrecognised enum values with their defaults
func normalize(config *Config) {
	provider := strings.ToLower(strings.TrimSpace(config.Market.Provider))
	if provider != ProviderYahoo && provider != ProviderEODHD {
		provider = ProviderYahoo
	}
	config.Market.Provider = provider
	config.Market.Lookback = string(config.Market.GetLookback())
	config.Market.ChangeBasis = string(config.Market.GetChangeBasis())
	if config.Market.HeadlineLimit < 0 {
		config.Market.HeadlineLimit = 0
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "VIRE_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "VIRE_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	// Environment variables take priority over the config file
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
