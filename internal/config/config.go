package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Instagram InstagramConfig `yaml:"instagram"`
	Trends    TrendsConfig    `yaml:"trends"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GeminiConfig configures the Gemini analysis client.
type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"` // custom endpoint (optional)
	MaxAttempts int    `yaml:"max_attempts"`
}

// RefreshConfig configures the background trend refresher.
type RefreshConfig struct {
	Interval string `yaml:"interval"`
	MaxAge   string `yaml:"max_age"`
}

// ParseInterval returns the refresh interval as time.Duration.
func (r RefreshConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(r.Interval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ParseMaxAge returns the trend staleness threshold as time.Duration.
func (r RefreshConfig) ParseMaxAge() time.Duration {
	d, err := time.ParseDuration(r.MaxAge)
	if err != nil {
		return time.Hour
	}
	return d
}

// InstagramConfig configures the profile fetcher.
type InstagramConfig struct {
	UserAgent string `yaml:"user_agent"`
	NumPosts  int    `yaml:"num_posts"`
}

// TrendsConfig configures live trend sources. When no feeds are
// configured, only the built-in fallback list is available.
type TrendsConfig struct {
	Feeds []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./instatrend.db"},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-1.5-flash",
			MaxAttempts: 3,
		},
		Refresh: RefreshConfig{
			Interval: "30m",
			MaxAge:   "1h",
		},
		Instagram: InstagramConfig{
			NumPosts: 3,
		},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
// A .env file in the working directory is honored if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INSTATREND_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}
