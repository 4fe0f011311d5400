package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the member-sync service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Mailchimp MailchimpConfig `yaml:"mailchimp"`
	Admin     AdminConfig     `yaml:"admin"`
	Import    ImportConfig    `yaml:"import"`
	Consent   ConsentConfig   `yaml:"consent"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, honoring environment overrides.
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection settings for the audit
// record store and consent ledger.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the Redis connection used by the rate limiter.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// MailchimpConfig holds credentials for the remote contact store.
type MailchimpConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	AudienceID     string `yaml:"audience_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c MailchimpConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AdminConfig holds the shared secret protecting the admin endpoints.
type AdminConfig struct {
	Secret string `yaml:"secret"`
}

// ImportConfig tunes the batch import path.
type ImportConfig struct {
	// Workers bounds concurrent row processing. 1 means sequential, which
	// keeps the error list in file order.
	Workers       int   `yaml:"workers"`
	MaxUploadSize int64 `yaml:"max_upload_size"`
}

// ConsentConfig holds consent-ledger metadata applied to new entries.
type ConsentConfig struct {
	PolicyVersion string `yaml:"policy_version"`
}

// RateLimitConfig holds the fixed-window limits for the public and admin
// surfaces. Windows are in seconds.
type RateLimitConfig struct {
	SubscribeLimit  int `yaml:"subscribe_limit"`
	SubscribeWindow int `yaml:"subscribe_window"`
	AdminLimit      int `yaml:"admin_limit"`
	AdminWindow     int `yaml:"admin_window"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Mailchimp.BaseURL == "" {
		cfg.Mailchimp.BaseURL = "https://us1.api.mailchimp.com/3.0"
	}
	if cfg.Mailchimp.TimeoutSeconds == 0 {
		cfg.Mailchimp.TimeoutSeconds = 30
	}
	if cfg.Import.Workers == 0 {
		cfg.Import.Workers = 1
	}
	if cfg.Import.MaxUploadSize == 0 {
		cfg.Import.MaxUploadSize = 10 << 20 // 10MB
	}
	if cfg.Consent.PolicyVersion == "" {
		cfg.Consent.PolicyVersion = "1.0"
	}
	if cfg.RateLimit.SubscribeLimit == 0 {
		cfg.RateLimit.SubscribeLimit = 5
	}
	if cfg.RateLimit.SubscribeWindow == 0 {
		cfg.RateLimit.SubscribeWindow = 900 // 15 minutes
	}
	if cfg.RateLimit.AdminLimit == 0 {
		cfg.RateLimit.AdminLimit = 10
	}
	if cfg.RateLimit.AdminWindow == 0 {
		cfg.RateLimit.AdminWindow = 3600
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MAILCHIMP_API_KEY"); v != "" {
		cfg.Mailchimp.APIKey = v
	}
	if v := os.Getenv("MAILCHIMP_BASE_URL"); v != "" {
		cfg.Mailchimp.BaseURL = v
	}
	if v := os.Getenv("MAILCHIMP_AUDIENCE_ID"); v != "" {
		cfg.Mailchimp.AudienceID = v
	}
	if v := os.Getenv("ADMIN_SECRET"); v != "" {
		cfg.Admin.Secret = v
	}

	return cfg, nil
}

// Validate checks that the settings required to run the server are present.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}
	if c.Mailchimp.APIKey == "" {
		return fmt.Errorf("mailchimp.api_key is required (or set MAILCHIMP_API_KEY)")
	}
	if c.Mailchimp.AudienceID == "" {
		return fmt.Errorf("mailchimp.audience_id is required (or set MAILCHIMP_AUDIENCE_ID)")
	}
	if c.Admin.Secret == "" {
		return fmt.Errorf("admin.secret is required (or set ADMIN_SECRET)")
	}
	return nil
}
