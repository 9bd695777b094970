package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/offer-finder/internal/scoring"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Search   SearchConfig   `yaml:"search"`
	Scoring  scoring.Config `yaml:"scoring"`
	Networks NetworksConfig `yaml:"networks"`
	Currency CurrencyConfig `yaml:"currency"`
	Redis    RedisConfig    `yaml:"redis"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	return c.Host
}

// SearchConfig controls the fan-out
type SearchConfig struct {
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	ResultLimit           int `yaml:"result_limit"` // offers requested per network
}

// RequestTimeout returns the per-network deadline
func (c SearchConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// NetworksConfig holds per-network credentials and settings
type NetworksConfig struct {
	Impact       ImpactConfig       `yaml:"impact"`
	CJ           CJConfig           `yaml:"cj"`
	Awin         AwinConfig         `yaml:"awin"`
	Partnerstack PartnerstackConfig `yaml:"partnerstack"`
	Affbank      AffbankConfig      `yaml:"affbank"`
	Marketplace  MarketplaceConfig  `yaml:"impact_marketplace"`
}

// ImpactConfig holds Impact.com API configuration
type ImpactConfig struct {
	AccountSID         string `yaml:"account_sid"`
	AuthToken          string `yaml:"auth_token"`
	BaseURL            string `yaml:"base_url"`
	PageSize           int    `yaml:"page_size"`
	MaxPages           int    `yaml:"max_pages"`
	MaxRetries         int    `yaml:"max_retries"` // negative disables retries
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"` // 0 = unlimited; needs redis
}

// Timeout returns the HTTP timeout as a duration
func (c ImpactConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CJConfig holds Commission Junction credentials
type CJConfig struct {
	APIKey string `yaml:"api_key"`
}

// AwinConfig holds Awin credentials
type AwinConfig struct {
	APIKey      string `yaml:"api_key"`
	PublisherID string `yaml:"publisher_id"`
}

// PartnerstackConfig holds Partnerstack credentials
type PartnerstackConfig struct {
	APIKey string `yaml:"api_key"`
}

// AffbankConfig holds the public directory scraper settings
type AffbankConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the HTTP timeout as a duration
func (c AffbankConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MarketplaceConfig holds the Impact program directory scraper settings
type MarketplaceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	MaxPages       int    `yaml:"max_pages"`
	PageDelayMS    int    `yaml:"page_delay_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the HTTP timeout as a duration
func (c MarketplaceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PageDelay returns the pause between directory pages
func (c MarketplaceConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

// CurrencyConfig overrides the built-in FX table (units of USD per unit)
type CurrencyConfig struct {
	Rates map[string]float64 `yaml:"rates"`
}

// RedisConfig holds the connection used for request budgets
type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty disables rate limiting
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// ExportConfig holds CSV upload settings
type ExportConfig struct {
	S3Bucket  string `yaml:"s3_bucket"` // empty disables uploads
	S3Prefix  string `yaml:"s3_prefix"`
	S3Region  string `yaml:"s3_region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Search.RequestTimeoutSeconds == 0 {
		cfg.Search.RequestTimeoutSeconds = 30
	}
	if cfg.Search.ResultLimit == 0 {
		cfg.Search.ResultLimit = 50
	}

	// Zero ceilings fall back inside scoring.New; only fill what is unset so
	// a partial scoring block keeps its explicit values.
	def := scoring.DefaultConfig()
	if cfg.Scoring.EPCCeiling == 0 {
		cfg.Scoring.EPCCeiling = def.EPCCeiling
	}
	if cfg.Scoring.FlatCeiling == 0 {
		cfg.Scoring.FlatCeiling = def.FlatCeiling
	}
	if cfg.Scoring.PercentCeiling == 0 {
		cfg.Scoring.PercentCeiling = def.PercentCeiling
	}
	if cfg.Scoring.ConversionCeiling == 0 {
		cfg.Scoring.ConversionCeiling = def.ConversionCeiling
	}

	if cfg.Networks.Impact.BaseURL == "" {
		cfg.Networks.Impact.BaseURL = "https://api.impact.com"
	}
	if cfg.Networks.Impact.PageSize == 0 {
		cfg.Networks.Impact.PageSize = 100
	}
	if cfg.Networks.Impact.MaxPages == 0 {
		cfg.Networks.Impact.MaxPages = 10
	}
	if cfg.Networks.Impact.MaxRetries == 0 {
		cfg.Networks.Impact.MaxRetries = 1
	}
	if cfg.Networks.Impact.TimeoutSeconds == 0 {
		cfg.Networks.Impact.TimeoutSeconds = 20
	}
	if cfg.Networks.Affbank.BaseURL == "" {
		cfg.Networks.Affbank.BaseURL = "https://affbank.com"
	}
	if cfg.Networks.Affbank.TimeoutSeconds == 0 {
		cfg.Networks.Affbank.TimeoutSeconds = 10
	}
	if cfg.Networks.Marketplace.BaseURL == "" {
		cfg.Networks.Marketplace.BaseURL = "https://affi.io"
	}
	if cfg.Networks.Marketplace.MaxPages == 0 {
		cfg.Networks.Marketplace.MaxPages = 10
	}
	if cfg.Networks.Marketplace.PageDelayMS == 0 {
		cfg.Networks.Marketplace.PageDelayMS = 500
	}
	if cfg.Networks.Marketplace.TimeoutSeconds == 0 {
		cfg.Networks.Marketplace.TimeoutSeconds = 15
	}

	if cfg.Export.S3Region == "" {
		cfg.Export.S3Region = "us-east-1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS. A missing
// config file is not an error: env-only deployments start from defaults.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	// Network credentials
	if v := os.Getenv("IMPACT_ACCOUNT_SID"); v != "" {
		cfg.Networks.Impact.AccountSID = v
	}
	if v := os.Getenv("IMPACT_AUTH_TOKEN"); v != "" {
		cfg.Networks.Impact.AuthToken = v
	}
	if v := os.Getenv("IMPACT_BASE_URL"); v != "" {
		cfg.Networks.Impact.BaseURL = v
	}
	if v := os.Getenv("CJ_API_KEY"); v != "" {
		cfg.Networks.CJ.APIKey = v
	}
	if v := os.Getenv("AWIN_API_KEY"); v != "" {
		cfg.Networks.Awin.APIKey = v
	}
	if v := os.Getenv("AWIN_PUBLISHER_ID"); v != "" {
		cfg.Networks.Awin.PublisherID = v
	}
	if v := os.Getenv("PARTNERSTACK_API_KEY"); v != "" {
		cfg.Networks.Partnerstack.APIKey = v
	}
	if v := os.Getenv("AFFBANK_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Networks.Affbank.Enabled = enabled
		}
	}
	if v := os.Getenv("IMPACT_MARKETPLACE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Networks.Marketplace.Enabled = enabled
		}
	}

	// Infrastructure
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
	}
	if v := os.Getenv("EXPORT_S3_PREFIX"); v != "" {
		cfg.Export.S3Prefix = v
	}
	if v := os.Getenv("EXPORT_S3_REGION"); v != "" {
		cfg.Export.S3Region = v
	}

	// Server and logging
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
