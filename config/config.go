// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/coshare/coshare-backend/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// RateLimitPerMinute caps analytics requests per client IP. 0 disables the limiter.
	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE" yaml:"rate_limit_per_minute"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers are
	// believed. Empty means the client IP is always the connection's peer.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	ConnMaxLife    string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for pgxpool and golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// AdvisoryConfig holds configuration for the external advisory (text generation) service.
type AdvisoryConfig struct {
	// Enabled toggles whether the advisory service is consulted before the deterministic engine.
	Enabled bool `mapstructure:"ENABLED" yaml:"enabled"`
	// BaseURL is the root of the advisory service API.
	BaseURL string `mapstructure:"BASE_URL" yaml:"base_url"`
	APIKey  string `mapstructure:"API_KEY" yaml:"api_key"`
	Model   string `mapstructure:"MODEL" yaml:"model"`
	// TimeoutSeconds bounds a single advisory call. There is no retry.
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
	// CacheTTLSeconds controls how long successful advisory answers are cached in Redis; 0 disables caching.
	CacheTTLSeconds int `mapstructure:"CACHE_TTL_SECONDS" yaml:"cache_ttl_seconds"`
}

// Timeout returns the per-call timeout as a duration.
func (c AdvisoryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the advisory cache TTL as a duration.
func (c AdvisoryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// AnalyticsConfig holds the windows the analytics engine is fed with.
type AnalyticsConfig struct {
	FairnessWindowDays    int `mapstructure:"FAIRNESS_WINDOW_DAYS" yaml:"fairness_window_days"`
	ForecastLookbackDays  int `mapstructure:"FORECAST_LOOKBACK_DAYS" yaml:"forecast_lookback_days"`
	CostLookbackMonths    int `mapstructure:"COST_LOOKBACK_MONTHS" yaml:"cost_lookback_months"`
	BookingHorizonDays    int `mapstructure:"BOOKING_HORIZON_DAYS" yaml:"booking_horizon_days"`
	MaxBookingSuggestions int `mapstructure:"MAX_BOOKING_SUGGESTIONS" yaml:"max_booking_suggestions"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server    ServerConfig    `mapstructure:"SERVER" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"DATABASE" yaml:"database"`
	Redis     RedisConfig     `mapstructure:"REDIS" yaml:"redis"`
	Advisory  AdvisoryConfig  `mapstructure:"ADVISORY" yaml:"advisory"`
	Analytics AnalyticsConfig `mapstructure:"ANALYTICS" yaml:"analytics"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// applies defaults, unmarshals the configuration and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "coshare_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 10)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 5)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("ADVISORY.ENABLED", false)
	v.SetDefault("ADVISORY.BASE_URL", "https://api.openai.com")
	v.SetDefault("ADVISORY.API_KEY", "")
	v.SetDefault("ADVISORY.MODEL", "gpt-4o-mini")
	v.SetDefault("ADVISORY.TIMEOUT_SECONDS", 20)
	v.SetDefault("ADVISORY.CACHE_TTL_SECONDS", 900)
	v.SetDefault("ANALYTICS.FAIRNESS_WINDOW_DAYS", 90)
	v.SetDefault("ANALYTICS.FORECAST_LOOKBACK_DAYS", 120)
	v.SetDefault("ANALYTICS.COST_LOOKBACK_MONTHS", 12)
	v.SetDefault("ANALYTICS.BOOKING_HORIZON_DAYS", 7)
	v.SetDefault("ANALYTICS.MAX_BOOKING_SUGGESTIONS", 5)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.VERSION", "VERSION"},
		{"SERVER.RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_PER_MINUTE"},
		{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
		// Database config
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"DATABASE.MAX_CONNECTIONS", "DB_MAX_CONNECTIONS"},
		// Redis config
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		// Advisory config
		{"ADVISORY.ENABLED", "ADVISORY_ENABLED"},
		{"ADVISORY.BASE_URL", "ADVISORY_BASE_URL"},
		{"ADVISORY.API_KEY", "ADVISORY_API_KEY"},
		{"ADVISORY.MODEL", "ADVISORY_MODEL"},
		{"ADVISORY.TIMEOUT_SECONDS", "ADVISORY_TIMEOUT_SECONDS"},
		{"ADVISORY.CACHE_TTL_SECONDS", "ADVISORY_CACHE_TTL_SECONDS"},
		// Analytics config
		{"ANALYTICS.FAIRNESS_WINDOW_DAYS", "ANALYTICS_FAIRNESS_WINDOW_DAYS"},
		{"ANALYTICS.FORECAST_LOOKBACK_DAYS", "ANALYTICS_FORECAST_LOOKBACK_DAYS"},
		{"ANALYTICS.COST_LOOKBACK_MONTHS", "ANALYTICS_COST_LOOKBACK_MONTHS"},
		{"ANALYTICS.BOOKING_HORIZON_DAYS", "ANALYTICS_BOOKING_HORIZON_DAYS"},
		{"ANALYTICS.MAX_BOOKING_SUGGESTIONS", "ANALYTICS_MAX_BOOKING_SUGGESTIONS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"serverPort", v.GetString("SERVER.PORT"),
		"dbHost", v.GetString("DATABASE.HOST"),
		"advisoryEnabled", v.GetBool("ADVISORY.ENABLED"),
		"advisoryBaseUrl", v.GetString("ADVISORY.BASE_URL"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg, log); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config, log *zap.SugaredLogger) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit per minute must not be negative")
	}
	for _, proxy := range cfg.Server.TrustedProxies {
		if !isIPOrCIDR(proxy) {
			return fmt.Errorf("invalid trusted proxy '%s'", proxy)
		}
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if err := validateAdvisoryConfig(&cfg.Advisory, log); err != nil {
		return err
	}

	return validateAnalyticsConfig(&cfg.Analytics)
}

// validateAdvisoryConfig validates the advisory service configuration.
// If enabled but missing an API key, it auto-disables the service with a warning.
func validateAdvisoryConfig(cfg *AdvisoryConfig, log *zap.SugaredLogger) error {
	if !cfg.Enabled {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return fmt.Errorf("invalid advisory base URL: %w", err)
	}

	if cfg.APIKey == "" {
		log.Warn("Advisory API key not set, auto-disabling advisory service")
		cfg.Enabled = false
		return nil
	}

	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("advisory timeout must be positive")
	}
	if cfg.CacheTTLSeconds < 0 {
		return fmt.Errorf("advisory cache TTL cannot be negative")
	}

	log.Infow("Advisory service enabled",
		"model", cfg.Model,
		"apiKey", logger.MaskSensitiveString(cfg.APIKey, 3, 4))
	return nil
}

func validateAnalyticsConfig(cfg *AnalyticsConfig) error {
	if cfg.FairnessWindowDays <= 0 {
		return fmt.Errorf("fairness window days must be positive")
	}
	if cfg.ForecastLookbackDays <= 0 {
		return fmt.Errorf("forecast lookback days must be positive")
	}
	if cfg.CostLookbackMonths <= 0 {
		return fmt.Errorf("cost lookback months must be positive")
	}
	if cfg.BookingHorizonDays <= 0 {
		return fmt.Errorf("booking horizon days must be positive")
	}
	if cfg.MaxBookingSuggestions <= 0 {
		return fmt.Errorf("max booking suggestions must be positive")
	}
	return nil
}

func isIPOrCIDR(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(s)
	return err == nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
