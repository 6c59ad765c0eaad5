package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Engine      EngineConfig    `mapstructure:"engine"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Feedback    FeedbackConfig  `mapstructure:"feedback"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig represents database connection configuration.
// Leaving Host empty disables Postgres; feedback then falls back to SQLite.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// Enabled reports whether a Postgres database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// CacheConfig represents evaluation cache configuration
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxItems      int           `mapstructure:"max_items"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	RedisURL      string        `mapstructure:"redis_url"`
	MaxRetries    int           `mapstructure:"max_retries"`
	PoolSize      int           `mapstructure:"pool_size"`
	PoolTimeout   time.Duration `mapstructure:"pool_timeout"`
	BreakerWindow time.Duration `mapstructure:"breaker_window"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// EngineConfig controls rendering of engine output
type EngineConfig struct {
	DefaultLocale   string `mapstructure:"default_locale"`
	LetterSignature string `mapstructure:"letter_signature"`
	LetterFooter    string `mapstructure:"letter_footer"`
}

// RateLimitConfig represents per-client HTTP rate limiting
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// FeedbackConfig controls the clinician feedback store
type FeedbackConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	TransportType string `mapstructure:"transport_type"`
}
