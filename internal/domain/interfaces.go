package domain

import (
	"context"
	"time"
)

// TherapyEngine evaluates a patient profile against the ordered rule catalog
type TherapyEngine interface {
	Evaluate(profile *PatientProfile, locale Locale) (*Evaluation, error)
}

// EvaluationCache stores evaluations keyed by profile fingerprint and locale
type EvaluationCache interface {
	Get(ctx context.Context, key string) (*Evaluation, bool, error)
	Set(ctx context.Context, key string, eval *Evaluation, ttl time.Duration) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetCacheConfig() *CacheConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
