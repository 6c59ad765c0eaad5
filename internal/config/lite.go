// Package config provides configuration management for the server and the CLI.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// LiteConfig is the environment-only configuration used by the stdio MCP server
// and avisctl. It needs no database or Redis.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the feedback database and exports

	// Cache settings
	CacheMaxItems int           // Maximum evaluations held in memory
	CacheTTL      time.Duration // Evaluation cache TTL

	// Engine settings
	Locale          string // Structured record locale: en, ro
	LetterSignature string // Signature line of generated letters

	// Transport settings
	Transport string // Transport type: stdio
	HTTPPort  int    // HTTP port for the full server

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".avis-diabeto")

	return &LiteConfig{
		DataDir:         dataDir,
		CacheMaxItems:   1000,
		CacheTTL:        time.Hour,
		Locale:          string(domain.LocaleEnglish),
		LetterSignature: "Dr. Diabétologue",
		Transport:       "stdio",
		HTTPPort:        8080,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadLiteConfig loads configuration from AVIS_* environment variables.
// Unset or malformed values fall back to defaults.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("AVIS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("AVIS_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("AVIS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("AVIS_LOCALE"); v != "" {
		if l, err := domain.ParseLocale(v); err == nil {
			cfg.Locale = string(l)
		}
	}
	if v := os.Getenv("AVIS_LETTER_SIGNATURE"); v != "" {
		cfg.LetterSignature = v
	}

	if v := os.Getenv("AVIS_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("AVIS_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("AVIS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("AVIS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// Logging adapts the lite settings for the logging package.
func (c *LiteConfig) Logging() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}
