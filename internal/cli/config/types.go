// Package config provides configuration management for the lexo CLI.
//
// Values are layered with koanf: built-in defaults, then lexo.yaml, then
// LEXO_* environment variables, then explicitly set command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/lexo-astro/lexo/internal/archive"
)

// Defaults.
const (
	DefaultOutput      = "auto"
	DefaultLogLevel    = "warn"
	DefaultWorkers     = 4
	DefaultCacheTTL    = 30 * 24 * time.Hour
	DefaultHTTPTimeout = 60 * time.Second
	DefaultArchiveURL  = archive.DefaultBaseURL

	// CacheFile is the SQLite cache file name inside the data directory.
	CacheFile = "cache.db"
	// HistoryFile is the REPL history file name inside the data directory.
	HistoryFile = "repl_history"
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir     string        `koanf:"data_dir"`
	ArchiveURL  string        `koanf:"archive_url"`
	CacheTTL    time.Duration `koanf:"cache_ttl"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`
	Offline     bool          `koanf:"offline"`
	Workers     int           `koanf:"workers"`
	Output      string        `koanf:"output"`
	Verbose     bool          `koanf:"verbose"`
	LogLevel    string        `koanf:"log_level"`
}

// CachePath returns the SQLite cache location.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, CacheFile)
}

// HistoryPath returns the REPL history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, HistoryFile)
}

// DefaultDataDir returns <user cache dir>/lexo, or .lexo when the platform
// has no cache directory.
func DefaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "lexo")
	}
	return ".lexo"
}

// Default returns a Config holding only default values.
func Default() *Config {
	return &Config{
		DataDir:     DefaultDataDir(),
		ArchiveURL:  DefaultArchiveURL,
		CacheTTL:    DefaultCacheTTL,
		HTTPTimeout: DefaultHTTPTimeout,
		Workers:     DefaultWorkers,
		Output:      DefaultOutput,
		LogLevel:    DefaultLogLevel,
	}
}
