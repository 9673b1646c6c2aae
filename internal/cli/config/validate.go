package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

var outputModes = []string{"auto", "text", "markdown", "json", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if !isOutputMode(c.Output) {
		return fmt.Errorf("invalid output %q (want one of %s)", c.Output, strings.Join(outputModes, ", "))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	u, err := url.Parse(c.ArchiveURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid archive_url %q", c.ArchiveURL)
	}
	return nil
}

func isOutputMode(s string) bool {
	for _, m := range outputModes {
		if s == m {
			return true
		}
	}
	return false
}

// ParseLogLevel parses debug, info, warn or error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", s)
	}
	return level, nil
}
