package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/catalog"
	"github.com/lexo-astro/lexo/internal/cli/config"
	"github.com/lexo-astro/lexo/internal/cli/output"
	"github.com/lexo-astro/lexo/internal/state"
)

// clock is the source of "now" for transit predictions.
var clock = time.Now

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Store    *state.SQLiteStore
	Catalog  *catalog.Catalog
}

// NewCommandContext opens the table cache and builds the catalog.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	cfg := cmdCtx.Cfg

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := state.Open(cmd.Context(), cfg.CachePath(), cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}

	cmdCtx.Store = store
	cmdCtx.Catalog = &catalog.Catalog{
		Store:   store,
		Client:  archive.NewClient(cfg.ArchiveURL, cfg.HTTPTimeout, cmdCtx.Logger),
		MaxAge:  cfg.CacheTTL,
		Offline: cfg.Offline,
		Now:     clock,
		Logger:  cmdCtx.Logger,
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close cache", "error", err)
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without opening the cache.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise loads defaults and environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	return config.Default()
}
