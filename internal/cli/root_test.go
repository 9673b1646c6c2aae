package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexo-astro/lexo/internal/cli/config"
	"github.com/lexo-astro/lexo/internal/cli/output"
)

func TestRootFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{
		"config", "verbose", "output", "data-dir", "archive-url",
		"cache-ttl", "http-timeout", "offline", "workers", "log-level",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %q should exist", name)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
}

func TestRootSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"version", "planet", "koi", "transits", "fetch", "tables", "find", "repl", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootLoadsConfig(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version", "--data-dir", dir, "--workers", "7", "-o", "yaml"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "lexo v"+Version)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "yaml", cfg.Output)
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"version", "--workers", "0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{"completion", shell})

			require.NoError(t, cmd.Execute())
			assert.Contains(t, buf.String(), "lexo")
		})
	}

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, cmd.Execute())
}

func TestNewLogger(t *testing.T) {
	buf := new(bytes.Buffer)

	logger, err := newLogger(buf, &config.Config{LogLevel: "warn"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger, err = newLogger(buf, &config.Config{LogLevel: "error", Verbose: true})
	require.NoError(t, err)
	logger.Debug("debug line")
	assert.Contains(t, buf.String(), "debug line")

	_, err = newLogger(buf, &config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestContextAccessorsFallBack(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, config.Default().Workers, GetConfig(ctx).Workers)
	assert.Equal(t, output.ModeAuto, GetRenderer(ctx).Mode())
}
