// Package cli implements the fuda command-line interface. Every command is a
// thin consumer of the engine: open a handle, perform one operation, close.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fudaworks/fuda/config"
	"github.com/fudaworks/fuda/engine"
)

var (
	flagConfig string
	flagDB     string
	flagActor  string
)

var rootCmd = &cobra.Command{
	Use:           "fuda",
	Short:         "Track units of work, their dependencies, and who holds them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "actor recorded in the audit trail")
}

// loadConfig resolves the effective configuration from flags and file.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flagConfig != "" {
		var err error
		if cfg, err = config.Load(flagConfig); err != nil {
			return nil, err
		}
	}
	if flagDB != "" {
		cfg.DBFile = flagDB
	}
	if flagActor != "" {
		cfg.Actor = flagActor
	}
	return cfg, nil
}

// openEngine opens the engine for one command invocation.
func openEngine() (*engine.Engine, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	dbPath := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	eng, err := engine.Open(dbPath, logger)
	if err != nil {
		return nil, nil, err
	}
	return eng, cfg, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
