// Package cli implements the journaldb command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/config"
	"github.com/aqasim81/journal-migrate/internal/database"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// logger is built from AppConfig during PersistentPreRunE.
var logger = slog.Default() //nolint:gochecknoglobals // shared across subcommands

// rootCmd is the base command for the journaldb CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "journaldb",
	Version: version,
	Short:   "Schema migrations for the trading journal SQLite database",
	Long: `journaldb brings the trading journal's SQLite database up to the schema
compiled into this binary. It adopts legacy databases that predate migration
tracking, snapshots the file before every batch, applies each migration in its
own transaction and verifies recorded checksums.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", config.DefaultFile, "path to configuration file")
	rootCmd.PersistentFlags().String("env-file", ".env", "path to a dotenv file with JOURNALDB_* variables")
	rootCmd.PersistentFlags().String("db", "", "path to the journal database")
	rootCmd.PersistentFlags().String("backup-dir", "", "directory for pre-migration snapshots")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("format", "", "output format (text, json)")
}

// Execute runs the root command and returns the process exit code. Called
// from main.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error(err.Error())

		return 1
	}

	return 0
}

// loadConfig loads configuration with precedence: flag > env > .env > file.
func loadConfig(cmd *cobra.Command) error {
	envPath, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envPath); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)
	mergeFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level, _ := cfg.Level()
	logger = newLogger(cmd.ErrOrStderr(), level, cfg.Format)
	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("db") {
		cfg.DatabasePath, _ = cmd.Flags().GetString("db")
	}

	if cmd.Flags().Changed("backup-dir") {
		cfg.BackupDir, _ = cmd.Flags().GetString("backup-dir")
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}

	if cmd.Flags().Changed("format") {
		format, _ := cmd.Flags().GetString("format")
		cfg.Format = strings.ToLower(format)
	}
}

// commandContext returns the command's context, or Background when cobra was
// invoked without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// openWritable opens the configured database for migration.
func openWritable(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger.Debug("opening database", "path", config.DisplayPath(cfg.DatabasePath))

	if !database.IsMemoryPath(cfg.DatabasePath) {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := database.Open(ctx, cfg.DatabasePath,
		database.WithBusyTimeout(cfg.BusyTimeout),
		database.WithJournalMode(cfg.JournalMode),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

// openReadOnly opens the configured database for inspection. In-memory paths
// fall back to a writable handle since they cannot be shared.
func openReadOnly(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if database.IsMemoryPath(cfg.DatabasePath) {
		return openWritable(ctx, cfg)
	}

	logger.Debug("opening database read-only", "path", config.DisplayPath(cfg.DatabasePath))

	db, err := database.OpenReadOnly(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}
