package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
	"github.com/aqasim81/journal-migrate/internal/analyzer/rules"
	"github.com/aqasim81/journal-migrate/internal/backup"
	"github.com/aqasim81/journal-migrate/internal/config"
	"github.com/aqasim81/journal-migrate/internal/executor"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/runner"
)

// errDangerousMigrations is returned when migrate is blocked by high/critical findings.
var errDangerousMigrations = errors.New("migrate aborted: dangerous migrations detected (use --force to override)")

var migrateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "migrate",
	Aliases: []string{"up"},
	Short:   "Apply pending migrations",
	Long: `Bring the database up to the latest compiled-in schema version.

An untracked database is adopted first: its version is inferred from the
tables and columns it already has. A verified snapshot is written to the
backup directory before any pending migration runs.`,
	RunE: runMigrate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	migrateCmd.Flags().Bool("dry-run", false, "show what would be applied without changing the database")
	migrateCmd.Flags().Bool("force", false, "skip the analyzer safety check")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	ms := migration.Registry()

	if !force && !dryRun {
		if blocked, err := checkDangerousMigrations(cmd, ms); err != nil {
			return err
		} else if blocked {
			return errDangerousMigrations
		}
	}

	ctx := commandContext(cmd)

	db, err := openWritable(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(out, "Database: %s\n", config.DisplayPath(cfg.DatabasePath))

	r, err := runner.New(db, cfg.DatabasePath,
		runner.WithMigrations(ms),
		runner.WithDryRun(dryRun),
		runner.WithLogger(logger),
		runner.WithBackupOptions(backupOptions(cfg)...),
		runner.WithProgressCallback(progressPrinter(out)),
	)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	res, err := r.Run(ctx)
	if err != nil {
		var applyErr *runner.ApplyError
		if errors.As(err, &applyErr) {
			fmt.Fprintf(out, "\nMigration %d (%s) failed. Restore with:\n  journaldb restore %s\n",
				applyErr.Version, applyErr.Name, config.DisplayPath(applyErr.BackupPath))
		}

		return err
	}

	printRunSummary(out, res, dryRun)

	return nil
}

func backupOptions(cfg *config.Config) []backup.Option {
	opts := []backup.Option{
		backup.WithRetention(cfg.BackupRetention),
		backup.WithLogger(logger),
	}

	if cfg.BackupDir != "" {
		opts = append(opts, backup.WithDir(cfg.BackupDir))
	}

	return opts
}

func progressPrinter(out io.Writer) func(executor.ProgressEvent) {
	return func(event executor.ProgressEvent) {
		switch event.Status {
		case executor.StatusStarting:
			fmt.Fprintf(out, "  Applying %03d_%s ... ", event.Migration.Version, event.Migration.Name)
		case executor.StatusCompleted:
			fmt.Fprintf(out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
		case executor.StatusFailed:
			fmt.Fprintf(out, "FAILED\n")
			fmt.Fprintf(out, "    Error: %v\n", event.Error)
		}
	}
}

func printRunSummary(out io.Writer, res *runner.Result, dryRun bool) {
	switch {
	case res.Bootstrapped && res.LegacyVersion > 0:
		fmt.Fprintf(out, "Migration tracking initialised (legacy schema at version %d).\n", res.LegacyVersion)
	case res.Bootstrapped:
		fmt.Fprintln(out, "Migration tracking initialised.")
	}

	if dryRun {
		fmt.Fprintf(out, "\nDry run complete: database at version %d, %d migration(s) would be applied.\n",
			res.FromVersion, len(res.Pending))

		for i := range res.Pending {
			fmt.Fprintf(out, "  %03d_%s\n", res.Pending[i].Version, res.Pending[i].Name)
		}

		return
	}

	if res.Applied == 0 {
		fmt.Fprintf(out, "\nDatabase is up to date at version %d.\n", res.ToVersion)

		return
	}

	fmt.Fprintf(out, "\nMigrate complete: %d applied, version %d -> %d.\n", res.Applied, res.FromVersion, res.ToVersion)

	if res.BackupPath != "" {
		fmt.Fprintf(out, "Backup: %s\n", config.DisplayPath(res.BackupPath))
	}
}

// checkDangerousMigrations runs the analyzer and returns true if
// HIGH/CRITICAL findings were found (blocking migrate).
func checkDangerousMigrations(cmd *cobra.Command, ms []migration.Migration) (bool, error) {
	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithMarkers(ms),
	)

	results, err := a.AnalyzeAll(ms)
	if err != nil {
		return false, fmt.Errorf("analyzing migrations: %w", err)
	}

	blocked := false

	for i := range results {
		if results[i].HasHighOrCritical() {
			blocked = true
		}
	}

	if blocked {
		printAnalysisResults(cmd, results)
	}

	return blocked, nil
}
