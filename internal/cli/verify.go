package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/database"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/tracker"
	"github.com/aqasim81/journal-migrate/internal/verifier"
)

// errNotTracked is returned by commands that need the tracking table.
var errNotTracked = errors.New("migration tracking is not initialised (run `journaldb migrate`)")

var verifyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "verify",
	Short: "Verify recorded checksums and database integrity",
	Long: `Compare the checksum recorded for every applied migration with the script
compiled into this binary, then run SQLite's integrity check. The database is
opened read-only.`,
	RunE: runVerify,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	db, err := openReadOnly(ctx, AppConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	tracked, err := tracker.New(db).Exists(ctx)
	if err != nil {
		return err
	}

	if !tracked {
		return errNotTracked
	}

	report, err := verifier.New(migration.Registry(), verifier.WithLogger(logger)).Verify(ctx, db)
	if err != nil {
		var mismatch *verifier.MismatchError
		if errors.As(err, &mismatch) {
			fmt.Fprintf(out, "Migration %03d_%s was modified after it was applied.\n  recorded: %s\n  compiled: %s\n",
				mismatch.Version, mismatch.Name, mismatch.Actual, mismatch.Expected)
		}

		return err
	}

	fmt.Fprintf(out, "Checksums: %d verified, %d legacy (no checksum)\n", report.Checked, report.Legacy)

	if len(report.Unknown) > 0 {
		fmt.Fprintf(out, "Unknown versions recorded: %v\n", report.Unknown)
	}

	if err := database.IntegrityCheck(ctx, db); err != nil {
		return fmt.Errorf("verifying database: %w", err)
	}

	fmt.Fprintln(out, "Integrity: ok")

	return nil
}
