package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/detector"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/tracker"
)

var detectCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "detect",
	Short: "Infer the schema version of a database from its tables and columns",
	Long: `Probe the database for the marker table or column each migration
introduces and report the newest one present. This is the version a legacy
database would be adopted at by ` + "`journaldb migrate`" + `. Nothing is written.`,
	RunE: runDetect,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	db, err := openReadOnly(ctx, AppConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	ms := migration.Registry()

	d, err := detector.Detect(ctx, db, ms)
	if err != nil {
		return fmt.Errorf("detecting schema version: %w", err)
	}

	tracked, err := tracker.New(db).Exists(ctx)
	if err != nil {
		return err
	}

	if d.Version == 0 {
		fmt.Fprintln(out, "No schema markers found: the database is empty or predates version 1.")
	} else {
		fmt.Fprintf(out, "Detected version %d (%s) via marker %s after %d probe(s).\n",
			d.Version, ms[d.Version].Name, d.Marker, d.Probed)
	}

	if tracked {
		current, _, err := tracker.New(db).CurrentVersion(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Tracking table present: recorded version %d.\n", current)
	}

	return nil
}
