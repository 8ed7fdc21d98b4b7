package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/config"
)

var (
	errNoBackups        = errors.New("no backups found")
	errSnapshotRequired = errors.New("name a snapshot or pass --latest")
)

var restoreCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "restore [snapshot]",
	Short: "Replace the database with a pre-migration snapshot",
	Long: `Restore the database file from a snapshot written before a migration batch.
The snapshot may be a file name in the backup directory or a path. The current
database is copied to pre_restore_<unix>.db in the backup directory first.

Stop every process using the database before restoring.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	restoreCmd.Flags().Bool("latest", false, "restore the newest snapshot")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	mgr := newBackupManager(AppConfig)
	latest, _ := cmd.Flags().GetBool("latest")

	var snapshot string

	switch {
	case len(args) == 1:
		snapshot = args[0]
		if filepath.Base(snapshot) == snapshot && mgr.Dir() != "" {
			snapshot = filepath.Join(mgr.Dir(), snapshot)
		}
	case latest:
		snaps, err := mgr.List()
		if err != nil {
			return fmt.Errorf("listing backups: %w", err)
		}

		if len(snaps) == 0 {
			return errNoBackups
		}

		snapshot = snaps[len(snaps)-1].Path
	default:
		return errSnapshotRequired
	}

	saved, err := mgr.Restore(commandContext(cmd), snapshot)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Restored %s from %s\n", config.DisplayPath(AppConfig.DatabasePath), config.DisplayPath(snapshot))

	if saved != "" {
		fmt.Fprintf(out, "Previous database saved to %s\n", config.DisplayPath(saved))
	}

	return nil
}
