package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/backup"
	"github.com/aqasim81/journal-migrate/internal/config"
)

var backupsCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "backups",
	Short: "List pre-migration snapshots",
	Long: `List the snapshots in the backup directory, oldest first. A snapshot is
written before every migration batch and only the newest ones are kept.`,
	RunE: runBackups,
}

var backupsPruneCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	RunE:  runBackupsPrune,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	backupsPruneCmd.Flags().Int("keep", 0, "number of snapshots to keep (default: backup_retention)")
	backupsCmd.AddCommand(backupsPruneCmd)
	rootCmd.AddCommand(backupsCmd)
}

func newBackupManager(cfg *config.Config, extra ...backup.Option) *backup.Manager {
	return backup.New(cfg.DatabasePath, append(backupOptions(cfg), extra...)...)
}

func runBackups(cmd *cobra.Command, _ []string) error {
	mgr := newBackupManager(AppConfig)

	snaps, err := mgr.List()
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}

	if outputFormat() == "json" {
		return writeJSON(cmd, snaps)
	}

	out := cmd.OutOrStdout()

	if mgr.Dir() == "" {
		fmt.Fprintln(out, "No backup directory configured.")

		return nil
	}

	fmt.Fprintf(out, "Backups in %s (keeping %d)\n\n", config.DisplayPath(mgr.Dir()), mgr.Retention())

	if len(snaps) == 0 {
		fmt.Fprintln(out, "No backups found.")

		return nil
	}

	data := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		data = append(data, []string{
			s.Name,
			fmt.Sprintf("%d", s.TargetVersion),
			s.CreatedAt.Local().Format(time.DateTime),
			formatSize(s.Size),
		})
	}

	if err := renderTable([]string{"NAME", "TARGET", "CREATED", "SIZE"}, data, out); err != nil {
		return fmt.Errorf("rendering backups: %w", err)
	}

	return nil
}

func runBackupsPrune(cmd *cobra.Command, _ []string) error {
	var extra []backup.Option
	if keep, _ := cmd.Flags().GetInt("keep"); keep > 0 {
		extra = append(extra, backup.WithRetention(keep))
	}

	mgr := newBackupManager(AppConfig, extra...)

	before, err := mgr.List()
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}

	if err := mgr.Prune(); err != nil {
		return fmt.Errorf("pruning backups: %w", err)
	}

	after, err := mgr.List()
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d backup(s), %d kept.\n", len(before)-len(after), len(after))

	return nil
}

func formatSize(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
