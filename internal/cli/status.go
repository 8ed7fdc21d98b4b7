package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/config"
	"github.com/aqasim81/journal-migrate/internal/runner"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the applied and pending migrations of the database. The database
is opened read-only and is never created or modified.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(statusCmd)
}

const checksumPrefixLen = 12

// statusRow is one migration in status output.
type statusRow struct {
	Version   uint32     `json:"version"`
	Name      string     `json:"name"`
	State     string     `json:"state"` // applied, legacy or pending
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	Checksum  string     `json:"checksum,omitempty"`
	Duration  int64      `json:"execution_time_ms,omitempty"`
}

type statusJSON struct {
	Database string      `json:"database"`
	Tracked  bool        `json:"tracked"`
	Current  uint32      `json:"current_version"`
	Latest   uint32      `json:"latest_version"`
	Rows     []statusRow `json:"migrations"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	ctx := commandContext(cmd)

	db, err := openReadOnly(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := runner.New(db, cfg.DatabasePath, runner.WithLogger(logger))
	if err != nil {
		return err
	}

	st, err := r.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	rows := statusRows(st)

	if outputFormat() == "json" {
		return writeJSON(cmd, statusJSON{
			Database: config.DisplayPath(cfg.DatabasePath),
			Tracked:  st.Tracked,
			Current:  st.Current,
			Latest:   st.Latest,
			Rows:     rows,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", config.DisplayPath(cfg.DatabasePath))

	if !st.Tracked {
		fmt.Fprintln(out, "Migration tracking is not initialised; run `journaldb detect` to see the inferred version.")
	} else {
		fmt.Fprintf(out, "Version:  %d of %d\n", st.Current, st.Latest)
	}

	fmt.Fprintln(out)

	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		appliedAt := ""
		if row.AppliedAt != nil {
			appliedAt = row.AppliedAt.Local().Format(time.DateTime)
		}

		data = append(data, []string{
			fmt.Sprintf("%03d", row.Version), row.Name, row.State, appliedAt, shortChecksum(row.Checksum),
		})
	}

	if err := renderTable([]string{"VERSION", "NAME", "STATE", "APPLIED AT", "CHECKSUM"}, data, out); err != nil {
		return fmt.Errorf("rendering status: %w", err)
	}

	return nil
}

func statusRows(st *runner.Status) []statusRow {
	rows := make([]statusRow, 0, len(st.Applied)+len(st.Pending))

	for i := range st.Applied {
		a := &st.Applied[i]
		row := statusRow{
			Version:   a.Version,
			Name:      a.Name,
			State:     "applied",
			AppliedAt: &a.AppliedAt,
			Duration:  a.ExecutionTimeMs,
		}

		if a.Verifiable() {
			row.Checksum = a.Checksum.V
		} else {
			row.State = "legacy"
		}

		rows = append(rows, row)
	}

	for i := range st.Pending {
		rows = append(rows, statusRow{
			Version: st.Pending[i].Version,
			Name:    st.Pending[i].Name,
			State:   "pending",
		})
	}

	return rows
}

func shortChecksum(sum string) string {
	if len(sum) <= checksumPrefixLen {
		return sum
	}

	return sum[:checksumPrefixLen]
}
