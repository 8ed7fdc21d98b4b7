package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
	"github.com/aqasim81/journal-migrate/internal/analyzer/rules"
	"github.com/aqasim81/journal-migrate/internal/detector"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/runner"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show execution plan for pending migrations",
	Long: `Display the migrations a run would apply, in order, with the highest
analyzer severity of each. The database is opened read-only.`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	db, err := openReadOnly(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ms := migration.Registry()

	r, err := runner.New(db, cfg.DatabasePath, runner.WithMigrations(ms), runner.WithLogger(logger))
	if err != nil {
		return err
	}

	st, err := r.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	if !st.Tracked {
		d, err := detector.Detect(ctx, db, ms)
		if err != nil {
			return fmt.Errorf("detecting schema version: %w", err)
		}

		if d.Version > 0 {
			fmt.Fprintf(out, "Untracked legacy database detected at version %d; tracking is initialised first.\n\n", d.Version)
			st.Pending = ms[d.Version+1:]
			st.Current = d.Version
		}
	}

	if len(st.Pending) == 0 {
		fmt.Fprintf(out, "Database is up to date at version %d.\n", st.Current)

		return nil
	}

	a := analyzer.New(analyzer.WithRegistry(rules.NewDefaultRegistry()), analyzer.WithMarkers(ms))

	results, err := a.AnalyzeAll(st.Pending)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	data := make([][]string, 0, len(results))
	for i, res := range results {
		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%03d", res.Migration.Version),
			res.Migration.Name,
			res.MaxSeverity.Label(),
			fmt.Sprintf("%d", len(res.Findings)),
		})
	}

	if err := renderTable([]string{"STEP", "VERSION", "NAME", "RISK", "FINDINGS"}, data, out); err != nil {
		return fmt.Errorf("rendering plan: %w", err)
	}

	fmt.Fprintf(out, "\n%d migration(s) pending, target version %d.\n", len(st.Pending), st.Latest)

	return nil
}
