package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
	"github.com/aqasim81/journal-migrate/internal/analyzer/rules"
	"github.com/aqasim81/journal-migrate/internal/migration"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migration-dir]",
	Short: "Analyze migrations for statements SQLite cannot run safely",
	Long: `Analyze migration scripts with a SQL parser. Flags data loss, statements
SQLite rejects inside a transaction or does not support, and changes that would
break legacy version detection by dropping or renaming a marker.

Without an argument the compiled-in migrations are analyzed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().Bool("fail-on-high", false, "exit with non-zero code if high/critical findings exist")
	rootCmd.AddCommand(analyzeCmd)
}

// errHighSeverityFindings is returned when --fail-on-high is set and high/critical findings exist.
var errHighSeverityFindings = errors.New("high or critical severity findings detected")

func runAnalyze(cmd *cobra.Command, args []string) error {
	ms, err := loadMigrations(args)
	if err != nil {
		return err
	}

	if len(ms) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No migration files found.")

		return nil
	}

	a := analyzer.New(analyzer.WithRegistry(rules.NewDefaultRegistry()))

	results, err := a.AnalyzeAll(ms)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	var hasHighOrCritical bool

	if outputFormat() == "json" {
		hasHighOrCritical, err = writeAnalysisJSON(cmd, results)
		if err != nil {
			return err
		}
	} else {
		hasHighOrCritical = printAnalysisResults(cmd, results)
	}

	failOnHigh, _ := cmd.Flags().GetBool("fail-on-high")
	if failOnHigh && hasHighOrCritical {
		return errHighSeverityFindings
	}

	return nil
}

// loadMigrations reads migrations from the directory in args, or returns the
// compiled-in registry.
func loadMigrations(args []string) ([]migration.Migration, error) {
	if len(args) == 0 {
		return migration.Registry(), nil
	}

	ms, err := migration.LoadFS(os.DirFS(args[0]))
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	return ms, nil
}

func printAnalysisResults(cmd *cobra.Command, results []analyzer.AnalysisResult) bool {
	out := cmd.OutOrStdout()
	totalFindings := 0
	hasHighOrCritical := false

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n=== %03d_%s ===\n", r.Migration.Version, r.Migration.Name)

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  [%s] %s\n", f.Severity.Label(), f.Message)

			if f.Table != "" {
				fmt.Fprintf(out, "    Table: %s\n", f.Table)
			}

			fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:   %s\n", analyzer.TruncateSQL(f.Statement, maxColumnWidth*2))
			}

			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		totalFindings += len(r.Findings)

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	if totalFindings == 0 {
		fmt.Fprintln(out, "No dangerous operations detected.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d migration(s).\n", totalFindings, countMigrationsWithFindings(results))
	}

	return hasHighOrCritical
}

type findingJSON struct {
	Version    uint32 `json:"version"`
	Migration  string `json:"migration"`
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Table      string `json:"table,omitempty"`
	Statement  string `json:"statement,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

func writeAnalysisJSON(cmd *cobra.Command, results []analyzer.AnalysisResult) (bool, error) {
	findings := []findingJSON{}
	hasHighOrCritical := false

	for _, r := range results {
		for _, f := range r.Findings {
			findings = append(findings, findingJSON{
				Version:    r.Migration.Version,
				Migration:  r.Migration.Name,
				Rule:       f.Rule,
				Severity:   f.Severity.String(),
				Table:      f.Table,
				Statement:  f.Statement,
				Message:    f.Message,
				Suggestion: f.Suggestion,
			})
		}

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	return hasHighOrCritical, writeJSON(cmd, findings)
}

func countMigrationsWithFindings(results []analyzer.AnalysisResult) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}

// outputFormat is the configured output format, text when no configuration
// was loaded.
func outputFormat() string {
	if AppConfig == nil {
		return "text"
	}

	return AppConfig.Format
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return nil
}
