package analyzer

import "github.com/aqasim81/journal-migrate/internal/migration"

// Finding represents a single problem detected in a migration.
type Finding struct {
	Rule       string   // Rule ID (e.g., "drop-column")
	Severity   Severity // Danger level
	Table      string   // Affected table name
	Statement  string   // The SQL statement text (truncated for display)
	Message    string   // Human-readable description of the problem
	Suggestion string   // Safe alternative approach
	StmtIndex  int      // Index in the migration's statement list (0-based, -1 for whole-script findings)
}

// AnalysisResult holds all findings for a single migration.
type AnalysisResult struct {
	Migration   *migration.Migration
	Findings    []Finding
	MaxSeverity Severity // Highest severity across all findings
}

// HasHighOrCritical returns true if any finding is High or Critical severity.
func (r *AnalysisResult) HasHighOrCritical() bool {
	return r.MaxSeverity >= High
}

// TruncateSQL truncates a SQL string to maxLen characters for display.
// A maxLen too small to hold the ellipsis leaves the string untouched.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 { //nolint:mnd // room for "..."
		return sql
	}

	return sql[:maxLen-3] + "..."
}
