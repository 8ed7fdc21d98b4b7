package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
	"github.com/aqasim81/journal-migrate/internal/analyzer/rules"
)

func TestUnsupportedAlterRule_ID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unsupported-alter", rules.NewUnsupportedAlterRule().ID())
}

func TestUnsupportedAlterRule_Check(t *testing.T) {
	t.Parallel()

	runRuleCases(t, rules.NewUnsupportedAlterRule(), []ruleCase{
		{
			name:         "ALTER COLUMN TYPE",
			sql:          "ALTER TABLE trades ALTER COLUMN leverage TYPE REAL;",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantTable:    "trades",
			wantMessage:  "ALTER COLUMN TYPE",
		},
		{
			name:         "SET NOT NULL",
			sql:          "ALTER TABLE trades ALTER COLUMN exits SET NOT NULL;",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantMessage:  "SET NOT NULL",
		},
		{
			name:         "DROP NOT NULL",
			sql:          "ALTER TABLE trades ALTER COLUMN notes DROP NOT NULL;",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantMessage:  "DROP NOT NULL",
		},
		{
			name:         "SET DEFAULT",
			sql:          "ALTER TABLE trades ALTER COLUMN notes SET DEFAULT 'n/a';",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantMessage:  "ALTER COLUMN DEFAULT",
		},
		{
			name:         "ADD CONSTRAINT",
			sql:          "ALTER TABLE trades ADD CONSTRAINT positive_leverage CHECK (leverage > 0);",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantMessage:  "ADD CONSTRAINT",
		},
		{
			name:      "ADD COLUMN is supported",
			sql:       "ALTER TABLE trades ADD COLUMN tags TEXT;",
			wantCount: 0,
		},
		{
			name:      "DROP COLUMN is supported",
			sql:       "ALTER TABLE trades DROP COLUMN tags;",
			wantCount: 0,
		},
	})
}

func TestUnsupportedAlterRule_mixedCommands(t *testing.T) {
	t.Parallel()

	findings := checkSQL(t, rules.NewUnsupportedAlterRule(),
		"ALTER TABLE trades ADD COLUMN tags TEXT, ALTER COLUMN notes SET NOT NULL;")

	assert.Len(t, findings, 1)
}
