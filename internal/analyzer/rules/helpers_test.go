package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/parser"
)

// ruleCase is the shape shared by every rule's table test.
type ruleCase struct {
	name         string
	sql          string
	wantCount    int
	wantSeverity analyzer.Severity
	wantTable    string
	wantMessage  string
}

// checkSQL runs rule against the single statement in sql, with the compiled
// registry's legacy markers in context.
func checkSQL(t *testing.T, rule analyzer.Rule, sql string) []analyzer.Finding {
	t.Helper()

	result, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Len(t, result.Stmts, 1)

	ctx := &analyzer.RuleContext{
		Markers:   analyzer.NewMarkerIndex(migration.Registry()),
		StmtIndex: 0,
		SQL:       sql,
	}

	return rule.Check(result.Stmts[0], ctx)
}

func runRuleCases(t *testing.T, rule analyzer.Rule, tests []ruleCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := checkSQL(t, rule, tt.sql)
			require.Len(t, findings, tt.wantCount)

			if tt.wantCount == 0 {
				return
			}

			assert.Equal(t, tt.wantSeverity, findings[0].Severity)
			assert.Equal(t, rule.ID(), findings[0].Rule)
			assert.Zero(t, findings[0].StmtIndex)

			if tt.wantTable != "" {
				assert.Contains(t, findings[0].Table, tt.wantTable)
			}

			if tt.wantMessage != "" {
				assert.Contains(t, findings[0].Message, tt.wantMessage)
			}
		})
	}
}
