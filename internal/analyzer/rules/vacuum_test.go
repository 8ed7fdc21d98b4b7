package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
	"github.com/aqasim81/journal-migrate/internal/analyzer/rules"
)

func TestVacuumRule_ID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vacuum", rules.NewVacuumRule().ID())
}

func TestVacuumRule_Check(t *testing.T) {
	t.Parallel()

	runRuleCases(t, rules.NewVacuumRule(), []ruleCase{
		{
			name:         "bare VACUUM",
			sql:          "VACUUM;",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantTable:    "<all tables>",
		},
		{
			name:         "VACUUM table",
			sql:          "VACUUM trades;",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantTable:    "trades",
		},
		{
			name:      "ANALYZE is ignored",
			sql:       "ANALYZE trades;",
			wantCount: 0,
		},
	})
}
