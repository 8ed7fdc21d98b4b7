package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

// VacuumRule detects VACUUM, which SQLite refuses inside a transaction.
type VacuumRule struct{}

// NewVacuumRule creates a new VacuumRule.
func NewVacuumRule() *VacuumRule { return &VacuumRule{} }

// ID returns the rule identifier.
func (r *VacuumRule) ID() string { return "vacuum" }

// Check examines a statement for VACUUM.
func (r *VacuumRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_VacuumStmt)
	if !ok || !node.VacuumStmt.GetIsVacuumcmd() {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      extractVacuumTable(node.VacuumStmt),
		Message:    "VACUUM cannot run inside a transaction; the migration would always fail",
		Suggestion: "Remove VACUUM from the migration; run it from maintenance tooling instead",
		StmtIndex:  ctx.StmtIndex,
	}}
}

func extractVacuumTable(v *pg_query.VacuumStmt) string {
	for _, rel := range v.Rels {
		vr, ok := rel.Node.(*pg_query.Node_VacuumRelation)
		if !ok {
			continue
		}

		if vr.VacuumRelation.Relation != nil {
			return analyzer.TableName(vr.VacuumRelation.Relation)
		}
	}

	return "<all tables>"
}
