package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

// DropColumnRule detects ALTER TABLE ... DROP COLUMN.
type DropColumnRule struct{}

// NewDropColumnRule creates a new DropColumnRule.
func NewDropColumnRule() *DropColumnRule { return &DropColumnRule{} }

// ID returns the rule identifier.
func (r *DropColumnRule) ID() string { return "drop-column" }

// Check examines a statement for DROP COLUMN. Dropping a legacy marker column
// is critical: older databases would then be detected at the wrong version.
func (r *DropColumnRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	table := analyzer.TableName(alt.Relation)

	var findings []analyzer.Finding

	for _, cmdNode := range alt.Cmds {
		cmd := cmdNode.GetAlterTableCmd()
		if cmd == nil || cmd.Subtype != pg_query.AlterTableType_AT_DropColumn {
			continue
		}

		f := analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      table,
			Message:    fmt.Sprintf("DROP COLUMN %s permanently deletes its data", cmd.Name),
			Suggestion: "Stop reading the column first; SQLite also refuses to drop indexed or key columns",
			StmtIndex:  ctx.StmtIndex,
		}

		if mk, ok := ctx.Marker(alt.GetRelation().GetRelname(), cmd.Name); ok {
			f.Severity = analyzer.Critical
			f.Message = fmt.Sprintf("DROP COLUMN %s removes legacy marker %s", cmd.Name, mk)
			f.Suggestion = "Marker columns must be permanent; keep the column"
		}

		findings = append(findings, f)
	}

	return findings
}
