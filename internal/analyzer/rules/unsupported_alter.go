package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

// alterNames spells out the ALTER TABLE forms migration authors usually reach for.
var alterNames = map[pg_query.AlterTableType]string{ //nolint:gochecknoglobals // lookup table
	pg_query.AlterTableType_AT_AlterColumnType: "ALTER COLUMN TYPE",
	pg_query.AlterTableType_AT_SetNotNull:      "SET NOT NULL",
	pg_query.AlterTableType_AT_DropNotNull:     "DROP NOT NULL",
	pg_query.AlterTableType_AT_ColumnDefault:   "ALTER COLUMN DEFAULT",
	pg_query.AlterTableType_AT_AddConstraint:   "ADD CONSTRAINT",
	pg_query.AlterTableType_AT_DropConstraint:  "DROP CONSTRAINT",
}

// UnsupportedAlterRule detects ALTER TABLE forms SQLite does not implement.
// SQLite only supports ADD COLUMN, DROP COLUMN and the RENAME forms.
type UnsupportedAlterRule struct{}

// NewUnsupportedAlterRule creates a new UnsupportedAlterRule.
func NewUnsupportedAlterRule() *UnsupportedAlterRule { return &UnsupportedAlterRule{} }

// ID returns the rule identifier.
func (r *UnsupportedAlterRule) ID() string { return "unsupported-alter" }

// Check examines every command of an ALTER TABLE statement.
func (r *UnsupportedAlterRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	var findings []analyzer.Finding

	for _, cmdNode := range alt.Cmds {
		cmd := cmdNode.GetAlterTableCmd()
		if cmd == nil {
			continue
		}

		switch cmd.Subtype {
		case pg_query.AlterTableType_AT_AddColumn, pg_query.AlterTableType_AT_DropColumn:
			continue
		}

		name, ok := alterNames[cmd.Subtype]
		if !ok {
			name = cmd.Subtype.String()
		}

		findings = append(findings, analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      analyzer.TableName(alt.Relation),
			Message:    fmt.Sprintf("SQLite does not support ALTER TABLE ... %s; the migration would fail", name),
			Suggestion: "Rebuild the table: CREATE a new table, INSERT ... SELECT, DROP the old one, RENAME",
			StmtIndex:  ctx.StmtIndex,
		})
	}

	return findings
}
