package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

// RenameRule detects RENAME TABLE and RENAME COLUMN statements.
type RenameRule struct{}

// NewRenameRule creates a new RenameRule.
func NewRenameRule() *RenameRule { return &RenameRule{} }

// ID returns the rule identifier.
func (r *RenameRule) ID() string { return "rename" }

// Check examines a statement for RENAME TABLE or RENAME COLUMN.
func (r *RenameRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_RenameStmt)
	if !ok {
		return nil
	}

	rename := node.RenameStmt
	if rename == nil {
		return nil
	}

	var f analyzer.Finding

	switch rename.RenameType {
	case pg_query.ObjectType_OBJECT_TABLE:
		f = analyzer.Finding{
			Message:    "RENAME TABLE breaks application code that references the old name",
			Suggestion: "Create the new table, copy rows and keep the old one until code no longer uses it",
		}
	case pg_query.ObjectType_OBJECT_COLUMN:
		f = analyzer.Finding{
			Message:    "RENAME COLUMN breaks application code that references the old column name",
			Suggestion: "Add the new column and backfill it; stop using the old one later",
		}
	default:
		return nil // RENAME INDEX and friends are safe
	}

	f.Rule = r.ID()
	f.Severity = analyzer.Medium
	f.Table = analyzer.TableName(rename.Relation)
	f.StmtIndex = ctx.StmtIndex

	if mk, ok := ctx.Marker(rename.GetRelation().GetRelname(), rename.Subname); ok {
		f.Severity = analyzer.High
		f.Message = fmt.Sprintf("%s; it renames legacy marker %s", f.Message, mk)
	}

	return []analyzer.Finding{f}
}
