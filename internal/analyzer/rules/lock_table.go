package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

// LockTableRule detects explicit LOCK TABLE statements.
type LockTableRule struct{}

// NewLockTableRule creates a new LockTableRule.
func NewLockTableRule() *LockTableRule { return &LockTableRule{} }

// ID returns the rule identifier.
func (r *LockTableRule) ID() string { return "lock-table" }

// Check examines a statement for explicit LOCK TABLE.
func (r *LockTableRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_LockStmt)
	if !ok {
		return nil
	}

	lock := node.LockStmt
	var findings []analyzer.Finding

	for _, rel := range lock.Relations {
		rv, ok := rel.Node.(*pg_query.Node_RangeVar)
		if !ok {
			continue
		}

		findings = append(findings, analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      analyzer.TableName(rv.RangeVar),
			Message:    "SQLite has no LOCK TABLE; the migration would fail",
			Suggestion: "Drop the statement; the migration transaction already holds the database write lock",
			StmtIndex:  ctx.StmtIndex,
		})
	}

	return findings
}
