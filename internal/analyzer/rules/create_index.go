package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

// CreateIndexRule detects CREATE INDEX CONCURRENTLY, which SQLite does not
// have and which could not run inside a migration transaction anyway.
type CreateIndexRule struct{}

// NewCreateIndexRule creates a new CreateIndexRule.
func NewCreateIndexRule() *CreateIndexRule { return &CreateIndexRule{} }

// ID returns the rule identifier.
func (r *CreateIndexRule) ID() string { return "create-index-concurrently" }

// Check examines a statement for CREATE INDEX CONCURRENTLY.
func (r *CreateIndexRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok {
		return nil
	}

	idx := node.IndexStmt
	if !idx.Concurrent {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      analyzer.TableName(idx.Relation),
		Message:    "CREATE INDEX CONCURRENTLY is not SQLite syntax and cannot run in a transaction",
		Suggestion: "Use CREATE INDEX IF NOT EXISTS; SQLite builds indexes inside the migration transaction",
		StmtIndex:  ctx.StmtIndex,
	}}
}
