package executor

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/parser"
)

// nonTransactionalStatement parses the script and returns a description of the
// first statement that cannot run inside a transaction block, or "" if there is
// none. SQLite would otherwise fail with an opaque error mid-transaction.
//
// Scripts the PostgreSQL grammar cannot parse are passed through: SQLite is the
// authority on syntax only it accepts.
func nonTransactionalStatement(sql string) string {
	result, err := parser.Parse(sql)
	if err != nil {
		return ""
	}

	for _, stmt := range result.Stmts {
		switch n := stmt.Stmt.GetNode().(type) {
		case *pg_query.Node_IndexStmt:
			if n.IndexStmt.GetConcurrent() {
				return fmt.Sprintf("CREATE INDEX CONCURRENTLY %s", n.IndexStmt.GetIdxname())
			}
		case *pg_query.Node_VacuumStmt:
			// ANALYZE parses as a VacuumStmt and is fine in a transaction.
			if n.VacuumStmt.GetIsVacuumcmd() {
				return "VACUUM"
			}
		case *pg_query.Node_TransactionStmt:
			if kind := n.TransactionStmt.GetKind(); endsTransaction(kind) {
				return "explicit transaction control (" + kind.String() + ")"
			}
		}
	}

	return ""
}

// endsTransaction reports whether kind opens or closes the enclosing
// transaction. Savepoints nest inside it and are allowed.
func endsTransaction(kind pg_query.TransactionStmtKind) bool {
	switch kind {
	case pg_query.TransactionStmtKind_TRANS_STMT_BEGIN,
		pg_query.TransactionStmtKind_TRANS_STMT_START,
		pg_query.TransactionStmtKind_TRANS_STMT_COMMIT,
		pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK,
		pg_query.TransactionStmtKind_TRANS_STMT_PREPARE,
		pg_query.TransactionStmtKind_TRANS_STMT_COMMIT_PREPARED,
		pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK_PREPARED:
		return true
	default:
		return false
	}
}
