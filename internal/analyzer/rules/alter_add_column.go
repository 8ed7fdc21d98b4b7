package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

// AddColumnRule detects ADD COLUMN definitions SQLite refuses to execute.
type AddColumnRule struct{}

// NewAddColumnRule creates a new AddColumnRule.
func NewAddColumnRule() *AddColumnRule { return &AddColumnRule{} }

// ID returns the rule identifier.
func (r *AddColumnRule) ID() string { return "add-column" }

// Check examines every ADD COLUMN in an ALTER TABLE statement.
func (r *AddColumnRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	var findings []analyzer.Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		if cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}

		colDef := cmd.AlterTableCmd.GetDef().GetColumnDef()
		if colDef == nil {
			continue
		}

		if msg, suggestion := r.checkColumn(colDef); msg != "" {
			findings = append(findings, analyzer.Finding{
				Rule:       r.ID(),
				Severity:   analyzer.High,
				Table:      analyzer.TableName(alt.Relation),
				Message:    msg,
				Suggestion: suggestion,
				StmtIndex:  ctx.StmtIndex,
			})
		}
	}

	return findings
}

func (r *AddColumnRule) checkColumn(colDef *pg_query.ColumnDef) (msg, suggestion string) {
	var notNull bool

	for _, c := range colDef.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}

		switch cn.Constraint.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			notNull = true
		case pg_query.ConstrType_CONSTR_PRIMARY, pg_query.ConstrType_CONSTR_UNIQUE:
			return "SQLite cannot add a PRIMARY KEY or UNIQUE column with ALTER TABLE",
				"Add a plain column, then CREATE UNIQUE INDEX on it"
		}
	}

	defaultExpr := extractDefaultExpr(colDef)

	if defaultExpr != nil && !isConstantDefault(defaultExpr) {
		return "SQLite cannot add a column whose DEFAULT is not a constant",
			"Use a literal DEFAULT, then backfill with UPDATE in the same migration"
	}

	if notNull && defaultExpr == nil {
		return "SQLite cannot add a NOT NULL column without a DEFAULT",
			"Give the column a constant DEFAULT, or leave it nullable"
	}

	return "", ""
}

// extractDefaultExpr finds the DEFAULT expression from a ColumnDef.
// In pg_query_go v6, DEFAULT is stored as a CONSTR_DEFAULT constraint
// in the Constraints list, with the expression in RawExpr.
func extractDefaultExpr(colDef *pg_query.ColumnDef) *pg_query.Node {
	for _, c := range colDef.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}

		if cn.Constraint.Contype == pg_query.ConstrType_CONSTR_DEFAULT {
			return cn.Constraint.RawExpr
		}
	}

	return nil
}

// isConstantDefault reports whether a DEFAULT expression is a literal or a
// cast of one. Function calls and CURRENT_TIMESTAMP are not.
func isConstantDefault(node *pg_query.Node) bool {
	if node == nil {
		return true
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return true
	case *pg_query.Node_TypeCast:
		_, ok := n.TypeCast.GetArg().GetNode().(*pg_query.Node_AConst)

		return ok
	default:
		return false
	}
}
