package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed AST and original SQL.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a migration script with the PostgreSQL grammar and returns the
// AST. Migration scripts are kept to the SQL subset SQLite and PostgreSQL share,
// so every registry script parses. Returns an empty result (zero statements)
// for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// Object names a table, or a column of a table when Column is set.
type Object struct {
	Table  string
	Column string
}

func (o Object) String() string {
	if o.Column == "" {
		return o.Table
	}

	return o.Table + "." + o.Column
}

// Introduced lists the tables and columns the script creates, in statement
// order: every CREATE TABLE with its columns, and every ALTER TABLE ADD COLUMN.
func (r *ParseResult) Introduced() []Object {
	var objs []Object

	for _, raw := range r.Stmts {
		switch n := raw.GetStmt().GetNode().(type) {
		case *pg_query.Node_CreateStmt:
			table := n.CreateStmt.GetRelation().GetRelname()
			objs = append(objs, Object{Table: table})

			for _, elt := range n.CreateStmt.GetTableElts() {
				if col := elt.GetColumnDef(); col != nil {
					objs = append(objs, Object{Table: table, Column: col.GetColname()})
				}
			}
		case *pg_query.Node_AlterTableStmt:
			table := n.AlterTableStmt.GetRelation().GetRelname()

			for _, cmdNode := range n.AlterTableStmt.GetCmds() {
				cmd := cmdNode.GetAlterTableCmd()
				if cmd == nil || cmd.GetSubtype() != pg_query.AlterTableType_AT_AddColumn {
					continue
				}

				if col := cmd.GetDef().GetColumnDef(); col != nil {
					objs = append(objs, Object{Table: table, Column: col.GetColname()})
				}
			}
		}
	}

	return objs
}
