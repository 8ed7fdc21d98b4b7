package database

import (
	"context"
	"fmt"
	"strings"
)

// IntegrityCheck runs PRAGMA integrity_check and returns ErrIntegrityCheck
// with the reported problems unless SQLite answers a single "ok".
func IntegrityCheck(ctx context.Context, q Querier) error {
	rows, err := q.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return fmt.Errorf("running integrity_check: %w", err)
	}
	defer rows.Close()

	var problems []string

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("scanning integrity_check: %w", err)
		}

		if line != "ok" {
			problems = append(problems, line)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading integrity_check: %w", err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrIntegrityCheck, strings.Join(problems, "; "))
	}

	return nil
}

// ForeignKeysEnabled reports whether foreign key enforcement is on for the connection.
func ForeignKeysEnabled(ctx context.Context, q Querier) (bool, error) {
	var enabled int
	if err := q.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return false, fmt.Errorf("reading foreign_keys pragma: %w", err)
	}

	return enabled == 1, nil
}

// TableExists reports whether a table with the given name exists.
func TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var count int

	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}

	return count > 0, nil
}

// ColumnExists reports whether table has the given column. A missing table
// has no columns.
func ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	var count int

	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}

	return count > 0, nil
}
