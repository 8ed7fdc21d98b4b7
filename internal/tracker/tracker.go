package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aqasim81/journal-migrate/internal/database"
)

// AppliedMigration is one row of the schema_migrations table.
type AppliedMigration struct {
	Version         uint32
	Name            string
	AppliedAt       time.Time
	Checksum        sql.Null[string] // invalid for rows bootstrapped from a legacy schema
	ExecutionTimeMs int64
	Notes           sql.Null[string]
}

// Verifiable reports whether the row carries a checksum to compare against.
func (m *AppliedMigration) Verifiable() bool {
	return m.Checksum.Valid
}

// RecordParams contains the fields needed to record a migration as applied.
type RecordParams struct {
	Version         uint32
	Name            string
	AppliedAt       time.Time
	Checksum        string
	ExecutionTimeMs int64
}

// Tracker reads and writes the schema_migrations table through q, which may be
// the database handle or an open transaction.
type Tracker struct {
	q database.Querier
}

// New creates a Tracker backed by the given querier.
func New(q database.Querier) *Tracker {
	return &Tracker{q: q}
}

// Exists reports whether the tracking table has been created.
func (t *Tracker) Exists(ctx context.Context) (bool, error) {
	return database.TableExists(ctx, t.q, TableName)
}

// CurrentVersion returns the highest recorded version. ok is false when the
// table is empty.
func (t *Tracker) CurrentVersion(ctx context.Context) (version uint32, ok bool, err error) {
	var v sql.Null[int64]

	if err := t.q.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, false, fmt.Errorf("reading current schema version: %w", err)
	}

	if !v.Valid {
		return 0, false, nil
	}

	return uint32(v.V), true, nil //nolint:gosec // versions are written from uint32
}

// GetApplied returns every recorded migration ordered by version.
func (t *Tracker) GetApplied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := t.q.QueryContext(ctx, selectAppliedSQL)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration

	for rows.Next() {
		var (
			m         AppliedMigration
			appliedAt int64
		)

		if err := rows.Scan(&m.Version, &m.Name, &appliedAt, &m.Checksum, &m.ExecutionTimeMs, &m.Notes); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}

		m.AppliedAt = time.Unix(appliedAt, 0).UTC()
		applied = append(applied, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

// RecordApplied inserts the row for a migration that has just been executed.
// Call it on the migration's own transaction so the DDL and its record commit
// together.
func (t *Tracker) RecordApplied(ctx context.Context, p RecordParams) error {
	_, err := t.q.ExecContext(ctx, insertSQL,
		p.Version, p.Name, p.AppliedAt.Unix(), p.Checksum, p.ExecutionTimeMs, nil,
	)
	if err != nil {
		return fmt.Errorf("%w %d (%s): %w", ErrRecordFailed, p.Version, p.Name, err)
	}

	return nil
}

// RecordLegacy inserts a checksum-less row for a migration whose effect was
// found in a legacy schema.
func (t *Tracker) RecordLegacy(ctx context.Context, version uint32, name string, at time.Time) error {
	_, err := t.q.ExecContext(ctx, insertSQL,
		version, name, at.Unix(), nil, 0, LegacyNote,
	)
	if err != nil {
		return fmt.Errorf("%w %d (%s) as legacy: %w", ErrRecordFailed, version, name, err)
	}

	return nil
}
