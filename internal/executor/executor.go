package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aqasim81/journal-migrate/internal/database"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// ProgressEvent is emitted by the executor for each migration processed.
type ProgressEvent struct {
	Migration *migration.Migration
	Status    string
	Duration  time.Duration
	Error     error
}

// Executor applies migrations one transaction at a time. A migration's
// script and its schema_migrations row commit together or not at all.
type Executor struct {
	db         *sql.DB
	dryRun     bool
	now        func() time.Time
	logger     *slog.Logger
	onProgress func(ProgressEvent)
}

// Option configures an Executor.
type Option func(*Executor)

// WithDryRun enables dry-run mode where no SQL is executed.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithClock sets the time source for applied_at.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// New creates an Executor that writes through db.
func New(db *sql.DB, opts ...Option) *Executor {
	e := &Executor{
		db:     db,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply executes the given migrations in order and stops at the first
// failure. It returns how many were committed. On failure the returned error
// is a *MigrationError naming the migration that failed; every migration
// before it stays committed.
func (e *Executor) Apply(ctx context.Context, migrations []migration.Migration) (int, error) {
	applied := 0

	for i := range migrations {
		m := &migrations[i]

		if e.dryRun {
			e.fireProgress(ProgressEvent{Migration: m, Status: StatusSkipped})

			continue
		}

		if _, err := e.ApplyOne(ctx, m); err != nil {
			return applied, err
		}

		applied++
	}

	return applied, nil
}

// ApplyOne executes a single migration in its own transaction and records it
// with its checksum and execution time.
func (e *Executor) ApplyOne(ctx context.Context, m *migration.Migration) (time.Duration, error) {
	if stmt := nonTransactionalStatement(m.SQL); stmt != "" {
		err := &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("%w: %s", ErrNonTransactional, stmt)}
		e.fireProgress(ProgressEvent{Migration: m, Status: StatusFailed, Error: err})

		return 0, err
	}

	e.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})
	e.logger.Info("applying migration", "version", m.Version, "name", m.Name)

	var duration time.Duration

	err := database.InTx(ctx, e.db, func(tx *sql.Tx) error {
		var err error

		duration, err = e.ApplyTx(ctx, tx, m)

		return err
	})
	if err != nil {
		migErr := &MigrationError{Version: m.Version, Name: m.Name, Err: err}

		e.logger.Error("migration failed, transaction rolled back",
			"version", m.Version, "name", m.Name, "error", err)
		e.fireProgress(ProgressEvent{
			Migration: m,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     migErr,
		})

		return duration, migErr
	}

	e.logger.Info("migration applied",
		"version", m.Version, "name", m.Name, "duration_ms", duration.Milliseconds())
	e.fireProgress(ProgressEvent{
		Migration: m,
		Status:    StatusCompleted,
		Duration:  duration,
	})

	return duration, nil
}

// ApplyTx executes the migration script on tx and inserts its record. The
// caller owns the transaction.
func (e *Executor) ApplyTx(ctx context.Context, tx *sql.Tx, m *migration.Migration) (time.Duration, error) {
	start := time.Now()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return time.Since(start), fmt.Errorf("executing SQL: %w", err)
	}

	duration := time.Since(start)

	if err := tracker.New(tx).RecordApplied(ctx, tracker.RecordParams{
		Version:         m.Version,
		Name:            m.Name,
		AppliedAt:       e.now(),
		Checksum:        m.Checksum(),
		ExecutionTimeMs: duration.Milliseconds(),
	}); err != nil {
		return duration, err
	}

	return duration, nil
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
