// Package runner orchestrates a migration run: bootstrap tracking on legacy
// databases, back up, apply pending migrations and verify checksums.
package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aqasim81/journal-migrate/internal/backup"
	"github.com/aqasim81/journal-migrate/internal/database"
	"github.com/aqasim81/journal-migrate/internal/detector"
	"github.com/aqasim81/journal-migrate/internal/executor"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/tracker"
	"github.com/aqasim81/journal-migrate/internal/verifier"
)

// Result describes a finished run.
type Result struct {
	RunID         string
	Bootstrapped  bool   // the tracking table was created by this run
	LegacyVersion uint32 // version detected while bootstrapping
	FromVersion   uint32
	ToVersion     uint32
	Pending       []migration.Migration
	Applied       int
	BackupPath    string
	Verification  verifier.Report
	States        []State
}

// Runner migrates one open database. It is meant to run once, before the
// handle is shared with the rest of the process.
type Runner struct {
	db         *sql.DB
	path       string
	migrations []migration.Migration
	backupOpts []backup.Option
	dryRun     bool
	now        func() time.Time
	logger     *slog.Logger
	onProgress func(executor.ProgressEvent)
	onState    func(State)
}

// Option configures a Runner.
type Option func(*Runner)

// WithMigrations replaces the compiled-in registry.
func WithMigrations(ms []migration.Migration) Option {
	return func(r *Runner) { r.migrations = ms }
}

// WithBackupOptions passes options to the backup manager.
func WithBackupOptions(opts ...backup.Option) Option {
	return func(r *Runner) { r.backupOpts = append(r.backupOpts, opts...) }
}

// WithDryRun reports pending work without bootstrapping, backing up or
// applying anything.
func WithDryRun(b bool) Option {
	return func(r *Runner) { r.dryRun = b }
}

// WithClock sets the time source for applied_at and backup names.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(executor.ProgressEvent)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// WithStateHook sets a function called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(r *Runner) { r.onState = fn }
}

// New creates a Runner for db, whose file lives at path. The registry is
// validated up front.
func New(db *sql.DB, path string, opts ...Option) (*Runner, error) {
	r := &Runner{
		db:     db,
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.migrations == nil {
		r.migrations = migration.Registry()
	}

	if err := migration.Validate(r.migrations); err != nil {
		return nil, fmt.Errorf("invalid migration registry: %w", err)
	}

	return r, nil
}

// Migrate runs all pending migrations against db and returns how many were
// applied.
func Migrate(ctx context.Context, db *sql.DB, path string, opts ...Option) (int, error) {
	r, err := New(db, path, opts...)
	if err != nil {
		return 0, err
	}

	res, err := r.Run(ctx)
	if err != nil {
		return 0, err
	}

	return res.Applied, nil
}

// Run executes one migration run. Any error is fatal: the caller must not
// use the database handle for anything else. Once started, a run is not
// cancellable; ctx only carries values.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	res := &Result{RunID: ulid.Make().String()}
	log := r.logger.With("run_id", res.RunID)

	if err := r.run(ctx, log, res); err != nil {
		r.enter(log, res, StateFatal)
		log.Error("migration run failed", "error", err)

		return res, err
	}

	r.enter(log, res, StateDone)

	return res, nil
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, res *Result) error {
	r.enter(log, res, StateStart)
	r.enter(log, res, StateLegacyCheck)

	tr := tracker.New(r.db)

	tracked, err := tr.Exists(ctx)
	if err != nil {
		return err
	}

	var current uint32

	switch {
	case tracked:
		r.enter(log, res, StateTracked)

		current, _, err = tr.CurrentVersion(ctx)
		if err != nil {
			return err
		}
	case r.dryRun:
		current, err = r.detect(ctx, log, res)
		if err != nil {
			return err
		}
	default:
		r.enter(log, res, StateBootstrapLegacy)

		if err := r.bootstrap(ctx, log, res); err != nil {
			return err
		}

		current = res.LegacyVersion
	}

	r.enter(log, res, StateComputePending)

	latest := migration.Latest(r.migrations)
	if current > latest {
		return fmt.Errorf("%w: database at version %d, latest known is %d", ErrSchemaAhead, current, latest)
	}

	res.FromVersion = current
	res.ToVersion = current

	res.Pending = r.pendingAfter(current, tracked || !r.dryRun)
	log.Info("schema version", "current", current, "latest", latest, "pending", len(res.Pending))

	if len(res.Pending) > 0 && !r.dryRun {
		if err := r.applyPending(ctx, log, res); err != nil {
			return err
		}
	}

	if !tracked && r.dryRun {
		return nil
	}

	r.enter(log, res, StateVerify)

	report, err := verifier.New(r.migrations, verifier.WithLogger(log)).Verify(ctx, r.db)
	res.Verification = report

	var mismatch *verifier.MismatchError
	if errors.As(err, &mismatch) {
		log.Error("checksum mismatch",
			"version", mismatch.Version,
			"name", mismatch.Name,
			"expected", mismatch.Expected,
			"actual", mismatch.Actual,
		)
	}

	return err
}

// detect is the dry-run stand-in for bootstrap: it reports what a real run
// would record without creating the tracking table.
func (r *Runner) detect(ctx context.Context, log *slog.Logger, res *Result) (uint32, error) {
	d, err := detector.Detect(ctx, r.db, r.migrations)
	if err != nil {
		return 0, err
	}

	res.LegacyVersion = d.Version
	log.Info("dry run: tracking table missing", "detected_version", d.Version, "marker", d.Marker.String())

	return d.Version, nil
}

// bootstrap creates the tracking table and records the detected legacy
// versions in one transaction, then checks the schema's consistency.
func (r *Runner) bootstrap(ctx context.Context, log *slog.Logger, res *Result) error {
	d, err := detector.Detect(ctx, r.db, r.migrations)
	if err != nil {
		return err
	}

	if d.Version > 0 {
		log.Warn("legacy database detected; version inferred from schema markers is a best-effort heuristic",
			"detected_version", d.Version,
			"marker", d.Marker.String(),
		)
	} else {
		log.Info("initialising migration tracking")
	}

	exec := executor.New(r.db, executor.WithClock(r.now), executor.WithLogger(log))
	at := r.now()

	err = database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := exec.ApplyTx(ctx, tx, &r.migrations[0]); err != nil {
			return fmt.Errorf("bootstrapping tracking table: %w", err)
		}

		tt := tracker.New(tx)

		for v := uint32(1); v <= d.Version; v++ {
			if err := tt.RecordLegacy(ctx, v, r.migrations[v].Name, at); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	res.Bootstrapped = true
	res.LegacyVersion = d.Version

	if err := database.IntegrityCheck(ctx, r.db); err != nil {
		return fmt.Errorf("schema check after bootstrap: %w", err)
	}

	fk, err := database.ForeignKeysEnabled(ctx, r.db)
	if err != nil {
		return err
	}

	if !fk {
		log.Warn("foreign keys are not enabled on this connection")
	}

	return nil
}

// pendingAfter returns the migrations newer than current. Version 0 is only
// pending when the tracking table is known to be missing.
func (r *Runner) pendingAfter(current uint32, bootstrapped bool) []migration.Migration {
	start := current + 1
	if !bootstrapped && current == 0 {
		start = 0
	}

	if int(start) >= len(r.migrations) {
		return nil
	}

	pending := make([]migration.Migration, len(r.migrations)-int(start))
	copy(pending, r.migrations[start:])

	return pending
}

func (r *Runner) applyPending(ctx context.Context, log *slog.Logger, res *Result) error {
	target := res.Pending[len(res.Pending)-1].Version

	r.enter(log, res, StateBackup)

	opts := append([]backup.Option{backup.WithClock(r.now), backup.WithLogger(log)}, r.backupOpts...)

	path, err := backup.New(r.path, opts...).Create(ctx, r.db, target)
	if err != nil {
		return err
	}

	res.BackupPath = path

	r.enter(log, res, StateApplyLoop)

	exec := executor.New(r.db,
		executor.WithClock(r.now),
		executor.WithLogger(log),
		executor.WithProgressCallback(r.onProgress),
	)

	applied, err := exec.Apply(ctx, res.Pending)
	res.Applied = applied

	if applied > 0 {
		res.ToVersion = res.Pending[applied-1].Version
	}

	if err != nil {
		var migErr *executor.MigrationError
		if errors.As(err, &migErr) {
			log.Error("migration failed; restore from the backup if needed",
				"version", migErr.Version, "backup", path, "error", migErr.Err)

			return &ApplyError{Version: migErr.Version, Name: migErr.Name, BackupPath: path, Err: migErr.Err}
		}

		return err
	}

	log.Info("migrations applied", "count", applied, "version", res.ToVersion)

	return nil
}

func (r *Runner) enter(log *slog.Logger, res *Result, s State) {
	res.States = append(res.States, s)
	log.Debug("migration state", "state", string(s))

	if r.onState != nil {
		r.onState(s)
	}
}
