package runner_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/journal-migrate/internal/backup"
	"github.com/aqasim81/journal-migrate/internal/database"
	"github.com/aqasim81/journal-migrate/internal/executor"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/runner"
	"github.com/aqasim81/journal-migrate/internal/tracker"
	"github.com/aqasim81/journal-migrate/internal/verifier"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const testUnix = 1700000000

func clock() time.Time { return time.Unix(testUnix, 0) }

func openFile(t *testing.T) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trading_journal.db")

	db, err := database.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, path
}

func newRunner(t *testing.T, db *sql.DB, path string, opts ...runner.Option) *runner.Runner {
	t.Helper()

	base := []runner.Option{runner.WithLogger(discard), runner.WithClock(clock)}

	r, err := runner.New(db, path, append(base, opts...)...)
	require.NoError(t, err)

	return r
}

func currentVersion(t *testing.T, db *sql.DB) uint32 {
	t.Helper()

	v, ok, err := tracker.New(db).CurrentVersion(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	return v
}

func applyRaw(t *testing.T, db *sql.DB, ms []migration.Migration) {
	t.Helper()

	for _, m := range ms {
		_, err := db.ExecContext(context.Background(), m.SQL)
		require.NoError(t, err, "raw migration %d", m.Version)
	}
}

func TestNew_rejectsInvalidRegistry(t *testing.T) {
	t.Parallel()

	_, err := runner.New(nil, "", runner.WithMigrations([]migration.Migration{
		{Version: 0, Name: "bootstrap"},
		{Version: 2, Name: "gap", Marker: migration.Marker{Table: "x"}},
	}))
	require.ErrorIs(t, err, migration.ErrNonSequentialVersion)
}

func TestRun_freshInstallReachesLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, path := openFile(t)
	latest := migration.Latest(migration.Registry())

	var states []runner.State

	res, err := newRunner(t, db, path, runner.WithStateHook(func(s runner.State) {
		states = append(states, s)
	})).Run(ctx)
	require.NoError(t, err)

	assert.True(t, res.Bootstrapped)
	assert.Zero(t, res.LegacyVersion)
	assert.Equal(t, int(latest), res.Applied)
	assert.Equal(t, latest, res.ToVersion)
	assert.Equal(t, latest, currentVersion(t, db))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, int(latest)+1, res.Verification.Checked)

	assert.Equal(t, []runner.State{
		runner.StateStart,
		runner.StateLegacyCheck,
		runner.StateBootstrapLegacy,
		runner.StateComputePending,
		runner.StateBackup,
		runner.StateApplyLoop,
		runner.StateVerify,
		runner.StateDone,
	}, states)
	assert.Equal(t, states, res.States)

	applied, err := tracker.New(db).GetApplied(ctx)
	require.NoError(t, err)

	for _, row := range applied {
		assert.True(t, row.Checksum.Valid, "version %d", row.Version)
		assert.False(t, row.Notes.Valid, "version %d", row.Version)
	}
}

func TestRun_ignoresCancellationOnceStarted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cancelAt runner.State
	}{
		{name: "during legacy check", cancelAt: runner.StateLegacyCheck},
		{name: "before backup", cancelAt: runner.StateBackup},
		{name: "before apply loop", cancelAt: runner.StateApplyLoop},
		{name: "before verify", cancelAt: runner.StateVerify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			db, path := openFile(t)
			latest := migration.Latest(migration.Registry())

			res, err := newRunner(t, db, path, runner.WithStateHook(func(s runner.State) {
				if s == tt.cancelAt {
					cancel()
				}
			})).Run(ctx)
			require.NoError(t, err)
			require.Error(t, ctx.Err())

			assert.Equal(t, latest, res.ToVersion)
			assert.Equal(t, latest, currentVersion(t, db))
			assert.Equal(t, runner.StateDone, res.States[len(res.States)-1])
		})
	}
}

func TestRun_idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, path := openFile(t)

	first, err := newRunner(t, db, path).Run(ctx)
	require.NoError(t, err)
	assert.Positive(t, first.Applied)

	second, err := newRunner(t, db, path).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Applied)
	assert.Empty(t, second.BackupPath, "no backup without pending work")
	assert.False(t, second.Bootstrapped)
	assert.NotContains(t, second.States, runner.StateBackup)
	assert.Contains(t, second.States, runner.StateVerify)

	n, err := runner.Migrate(ctx, db, path, runner.WithLogger(discard))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_backupIsValid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, path := openFile(t)
	latest := migration.Latest(migration.Registry())

	res, err := newRunner(t, db, path).Run(ctx)
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(path), "backups", backup.SnapshotName(latest, testUnix))
	assert.Equal(t, want, res.BackupPath)

	info, err := os.Stat(res.BackupPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	snap, err := database.OpenReadOnly(ctx, res.BackupPath)
	require.NoError(t, err)
	defer snap.Close()

	require.NoError(t, database.IntegrityCheck(ctx, snap))

	// The snapshot predates the batch: only the bootstrap is recorded in it.
	exists, err := database.TableExists(ctx, snap, "trades")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_legacyDetection(t *testing.T) {
	t.Parallel()

	registry := migration.Registry()
	latest := migration.Latest(registry)

	for k := uint32(1); k <= latest; k++ {
		t.Run(fmt.Sprintf("v%d", k), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			db, path := openFile(t)
			applyRaw(t, db, registry[1:k+1])

			res, err := newRunner(t, db, path).Run(ctx)
			require.NoError(t, err)

			assert.True(t, res.Bootstrapped)
			assert.Equal(t, k, res.LegacyVersion)
			assert.Equal(t, int(latest-k), res.Applied)
			assert.Equal(t, latest, currentVersion(t, db))
			assert.Equal(t, int(k), res.Verification.Legacy)

			applied, err := tracker.New(db).GetApplied(ctx)
			require.NoError(t, err)
			require.Len(t, applied, int(latest)+1)

			for _, row := range applied {
				legacy := row.Version >= 1 && row.Version <= k
				assert.Equal(t, !legacy, row.Checksum.Valid, "version %d checksum", row.Version)

				if legacy {
					assert.Equal(t, tracker.LegacyNote, row.Notes.V)
				}
			}
		})
	}
}

func TestRun_legacyAtLatestTakesNoBackup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := migration.Registry()
	db, path := openFile(t)
	applyRaw(t, db, registry[1:])

	res, err := newRunner(t, db, path).Run(ctx)
	require.NoError(t, err)

	assert.Zero(t, res.Applied)
	assert.Empty(t, res.BackupPath)

	_, err = os.Stat(filepath.Join(filepath.Dir(path), "backups"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_failedMigrationDoesNotAdvance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := migration.Registry()

	const k = 3

	ms := append([]migration.Migration{}, registry[:k+1]...)
	ms = append(ms, migration.Migration{
		Version: k + 1,
		Name:    "broken",
		SQL:     "CREATE TABLE half_applied (id TEXT);\nALTER TABLE trades ADD COLUMN broken_col TEXT;\nALTER TABLE no_such_table ADD COLUMN x TEXT;",
		Marker:  migration.Marker{Table: "half_applied"},
	})

	db, path := openFile(t)

	var failed []executor.ProgressEvent

	res, err := newRunner(t, db, path,
		runner.WithMigrations(ms),
		runner.WithProgressCallback(func(e executor.ProgressEvent) {
			if e.Status == executor.StatusFailed {
				failed = append(failed, e)
			}
		}),
	).Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, runner.ErrMigrationFailed)

	var applyErr *runner.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, uint32(k+1), applyErr.Version)
	assert.Equal(t, "broken", applyErr.Name)
	assert.NotEmpty(t, applyErr.BackupPath)
	assert.Contains(t, err.Error(), applyErr.BackupPath)
	assert.Equal(t, res.BackupPath, applyErr.BackupPath)

	assert.Equal(t, k, res.Applied)
	assert.Equal(t, runner.StateFatal, res.States[len(res.States)-1])
	assert.Equal(t, uint32(k), currentVersion(t, db))
	require.Len(t, failed, 1)

	exists, err := database.TableExists(ctx, db, "half_applied")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = database.ColumnExists(ctx, db, "trades", "broken_col")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_checksumTamperDetected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, path := openFile(t)

	_, err := newRunner(t, db, path).Run(ctx)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "UPDATE schema_migrations SET checksum = 'tampered' WHERE version = 2")
	require.NoError(t, err)

	_, err = newRunner(t, db, path).Run(ctx)
	require.ErrorIs(t, err, verifier.ErrChecksumMismatch)

	var mismatch *verifier.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint32(2), mismatch.Version)
	assert.Equal(t, "tampered", mismatch.Actual)
	assert.Equal(t, migration.Registry()[2].Checksum(), mismatch.Expected)
}

func TestRun_modifiedScriptDetected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, path := openFile(t)

	_, err := newRunner(t, db, path).Run(ctx)
	require.NoError(t, err)

	ms := migration.Registry()
	ms[5].SQL += "\n-- edited after release"

	_, err = newRunner(t, db, path, runner.WithMigrations(ms)).Run(ctx)
	require.ErrorIs(t, err, verifier.ErrChecksumMismatch)
}

func TestRun_schemaAhead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, path := openFile(t)

	_, err := newRunner(t, db, path).Run(ctx)
	require.NoError(t, err)

	require.NoError(t, tracker.New(db).RecordApplied(ctx, tracker.RecordParams{
		Version: 99, Name: "from_the_future", AppliedAt: clock(), Checksum: "x",
	}))

	_, err = newRunner(t, db, path).Run(ctx)
	require.ErrorIs(t, err, runner.ErrSchemaAhead)
}

func TestRun_backupFailureAbortsBeforeMigrating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	res, err := newRunner(t, db, ":memory:").Run(ctx)
	require.ErrorIs(t, err, backup.ErrBackupFailed)
	assert.Zero(t, res.Applied)

	exists, err := database.TableExists(ctx, db, "trades")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_memoryDatabaseWithBackupDir(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()

	res, err := newRunner(t, db, ":memory:", runner.WithBackupOptions(backup.WithDir(dir))).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(res.BackupPath))
	assert.Equal(t, migration.Latest(migration.Registry()), currentVersion(t, db))
}

func TestRun_dryRunChangesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := migration.Registry()

	t.Run("fresh", func(t *testing.T) {
		t.Parallel()

		db, path := openFile(t)

		res, err := newRunner(t, db, path, runner.WithDryRun(true)).Run(ctx)
		require.NoError(t, err)
		assert.Len(t, res.Pending, len(registry))
		assert.Zero(t, res.Applied)

		exists, err := tracker.New(db).Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("legacy", func(t *testing.T) {
		t.Parallel()

		db, path := openFile(t)
		applyRaw(t, db, registry[1:5])

		res, err := newRunner(t, db, path, runner.WithDryRun(true)).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), res.LegacyVersion)
		require.Len(t, res.Pending, len(registry)-5)
		assert.Equal(t, uint32(5), res.Pending[0].Version)
	})

	t.Run("tracked", func(t *testing.T) {
		t.Parallel()

		db, path := openFile(t)

		_, err := newRunner(t, db, path, runner.WithMigrations(registry[:3])).Run(ctx)
		require.NoError(t, err)

		res, err := newRunner(t, db, path, runner.WithDryRun(true)).Run(ctx)
		require.NoError(t, err)
		assert.Len(t, res.Pending, len(registry)-3)
		assert.Equal(t, uint32(2), currentVersion(t, db))
		assert.Contains(t, res.States, runner.StateVerify)
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := migration.Registry()
	db, path := openFile(t)

	st, err := newRunner(t, db, path).Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Tracked)
	assert.Len(t, st.Pending, len(registry))

	_, err = newRunner(t, db, path, runner.WithMigrations(registry[:4])).Run(ctx)
	require.NoError(t, err)

	st, err = newRunner(t, db, path).Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Tracked)
	assert.Equal(t, uint32(3), st.Current)
	assert.Equal(t, migration.Latest(registry), st.Latest)
	assert.Len(t, st.Applied, 4)
	require.Len(t, st.Pending, len(registry)-4)
	assert.Equal(t, uint32(4), st.Pending[0].Version)
}

func TestOpen_returnsGuardedHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	guard, res, err := runner.Open(ctx, path, nil, runner.WithLogger(discard))
	require.NoError(t, err)
	t.Cleanup(func() { guard.Close() })

	assert.Positive(t, res.Applied)

	err = guard.Do(ctx, func(ctx context.Context, q database.Querier) error {
		_, err := q.ExecContext(ctx, "UPDATE settings SET currency = 'EUR' WHERE id = 1")

		return err
	})
	require.NoError(t, err)
}

func TestOpen_failureClosesHandle(t *testing.T) {
	t.Parallel()

	_, _, err := runner.Open(context.Background(), ":memory:", nil, runner.WithLogger(discard))
	require.ErrorIs(t, err, backup.ErrBackupFailed)
}
