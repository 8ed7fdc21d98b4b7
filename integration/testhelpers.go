//go:build integration

package integration

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/journal-migrate/internal/database"
	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/tracker"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// TempDatabasePath returns a database path in a fresh temp directory. The
// file is not created.
func TempDatabasePath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "trading_journal.db")
}

// OpenDatabase opens a WAL-mode file database at path and closes it when the
// test completes.
func OpenDatabase(t *testing.T, path string, opts ...database.Option) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, path, opts...)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

// SeedLegacy builds the schema of a database that predates migration
// tracking by running scripts 1..version without recording them, then closes
// the handle.
func SeedLegacy(t *testing.T, path string, version uint32) {
	t.Helper()

	db, err := database.Open(context.Background(), path)
	require.NoError(t, err)

	defer db.Close()

	for _, m := range migration.Registry()[1 : version+1] {
		_, err := db.ExecContext(context.Background(), m.SQL)
		require.NoError(t, err, "seeding migration %d", m.Version)
	}
}

// RecordedVersion returns the highest recorded version of db.
func RecordedVersion(t *testing.T, db *sql.DB) uint32 {
	t.Helper()

	v, ok, err := tracker.New(db).CurrentVersion(context.Background())
	require.NoError(t, err)
	require.True(t, ok, "tracking table is empty")

	return v
}
