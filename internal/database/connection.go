package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DriverName is the database/sql driver used for every connection.
const DriverName = "sqlite"

const (
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
)

type openOptions struct {
	busyTimeout time.Duration
	journalMode string
}

// Option configures Open.
type Option func(*openOptions)

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *openOptions) { o.busyTimeout = d }
}

// WithJournalMode sets the journal mode for file databases (e.g. WAL, DELETE).
func WithJournalMode(mode string) Option {
	return func(o *openOptions) { o.journalMode = mode }
}

// Open opens the SQLite database at path with foreign keys enforced, the busy
// timeout applied and, for file databases, the requested journal mode. The pool
// is limited to one connection: the migration engine and the rest of the
// process share a single writer.
func Open(ctx context.Context, path string, opts ...Option) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidPath
	}

	o := openOptions{busyTimeout: defaultBusyTimeout, journalMode: defaultJournalMode}
	for _, opt := range opts {
		opt(&o)
	}

	pragmas := []string{
		fmt.Sprintf("busy_timeout(%d)", o.busyTimeout.Milliseconds()),
		"foreign_keys(1)",
	}
	if !IsMemoryPath(path) && o.journalMode != "" {
		pragmas = append(pragmas, fmt.Sprintf("journal_mode(%s)", o.journalMode))
	}

	db, err := sql.Open(DriverName, withPragmas(path, pragmas))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(1)
	// An in-memory database lives only as long as its connection.
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return db, nil
}

// OpenReadOnly opens a short-lived, read-only connection to an existing file
// database. It never creates the file and holds no write locks.
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	if IsMemoryPath(path) || strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: %q cannot be opened read-only", ErrInvalidPath, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", defaultBusyTimeout.Milliseconds()))

	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: q.Encode()}).String()

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return db, nil
}

// IsMemoryPath reports whether path names an in-memory database.
func IsMemoryPath(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

func withPragmas(path string, pragmas []string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + q.Encode()
}
