// Package backup takes verified snapshots of the database file before a
// migration batch, prunes old snapshots and restores from them.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/aqasim81/journal-migrate/internal/database"
)

// DefaultRetention is the number of snapshots kept after pruning.
const DefaultRetention = 5

// DirName is the backup directory created next to the database file.
const DirName = "backups"

const bytesPerMB = 1 << 20

// Snapshot describes a backup file on disk.
type Snapshot struct {
	Path          string
	Name          string
	TargetVersion uint32
	CreatedAt     time.Time // from the file name
	ModTime       time.Time
	Size          int64
}

// Manager creates, prunes, lists and restores snapshots for one database file.
//
// Snapshots are written by SQLite itself, so fs must be backed by the OS
// filesystem for Create and Restore; any afero.Fs works for List and Prune.
type Manager struct {
	fs        afero.Fs
	dbPath    string
	dir       string
	retention int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithFs sets the filesystem used for directory and file management.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) { m.fs = fs }
}

// WithDir overrides the backup directory. Required for in-memory databases.
func WithDir(dir string) Option {
	return func(m *Manager) { m.dir = dir }
}

// WithRetention sets how many snapshots survive pruning. Values below 1 are ignored.
func WithRetention(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retention = n
		}
	}
}

// WithClock sets the time source used for snapshot names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager for the database at dbPath. Unless overridden, the
// backup directory is "backups" next to the database file.
func New(dbPath string, opts ...Option) *Manager {
	m := &Manager{
		fs:        afero.NewOsFs(),
		dbPath:    dbPath,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.dir == "" && !database.IsMemoryPath(dbPath) && dbPath != "" {
		m.dir = filepath.Join(filepath.Dir(dbPath), DirName)
	}

	return m
}

// Dir returns the resolved backup directory; empty when none could be derived.
func (m *Manager) Dir() string {
	return m.dir
}

// Retention returns the number of snapshots kept by Prune.
func (m *Manager) Retention() int {
	return m.retention
}

// Create snapshots the live database into a new file named after
// targetVersion, verifies it and prunes old snapshots. db is the primary
// handle; it is only used directly for in-memory databases, file databases are
// copied through a separate read-only connection. Any failure is wrapped in
// ErrBackupFailed and means the migration run must not start.
func (m *Manager) Create(ctx context.Context, db *sql.DB, targetVersion uint32) (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("%w: %w: no backup directory for %q", ErrBackupFailed, ErrBackupDir, m.dbPath)
	}

	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrBackupFailed, ErrBackupDir, err)
	}

	path, err := m.uniquePath(targetVersion)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}

	if err := m.copyDatabase(ctx, db, path); err != nil {
		return "", fmt.Errorf("%w: copying database to %s: %w", ErrBackupFailed, path, err)
	}

	size, err := m.Verify(ctx, path)
	if err != nil {
		if rmErr := m.fs.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			m.logger.Warn("could not remove invalid backup", "path", path, "error", rmErr)
		}

		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}

	m.logger.Info("backup created",
		"path", path,
		"size_mb", fmt.Sprintf("%.2f", float64(size)/bytesPerMB),
	)

	if err := m.Prune(); err != nil {
		m.logger.Warn("pruning old backups failed", "dir", m.dir, "error", err)
	}

	return path, nil
}

// Verify checks that the snapshot at path is non-empty and passes SQLite's
// integrity check. It returns the file size.
func (m *Manager) Verify(ctx context.Context, path string) (int64, error) {
	info, err := m.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmptySnapshot, err)
	}

	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptySnapshot, path)
	}

	snap, err := database.OpenReadOnly(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer snap.Close()

	if err := database.IntegrityCheck(ctx, snap); err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", path, err)
	}

	return info.Size(), nil
}

// List returns the snapshots in the backup directory, oldest first by
// modification time. A missing directory yields no snapshots.
func (m *Manager) List() ([]Snapshot, error) {
	if m.dir == "" {
		return nil, nil
	}

	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading backup directory %s: %w", m.dir, err)
	}

	var snaps []Snapshot

	for _, info := range entries {
		if info.IsDir() {
			continue
		}

		version, unix, ok := ParseSnapshotName(info.Name())
		if !ok {
			continue
		}

		snaps = append(snaps, Snapshot{
			Path:          filepath.Join(m.dir, info.Name()),
			Name:          info.Name(),
			TargetVersion: version,
			CreatedAt:     time.Unix(unix, 0).UTC(),
			ModTime:       info.ModTime(),
			Size:          info.Size(),
		})
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if snaps[i].ModTime.Equal(snaps[j].ModTime) {
			return snaps[i].Name < snaps[j].Name
		}

		return snaps[i].ModTime.Before(snaps[j].ModTime)
	})

	return snaps, nil
}

// Prune deletes all but the newest Retention snapshots. Individual removal
// failures are logged and skipped.
func (m *Manager) Prune() error {
	snaps, err := m.List()
	if err != nil {
		return err
	}

	if len(snaps) <= m.retention {
		return nil
	}

	for _, s := range snaps[:len(snaps)-m.retention] {
		if err := m.fs.Remove(s.Path); err != nil {
			m.logger.Warn("failed to delete old backup", "path", s.Path, "error", err)

			continue
		}

		m.logger.Debug("deleted old backup", "path", s.Path)
	}

	return nil
}

// uniquePath returns a snapshot path that does not exist yet. Runs within the
// same second get the timestamp bumped so names stay unique and well-formed.
func (m *Manager) uniquePath(targetVersion uint32) (string, error) {
	unix := m.now().Unix()

	for {
		path := filepath.Join(m.dir, SnapshotName(targetVersion, unix))

		_, err := m.fs.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}

		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}

		unix++
	}
}

// copyDatabase writes a consistent copy of the database into dst with
// VACUUM INTO, which reads a snapshot without blocking the primary writer.
func (m *Manager) copyDatabase(ctx context.Context, primary *sql.DB, dst string) error {
	if database.IsMemoryPath(m.dbPath) {
		_, err := primary.ExecContext(ctx, "VACUUM INTO ?", dst)

		return err
	}

	src, err := database.OpenReadOnly(ctx, m.dbPath)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = src.ExecContext(ctx, "VACUUM INTO ?", dst)

	return err
}
