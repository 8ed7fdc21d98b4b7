package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/aqasim81/journal-migrate/internal/database"
)

// Restore replaces the database file with the snapshot at snapshotPath. The
// current file is first copied aside as pre_restore_<unix>.db in the backup
// directory, and its -wal/-shm companions are removed so SQLite does not
// replay them over the restored content. The database must not be open.
//
// It returns the path of the saved copy of the replaced database, or "" when
// there was no database file to save.
func (m *Manager) Restore(ctx context.Context, snapshotPath string) (string, error) {
	if database.IsMemoryPath(m.dbPath) || m.dbPath == "" {
		return "", fmt.Errorf("restore needs a database file, got %q", m.dbPath)
	}

	if _, _, ok := ParseSnapshotName(filepath.Base(snapshotPath)); !ok {
		return "", fmt.Errorf("%w: %s", ErrNotSnapshot, snapshotPath)
	}

	if _, err := m.Verify(ctx, snapshotPath); err != nil {
		return "", fmt.Errorf("refusing to restore: %w", err)
	}

	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupDir, err)
	}

	saved := ""

	if _, err := m.fs.Stat(m.dbPath); err == nil {
		saved = filepath.Join(m.dir, fmt.Sprintf("%s%d%s", restorePrefix, m.now().Unix(), snapshotExt))
		if err := m.copyFile(m.dbPath, saved); err != nil {
			return "", fmt.Errorf("saving current database: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking database file: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := m.fs.Remove(m.dbPath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return saved, fmt.Errorf("removing %s%s: %w", m.dbPath, suffix, err)
		}
	}

	if err := m.copyFile(snapshotPath, m.dbPath); err != nil {
		return saved, fmt.Errorf("restoring %s: %w", snapshotPath, err)
	}

	m.logger.Info("database restored", "from", snapshotPath, "saved_current", saved)

	return saved, nil
}

func (m *Manager) copyFile(src, dst string) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"

	out, err := m.fs.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		m.fs.Remove(tmp) //nolint:errcheck // best-effort cleanup

		return err
	}

	if err := out.Sync(); err != nil {
		out.Close()
		m.fs.Remove(tmp) //nolint:errcheck // best-effort cleanup

		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	return m.fs.Rename(tmp, dst)
}
