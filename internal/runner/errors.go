package runner

import (
	"errors"
	"fmt"
)

// ErrMigrationFailed is matched by every *ApplyError.
var ErrMigrationFailed = errors.New("migration failed")

// ErrSchemaAhead indicates the database records a version newer than any
// migration compiled into this binary.
var ErrSchemaAhead = errors.New("database schema is newer than this build")

// ApplyError reports the migration that stopped a run and the backup taken
// before the run started.
type ApplyError struct {
	Version    uint32
	Name       string
	BackupPath string
	Err        error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed, schema left at the previous version; backup at %s: %v",
		e.Version, e.Name, e.BackupPath, e.Err)
}

func (e *ApplyError) Unwrap() []error {
	return []error{ErrMigrationFailed, e.Err}
}
