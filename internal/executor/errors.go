package executor

import (
	"errors"
	"fmt"
)

// ErrExecutionFailed indicates a migration failed to execute. Its transaction
// was rolled back and nothing of it was recorded.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrNonTransactional indicates a script contains a statement SQLite cannot
// run inside a transaction.
var ErrNonTransactional = errors.New("statement cannot run inside a migration transaction")

// MigrationError identifies the migration that failed. It matches
// ErrExecutionFailed and unwraps to the underlying cause.
type MigrationError struct {
	Version uint32
	Name    string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s): %v", e.Version, e.Name, e.Err)
}

func (e *MigrationError) Unwrap() []error {
	return []error{ErrExecutionFailed, e.Err}
}
