package backup

import "errors"

// ErrBackupFailed is wrapped by every error that aborts a backup. No schema
// change has happened when it is returned.
var ErrBackupFailed = errors.New("pre-migration backup failed")

// ErrBackupDir indicates the backup directory could not be resolved or created.
var ErrBackupDir = errors.New("backup directory unavailable")

// ErrEmptySnapshot indicates the snapshot file is missing or has zero size.
var ErrEmptySnapshot = errors.New("backup snapshot is empty")

// ErrNotSnapshot indicates a file that does not follow the snapshot naming pattern.
var ErrNotSnapshot = errors.New("not a backup snapshot")
