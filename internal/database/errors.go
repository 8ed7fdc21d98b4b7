package database

import "errors"

// ErrInvalidPath indicates an empty or unusable database path.
var ErrInvalidPath = errors.New("invalid database path")

// ErrConnectionFailed indicates the database could not be opened or pinged.
var ErrConnectionFailed = errors.New("database connection failed")

// ErrIntegrityCheck indicates PRAGMA integrity_check reported problems.
var ErrIntegrityCheck = errors.New("integrity check failed")

// ErrGuardClosed indicates use of a Guard after Close.
var ErrGuardClosed = errors.New("database handle closed")
