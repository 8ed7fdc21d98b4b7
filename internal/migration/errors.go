package migration

import "errors"

// ErrEmptyRegistry indicates no migrations were compiled in.
var ErrEmptyRegistry = errors.New("migration registry is empty")

// ErrNonSequentialVersion indicates a gap, duplicate or reordering in registry versions.
var ErrNonSequentialVersion = errors.New("migration versions are not sequential")

// ErrMarkerMissing indicates a migration above version 0 declares no legacy marker.
var ErrMarkerMissing = errors.New("migration has no legacy detection marker")

// ErrInvalidFilename indicates a migration file that does not follow NNN_name.sql.
var ErrInvalidFilename = errors.New("invalid migration filename")
