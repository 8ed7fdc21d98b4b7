package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Marker is the structural fingerprint a migration leaves in the schema. It is
// used to recognise databases that were migrated before version tracking
// existed. An empty Column means the presence of Table itself is the marker.
type Marker struct {
	Table  string
	Column string
}

// IsZero reports whether no marker is declared.
func (m Marker) IsZero() bool {
	return m.Table == ""
}

// String returns the marker in "table" or "table.column" form.
func (m Marker) String() string {
	if m.Column == "" {
		return m.Table
	}

	return m.Table + "." + m.Column
}

// ParseMarker parses "table" or "table.column".
func ParseMarker(s string) (Marker, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Marker{}, false
	}

	table, column, _ := strings.Cut(s, ".")
	if table == "" {
		return Marker{}, false
	}

	return Marker{Table: table, Column: column}, true
}

// Migration is a single compiled-in schema change.
type Migration struct {
	Version uint32 // 0 is reserved for the tracking table bootstrap
	Name    string // "add_soft_delete", extracted from the filename
	SQL     string // full script, executed as one batch
	Marker  Marker // legacy detection marker; zero for version 0
}

// Checksum returns the SHA-256 hex digest of the migration script.
func (m *Migration) Checksum() string {
	return ComputeChecksum(m.SQL)
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
