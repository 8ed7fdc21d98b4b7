package tracker

// TableName is the reserved metadata table created by migration 0.
const TableName = "schema_migrations"

// LegacyNote marks rows inserted retroactively for a database that predates
// version tracking. Such rows carry no checksum.
const LegacyNote = "legacy migration - detected via introspection"

const selectAppliedSQL = `SELECT version, name, applied_at, checksum, execution_time_ms, notes
FROM schema_migrations
ORDER BY version`

const insertSQL = `INSERT INTO schema_migrations (version, name, applied_at, checksum, execution_time_ms, notes)
VALUES (?, ?, ?, ?, ?, ?)`
