package migration_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/journal-migrate/internal/migration"
)

func TestLoadFS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr error
		check   func(t *testing.T, ms []migration.Migration)
	}{
		{
			name: "loads and sorts by version",
			files: fstest.MapFS{
				"001_create_trades.sql": {Data: []byte("-- marker: trades\nCREATE TABLE trades (id TEXT);")},
				"000_bootstrap.sql":     {Data: []byte("CREATE TABLE schema_migrations (version INTEGER);")},
			},
			check: func(t *testing.T, ms []migration.Migration) {
				t.Helper()
				require.Len(t, ms, 2)
				assert.Equal(t, uint32(0), ms[0].Version)
				assert.Equal(t, "bootstrap", ms[0].Name)
				assert.True(t, ms[0].Marker.IsZero())
				assert.Equal(t, uint32(1), ms[1].Version)
				assert.Equal(t, "create_trades", ms[1].Name)
				assert.Equal(t, migration.Marker{Table: "trades"}, ms[1].Marker)
			},
		},
		{
			name:  "empty directory returns empty slice",
			files: fstest.MapFS{},
			check: func(t *testing.T, ms []migration.Migration) {
				t.Helper()
				assert.Empty(t, ms)
			},
		},
		{
			name: "non-sql files are skipped",
			files: fstest.MapFS{
				"README.md": {Data: []byte("# readme")},
			},
			check: func(t *testing.T, ms []migration.Migration) {
				t.Helper()
				assert.Empty(t, ms)
			},
		},
		{
			name: "malformed sql filename is an error",
			files: fstest.MapFS{
				"V1_create.up.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: migration.ErrInvalidFilename,
		},
		{
			name: "content is trimmed before checksum",
			files: fstest.MapFS{
				"000_bootstrap.sql": {Data: []byte("  SELECT 1;  \n")},
			},
			check: func(t *testing.T, ms []migration.Migration) {
				t.Helper()
				require.Len(t, ms, 1)
				assert.Equal(t, "SELECT 1;", ms[0].SQL)
				assert.Equal(t, migration.ComputeChecksum("SELECT 1;"), ms[0].Checksum())
			},
		},
		{
			name: "marker after first statement is ignored",
			files: fstest.MapFS{
				"002_x.sql": {Data: []byte("ALTER TABLE t ADD COLUMN c TEXT;\n-- marker: t.c")},
			},
			check: func(t *testing.T, ms []migration.Migration) {
				t.Helper()
				require.Len(t, ms, 1)
				assert.True(t, ms[0].Marker.IsZero())
			},
		},
		{
			name: "column marker among other comments",
			files: fstest.MapFS{
				"002_x.sql": {Data: []byte("-- adds c\n-- marker: t.c\nALTER TABLE t ADD COLUMN c TEXT;")},
			},
			check: func(t *testing.T, ms []migration.Migration) {
				t.Helper()
				require.Len(t, ms, 1)
				assert.Equal(t, migration.Marker{Table: "t", Column: "c"}, ms[0].Marker)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ms, err := migration.LoadFS(tt.files)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)

			if tt.check != nil {
				tt.check(t, ms)
			}
		})
	}
}
