package migration

import (
	"bufio"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// filenamePattern matches migration files such as 006_add_soft_delete.sql.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by LoadFS
	`^(\d+)_([a-z0-9_]+)\.sql$`,
)

// markerPrefix introduces the legacy detection marker in a script's leading comments.
const markerPrefix = "-- marker:"

// LoadFS reads every *.sql file at the root of fsys and returns the migrations
// sorted by version. Files that are not .sql are skipped; .sql files with a
// malformed name are an error so a typo can't silently drop a migration.
func LoadFS(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var migrations []Migration

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}

		m, err := readMigration(fsys, entry.Name())
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, m)
	}

	return Sort(migrations), nil
}

// readMigration reads one script and builds a Migration from its filename and
// marker comment.
func readMigration(fsys fs.FS, name string) (Migration, error) {
	matches := filenamePattern.FindStringSubmatch(name)
	if matches == nil {
		return Migration{}, fmt.Errorf("%w: %s", ErrInvalidFilename, name)
	}

	version, err := strconv.ParseUint(matches[1], 10, 32)
	if err != nil {
		return Migration{}, fmt.Errorf("%w: %s: %w", ErrInvalidFilename, name, err)
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration file %s: %w", name, err)
	}

	sql := strings.TrimSpace(string(data))

	return Migration{
		Version: uint32(version),
		Name:    matches[2],
		SQL:     sql,
		Marker:  scanMarker(sql),
	}, nil
}

// scanMarker looks for a "-- marker: table[.column]" line among the leading
// comment lines of a script.
func scanMarker(sql string) Marker {
	sc := bufio.NewScanner(strings.NewReader(sql))

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "--") {
			break
		}

		if rest, ok := strings.CutPrefix(line, markerPrefix); ok {
			if m, ok := ParseMarker(rest); ok {
				return m
			}
		}
	}

	return Marker{}
}
