package migration

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"
)

//go:embed sql/*.sql
var scriptsFS embed.FS

var loadRegistry = sync.OnceValues(func() ([]Migration, error) { //nolint:gochecknoglobals // embedded, immutable
	sub, err := fs.Sub(scriptsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}

	ms, err := LoadFS(sub)
	if err != nil {
		return nil, err
	}

	if err := Validate(ms); err != nil {
		return nil, err
	}

	return ms, nil
})

// Registry returns the compiled-in migrations in version order. The scripts are
// embedded at build time, so a malformed registry is a programming error and
// panics on first use; the registry tests guard against it.
func Registry() []Migration {
	ms, err := loadRegistry()
	if err != nil {
		panic(fmt.Sprintf("invalid migration registry: %v", err))
	}

	out := make([]Migration, len(ms))
	copy(out, ms)

	return out
}
