package rules

import "github.com/aqasim81/journal-migrate/internal/analyzer"

// NewDefaultRegistry returns a Registry with all built-in detection rules.
func NewDefaultRegistry() *analyzer.Registry {
	r := analyzer.NewRegistry()
	r.Register(NewDropTableRule())
	r.Register(NewDropColumnRule())
	r.Register(NewRenameRule())
	r.Register(NewUnsupportedAlterRule())
	r.Register(NewAddColumnRule())
	r.Register(NewCreateIndexRule())
	r.Register(NewVacuumRule())
	r.Register(NewLockTableRule())

	return r
}
