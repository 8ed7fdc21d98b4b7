package runner

import (
	"context"

	"github.com/aqasim81/journal-migrate/internal/migration"
	"github.com/aqasim81/journal-migrate/internal/tracker"
)

// Status is a read-only snapshot of a database's migration state.
type Status struct {
	Tracked bool
	Current uint32
	Latest  uint32
	Applied []tracker.AppliedMigration
	Pending []migration.Migration
}

// Status reports the applied and pending migrations without changing
// anything. An untracked database reports every migration as pending.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	st := &Status{Latest: migration.Latest(r.migrations)}
	tr := tracker.New(r.db)

	tracked, err := tr.Exists(ctx)
	if err != nil {
		return nil, err
	}

	st.Tracked = tracked

	if !tracked {
		st.Pending = r.pendingAfter(0, false)

		return st, nil
	}

	if st.Applied, err = tr.GetApplied(ctx); err != nil {
		return nil, err
	}

	if st.Current, _, err = tr.CurrentVersion(ctx); err != nil {
		return nil, err
	}

	st.Pending = r.pendingAfter(st.Current, true)

	return st, nil
}
