package runner

import (
	"context"
	"fmt"

	"github.com/aqasim81/journal-migrate/internal/database"
)

// Open opens the database at path, migrates it and returns the handle wrapped
// in a Guard for the rest of the process. On any error the handle is closed.
func Open(ctx context.Context, path string, dbOpts []database.Option, opts ...Option) (*database.Guard, *Result, error) {
	db, err := database.Open(ctx, path, dbOpts...)
	if err != nil {
		return nil, nil, err
	}

	r, err := New(db, path, opts...)
	if err != nil {
		db.Close()

		return nil, nil, err
	}

	res, err := r.Run(ctx)
	if err != nil {
		db.Close()

		return nil, res, fmt.Errorf("migrating %s: %w", path, err)
	}

	return database.NewGuard(db), res, nil
}
