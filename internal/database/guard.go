package database

import (
	"context"
	"database/sql"
	"sync"
)

// Guard serialises access to the migrated database handle once it is shared
// with the rest of the process. Every caller holds the lock for exactly one
// statement batch or one transaction.
type Guard struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewGuard wraps db. The caller must not use db directly afterwards.
func NewGuard(db *sql.DB) *Guard {
	return &Guard{db: db}
}

// Do runs fn with exclusive access to the handle.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrGuardClosed
	}

	return fn(ctx, g.db)
}

// Tx runs fn inside a transaction with exclusive access to the handle.
func (g *Guard) Tx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrGuardClosed
	}

	return InTx(ctx, g.db, func(tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}

// Close closes the underlying handle. Safe to call multiple times.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}

	g.closed = true

	return g.db.Close()
}
