package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out database transactions to the service layer.
// Every multi-row ledger mutation (transfer, deposit reconcile, key
// rollover, user onboarding) runs inside one of these so the rows
// commit or roll back together.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the connection pool as a ports.DBTransactor.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction on the pool. Callers defer Rollback
// immediately; rolling back after a successful Commit is a no-op.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
