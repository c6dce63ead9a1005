package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/moim/internal/db"
)

// psql builds statements with $n placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresStore implements Store on top of a pgx pool
type PostgresStore struct {
	db *db.PostgresDB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(database *db.PostgresDB) *PostgresStore {
	return &PostgresStore{db: database}
}

var _ Store = (*PostgresStore)(nil)

// RunInTx runs fn in a serializable transaction, re-running it when it loses a race
func (s *PostgresStore) RunInTx(ctx context.Context, fn TxFn) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{q: tx})
	})
}

// Ping checks the connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Pool.Ping(ctx)
}

// pgTx adapts a pgx transaction to the Tx interface
type pgTx struct {
	q db.Querier
}

var _ Tx = (*pgTx)(nil)
