package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción READ COMMITTED, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback. Las líneas de stock se serializan con SELECT ... FOR UPDATE.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", "", "", err)
	}
	return nil
}

// Repos devuelve los repositorios sobre el pool, para lecturas fuera de transacción.
func (r *TxRunner) Repos() inventory.Repos {
	return NewRepos(r.pool)
}

// NewRepos construye todos los repositorios sobre el mismo Querier (pool o tx).
func NewRepos(q Querier) inventory.Repos {
	return inventory.Repos{
		Stock:      NewStockRepository(q),
		Ledger:     NewLedgerRepository(q),
		Products:   NewProductRepository(q),
		Warehouses: NewWarehouseRepository(q),
		Locations:  NewLocationRepository(q),
		Receipts:   NewReceiptRepository(q),
		Sequences:  NewSequenceRepository(q),
	}
}
