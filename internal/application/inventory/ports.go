package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción.
type Repos struct {
	Stock      repository.StockRepository
	Ledger     repository.LedgerRepository
	Products   repository.ProductRepository
	Warehouses repository.WarehouseRepository
	Locations  repository.LocationRepository
	Receipts   repository.ReceiptRepository
	Sequences  repository.SequenceRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Garantiza atomicidad para el motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}
