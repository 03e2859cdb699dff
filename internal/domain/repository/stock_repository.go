package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockFilter filtros de listado de líneas de stock.
type StockFilter struct {
	ProductID   string
	WarehouseID string
	Limit       int
	Offset      int
}

// StockRepository define el puerto para consultar/actualizar stock por bodega+producto.
// Las escrituras se hacen dentro de transacciones (TxRunner).
type StockRepository interface {
	// Get devuelve la línea o una línea en cero si no existe (sin crearla).
	Get(ctx context.Context, productID, warehouseID string) (*entity.StockLine, error)
	// GetForUpdate crea la línea en cero si no existe y la bloquea hasta el fin de la tx.
	GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.StockLine, error)
	// Save escribe la cantidad si la versión no cambió desde la lectura; si cambió
	// devuelve domain.ErrConcurrencyConflict. Incrementa line.Version.
	Save(ctx context.Context, line *entity.StockLine) error
	SumByProduct(ctx context.Context, productID string) (decimal.Decimal, error)
	List(ctx context.Context, filter StockFilter) ([]*entity.StockLine, error)
}
