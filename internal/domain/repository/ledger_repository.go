package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LedgerFilter filtros del historial de movimientos.
type LedgerFilter struct {
	Type        string
	ProductID   string
	WarehouseID string
	Search      string // subcadena de la referencia
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// LedgerRepository es el puerto del libro de inventario: solo inserción, nunca update ni delete.
type LedgerRepository interface {
	// Append inserta el asiento y asigna entry.Seq.
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	// List devuelve asientos del más reciente al más antiguo.
	List(ctx context.Context, filter LedgerFilter) ([]*entity.LedgerEntry, error)
	CountByType(ctx context.Context) (map[string]int64, error)
	// SumDeltas suma QuantityDelta de un par (producto, bodega).
	SumDeltas(ctx context.Context, productID, warehouseID string) (decimal.Decimal, error)
	// SumMoved suma el valor absoluto de QuantityDelta de los asientos que cumplen el
	// filtro. Ignora Limit y Offset.
	SumMoved(ctx context.Context, filter LedgerFilter) (decimal.Decimal, error)
}
