package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductFilter filtros de listado de productos.
type ProductFilter struct {
	Search   string // nombre o SKU, sin distinguir mayúsculas
	Category string
	Limit    int
	Offset   int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// Los Get devuelven (nil, nil) si no existe el registro.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate lee el producto y bloquea la fila hasta el fin de la tx. Toda mutación
	// de stock lo toma antes que las líneas, así la proyección y el costo no pierden escrituras.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	GetByName(ctx context.Context, name string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// Update persiste los campos de catálogo; nunca toca OnHand/FreeToUse.
	Update(ctx context.Context, product *entity.Product) error
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
	// UpdateStockTotals es la única escritura de la proyección de stock.
	UpdateStockTotals(ctx context.Context, productID string, onHand, freeToUse decimal.Decimal) error
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	ListBelowReorderLevel(ctx context.Context) ([]*entity.Product, error)
	Delete(ctx context.Context, id string) error
}
