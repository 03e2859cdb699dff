package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	// GetForShare bloquea la fila en modo compartido: las mutaciones de stock la toman
	// para que la bodega no se borre mientras escriben en ella.
	GetForShare(ctx context.Context, id string) (*entity.Warehouse, error)
	// GetForUpdate bloquea la fila en exclusiva (borrado).
	GetForUpdate(ctx context.Context, id string) (*entity.Warehouse, error)
	GetByName(ctx context.Context, name string) (*entity.Warehouse, error)
	GetByShortCode(ctx context.Context, code string) (*entity.Warehouse, error)
	Update(ctx context.Context, warehouse *entity.Warehouse) error
	List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error)
	Delete(ctx context.Context, id string) error
}
