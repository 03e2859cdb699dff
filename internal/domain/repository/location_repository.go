package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para Location.
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	GetByShortCode(ctx context.Context, code string) (*entity.Location, error)
	Update(ctx context.Context, location *entity.Location) error
	// List filtra por bodega si warehouseID no es vacío.
	List(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.Location, error)
	Delete(ctx context.Context, id string) error
}
