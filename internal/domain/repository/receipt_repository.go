package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReceiptFilter filtros de listado de recepciones.
type ReceiptFilter struct {
	Status string
	Search string // referencia o proveedor
	Limit  int
	Offset int
}

// ReceiptRepository define el puerto de persistencia para Receipt y sus líneas.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id string) (*entity.Receipt, error)
	// Update reemplaza cabecera y líneas si la versión coincide; incrementa receipt.Version.
	Update(ctx context.Context, receipt *entity.Receipt) error
	List(ctx context.Context, filter ReceiptFilter) ([]*entity.Receipt, error)
	Stats(ctx context.Context, now time.Time) (*entity.ReceiptStats, error)
	// Delete borra la recepción si la versión coincide. Si otra tx la cambió devuelve
	// domain.ErrConcurrencyConflict.
	Delete(ctx context.Context, id string, version int64) error
}

// SequenceRepository genera números consecutivos sin carreras.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}
