package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Límites del historial de movimientos.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
	recentMovesCount    = 10
)

// HistoryUseCase consultas de solo lectura sobre el libro de inventario.
type HistoryUseCase struct {
	ledgerRepo  repository.LedgerRepository
	productRepo repository.ProductRepository
}

// NewHistoryUseCase construye el caso de uso de historial.
func NewHistoryUseCase(ledgerRepo repository.LedgerRepository, productRepo repository.ProductRepository) *HistoryUseCase {
	return &HistoryUseCase{ledgerRepo: ledgerRepo, productRepo: productRepo}
}

// List devuelve asientos filtrados, del más reciente al más antiguo.
func (uc *HistoryUseCase) List(ctx context.Context, filter repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	if filter.Type != "" && !entity.ValidEntryType(filter.Type) {
		return nil, domain.ErrInvalidInput
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.ErrInvalidInput
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.ledgerRepo.List(ctx, filter)
}

// ListByProduct historial de un producto.
func (uc *HistoryUseCase) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	p, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("product", productID)
	}
	return uc.List(ctx, repository.LedgerFilter{ProductID: productID, Limit: limit, Offset: offset})
}

// Stats totales por tipo y los últimos movimientos.
func (uc *HistoryUseCase) Stats(ctx context.Context) (*entity.MoveStats, error) {
	counts, err := uc.ledgerRepo.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	stats := &entity.MoveStats{ByType: make(map[string]int64, len(entity.EntryTypes))}
	for _, t := range entity.EntryTypes {
		stats.ByType[t] = counts[t]
		stats.Total += counts[t]
	}
	recent, err := uc.ledgerRepo.List(ctx, repository.LedgerFilter{Limit: recentMovesCount})
	if err != nil {
		return nil, err
	}
	stats.Recent = recent
	return stats, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
