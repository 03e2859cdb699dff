package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// WarehouseUseCase casos de uso CRUD para bodegas.
type WarehouseUseCase struct {
	repo     repository.WarehouseRepository
	txRunner appinv.TxRunner
}

// NewWarehouseUseCase construye el caso de uso.
func NewWarehouseUseCase(repo repository.WarehouseRepository, txRunner appinv.TxRunner) *WarehouseUseCase {
	return &WarehouseUseCase{repo: repo, txRunner: txRunner}
}

// Create crea una nueva bodega activa.
func (uc *WarehouseUseCase) Create(ctx context.Context, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	name := strings.TrimSpace(in.Name)
	code := normalizeCode(in.ShortCode)
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: nombre y código corto son obligatorios", domain.ErrInvalidInput)
	}
	if err := uc.ensureUnique(ctx, "", name, code); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	warehouse := &entity.Warehouse{
		ID:        uuid.New().String(),
		Name:      name,
		ShortCode: code,
		Address:   in.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, warehouse); err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse), nil
}

// GetByID obtiene una bodega por ID.
func (uc *WarehouseUseCase) GetByID(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse), nil
}

// Update actualiza una bodega. IsActive=false la desactiva para nuevas mutaciones.
func (uc *WarehouseUseCase) Update(ctx context.Context, id string, in dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		warehouse.Name = strings.TrimSpace(*in.Name)
	}
	if in.ShortCode != nil {
		warehouse.ShortCode = normalizeCode(*in.ShortCode)
	}
	if in.Address != nil {
		warehouse.Address = *in.Address
	}
	if in.IsActive != nil {
		warehouse.IsActive = *in.IsActive
	}
	if warehouse.Name == "" || warehouse.ShortCode == "" {
		return nil, fmt.Errorf("%w: nombre y código corto son obligatorios", domain.ErrInvalidInput)
	}
	if err := uc.ensureUnique(ctx, warehouse.ID, warehouse.Name, warehouse.ShortCode); err != nil {
		return nil, err
	}
	warehouse.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, warehouse); err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse), nil
}

// List lista bodegas con paginación.
func (uc *WarehouseUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.WarehouseListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *toWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Delete elimina una bodega vacía y sin ubicaciones. La bodega se bloquea en exclusiva;
// las mutaciones de stock la toman en modo compartido, así no pueden cruzarse.
func (uc *WarehouseUseCase) Delete(ctx context.Context, id string) error {
	return uc.txRunner.Run(ctx, func(r appinv.Repos) error {
		warehouse, err := r.Warehouses.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if warehouse == nil {
			return domain.NotFound("warehouse", id)
		}
		lines, err := r.Stock.List(ctx, repository.StockFilter{WarehouseID: id})
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Quantity.IsPositive() {
				return &domain.Error{
					Kind:        domain.ErrInvalidStateTransition,
					Op:          "delete warehouse",
					WarehouseID: id,
					ProductID:   l.ProductID,
					Msg:         "la bodega tiene existencias",
				}
			}
		}
		locations, err := r.Locations.List(ctx, id, 1, 0)
		if err != nil {
			return err
		}
		if len(locations) > 0 {
			return &domain.Error{
				Kind:        domain.ErrInvalidStateTransition,
				Op:          "delete warehouse",
				WarehouseID: id,
				Msg:         "la bodega tiene ubicaciones",
			}
		}
		return r.Warehouses.Delete(ctx, id)
	})
}

func (uc *WarehouseUseCase) load(ctx context.Context, id string) (*entity.Warehouse, error) {
	warehouse, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, domain.NotFound("warehouse", id)
	}
	return warehouse, nil
}

func (uc *WarehouseUseCase) ensureUnique(ctx context.Context, selfID, name, code string) error {
	other, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return domain.Duplicate("warehouse", "name")
	}
	other, err = uc.repo.GetByShortCode(ctx, code)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return domain.Duplicate("warehouse", "short_code")
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	if w == nil {
		return nil
	}
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Name:      w.Name,
		ShortCode: w.ShortCode,
		Address:   w.Address,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
