package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LocationUseCase casos de uso CRUD para ubicaciones dentro de una bodega.
type LocationUseCase struct {
	repo          repository.LocationRepository
	warehouseRepo repository.WarehouseRepository
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(repo repository.LocationRepository, warehouseRepo repository.WarehouseRepository) *LocationUseCase {
	return &LocationUseCase{repo: repo, warehouseRepo: warehouseRepo}
}

// Create crea una ubicación en una bodega existente.
func (uc *LocationUseCase) Create(ctx context.Context, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	name := strings.TrimSpace(in.Name)
	code := normalizeCode(in.ShortCode)
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: nombre y código corto son obligatorios", domain.ErrInvalidInput)
	}
	if err := uc.requireWarehouse(ctx, in.WarehouseID); err != nil {
		return nil, err
	}
	if err := uc.ensureUnique(ctx, "", code); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	location := &entity.Location{
		ID:          uuid.New().String(),
		Name:        name,
		ShortCode:   code,
		WarehouseID: in.WarehouseID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, location); err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// GetByID obtiene una ubicación por ID.
func (uc *LocationUseCase) GetByID(ctx context.Context, id string) (*dto.LocationResponse, error) {
	location, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// Update actualiza una ubicación.
func (uc *LocationUseCase) Update(ctx context.Context, id string, in dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	location, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		location.Name = strings.TrimSpace(*in.Name)
	}
	if in.ShortCode != nil {
		location.ShortCode = normalizeCode(*in.ShortCode)
	}
	if in.WarehouseID != nil && *in.WarehouseID != location.WarehouseID {
		if err := uc.requireWarehouse(ctx, *in.WarehouseID); err != nil {
			return nil, err
		}
		location.WarehouseID = *in.WarehouseID
	}
	if location.Name == "" || location.ShortCode == "" {
		return nil, fmt.Errorf("%w: nombre y código corto son obligatorios", domain.ErrInvalidInput)
	}
	if err := uc.ensureUnique(ctx, location.ID, location.ShortCode); err != nil {
		return nil, err
	}
	location.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, location); err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// List lista ubicaciones, opcionalmente de una sola bodega.
func (uc *LocationUseCase) List(ctx context.Context, warehouseID string, page dto.PageRequest) (*dto.LocationListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, warehouseID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *toLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Delete elimina una ubicación.
func (uc *LocationUseCase) Delete(ctx context.Context, id string) error {
	if _, err := uc.load(ctx, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *LocationUseCase) load(ctx context.Context, id string) (*entity.Location, error) {
	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, domain.NotFound("location", id)
	}
	return location, nil
}

func (uc *LocationUseCase) requireWarehouse(ctx context.Context, id string) error {
	w, err := uc.warehouseRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return domain.NotFound("warehouse", id)
	}
	return nil
}

func (uc *LocationUseCase) ensureUnique(ctx context.Context, selfID, code string) error {
	other, err := uc.repo.GetByShortCode(ctx, code)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return domain.Duplicate("location", "short_code")
	}
	return nil
}

func toLocationResponse(l *entity.Location) *dto.LocationResponse {
	if l == nil {
		return nil
	}
	return &dto.LocationResponse{
		ID:          l.ID,
		Name:        l.Name,
		ShortCode:   l.ShortCode,
		WarehouseID: l.WarehouseID,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}
