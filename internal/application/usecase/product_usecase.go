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
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// DefaultUnitOfMeasure unidad asignada cuando el producto no trae una.
const DefaultUnitOfMeasure = "Units"

// ProductUseCase casos de uso CRUD para productos. El stock nunca se escribe aquí:
// OnHand y FreeToUse solo cambian a través del motor de inventario.
type ProductUseCase struct {
	repo     repository.ProductRepository
	txRunner appinv.TxRunner
}

// NewProductUseCase construye el caso de uso. txRunner se usa para el borrado, que debe
// serializarse con las mutaciones de stock.
func NewProductUseCase(repo repository.ProductRepository, txRunner appinv.TxRunner) *ProductUseCase {
	return &ProductUseCase{repo: repo, txRunner: txRunner}
}

// Create crea un producto con stock en cero.
func (uc *ProductUseCase) Create(ctx context.Context, actorID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
	}
	if err := checkCatalogAmounts(in.CostPerUnit, in.ReorderLevel); err != nil {
		return nil, err
	}
	sku := strings.TrimSpace(in.SKU)
	if err := uc.ensureUnique(ctx, "", name, sku); err != nil {
		return nil, err
	}
	unit := strings.TrimSpace(in.UnitOfMeasure)
	if unit == "" {
		unit = DefaultUnitOfMeasure
	}
	now := time.Now().UTC()
	product := &entity.Product{
		ID:            uuid.New().String(),
		Name:          name,
		SKU:           sku,
		Description:   in.Description,
		Category:      in.Category,
		UnitOfMeasure: unit,
		CostPerUnit:   in.CostPerUnit,
		ReorderLevel:  in.ReorderLevel,
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// Update actualiza los datos de catálogo de un producto (sin stock).
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
		}
		product.Name = name
	}
	if in.SKU != nil {
		product.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Category != nil {
		product.Category = *in.Category
	}
	if in.UnitOfMeasure != nil && strings.TrimSpace(*in.UnitOfMeasure) != "" {
		product.UnitOfMeasure = strings.TrimSpace(*in.UnitOfMeasure)
	}
	if in.CostPerUnit != nil {
		product.CostPerUnit = *in.CostPerUnit
	}
	if in.ReorderLevel != nil {
		product.ReorderLevel = *in.ReorderLevel
	}
	if err := checkCatalogAmounts(product.CostPerUnit, product.ReorderLevel); err != nil {
		return nil, err
	}
	if err := uc.ensureUnique(ctx, product.ID, product.Name, product.SKU); err != nil {
		return nil, err
	}
	product.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos con filtro de búsqueda y categoría.
func (uc *ProductUseCase) List(ctx context.Context, in dto.ProductListRequest) (*dto.ProductListResponse, error) {
	in.DefaultPage()
	list, err := uc.repo.List(ctx, repository.ProductFilter{
		Search:   in.Search,
		Category: in.Category,
		Limit:    in.Limit,
		Offset:   in.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}, nil
}

// Delete elimina un producto. Se rechaza mientras alguna bodega tenga existencias.
// La fila del producto queda bloqueada durante la verificación: una entrada concurrente
// espera y luego falla con NotFound, o termina antes y el borrado ve su existencia.
func (uc *ProductUseCase) Delete(ctx context.Context, id string) error {
	return uc.txRunner.Run(ctx, func(r appinv.Repos) error {
		product, err := r.Products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NotFound("product", id)
		}
		lines, err := r.Stock.List(ctx, repository.StockFilter{ProductID: id})
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Quantity.IsPositive() {
				return &domain.Error{
					Kind:        domain.ErrInvalidStateTransition,
					Op:          "delete product",
					ProductID:   id,
					WarehouseID: l.WarehouseID,
					Msg:         "el producto tiene existencias",
				}
			}
		}
		return r.Products.Delete(ctx, id)
	})
}

func (uc *ProductUseCase) load(ctx context.Context, id string) (*entity.Product, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("product", id)
	}
	return product, nil
}

func (uc *ProductUseCase) ensureUnique(ctx context.Context, selfID, name, sku string) error {
	other, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return domain.Duplicate("product", "name")
	}
	if sku == "" {
		return nil
	}
	other, err = uc.repo.GetBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return domain.Duplicate("product", "sku")
	}
	return nil
}

func checkCatalogAmounts(cost, reorder decimal.Decimal) error {
	if err := inventory.RequireNonNegative("product cost", cost); err != nil {
		return err
	}
	return inventory.RequireNonNegative("product reorder level", reorder)
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		SKU:              p.SKU,
		Description:      p.Description,
		Category:         p.Category,
		UnitOfMeasure:    p.UnitOfMeasure,
		CostPerUnit:      p.CostPerUnit,
		ReorderLevel:     p.ReorderLevel,
		OnHand:           p.OnHand,
		FreeToUse:        p.FreeToUse,
		ReservedQuantity: p.ReservedQuantity,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ToProductResponse expone el mapeo para otras capas (respuestas de stock).
func ToProductResponse(p *entity.Product) *dto.ProductResponse {
	return toProductResponse(p)
}
