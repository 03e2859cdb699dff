package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// GetQuantity devuelve la existencia de un producto en una bodega (0 si no hay línea).
func (uc *LedgerUseCase) GetQuantity(ctx context.Context, productID, warehouseID string) (decimal.Decimal, error) {
	line, err := uc.reader.Stock.Get(ctx, productID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	return line.Quantity, nil
}

// ListStock lista líneas de stock con nombres de producto y bodega.
func (uc *LedgerUseCase) ListStock(ctx context.Context, filter repository.StockFilter) ([]*entity.StockLineView, error) {
	lines, err := uc.reader.Stock.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, lines)
}

// ProductStock desglose por bodega de un producto.
type ProductStock struct {
	Product *entity.Product
	Lines   []*entity.StockLineView
}

// GetProductStock devuelve el producto con sus líneas por bodega.
func (uc *LedgerUseCase) GetProductStock(ctx context.Context, productID string) (*ProductStock, error) {
	product, err := uc.reader.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("product", productID)
	}
	lines, err := uc.ListStock(ctx, repository.StockFilter{ProductID: productID})
	if err != nil {
		return nil, err
	}
	return &ProductStock{Product: product, Lines: lines}, nil
}

func (uc *LedgerUseCase) enrich(ctx context.Context, lines []*entity.StockLine) ([]*entity.StockLineView, error) {
	products := map[string]*entity.Product{}
	warehouses := map[string]*entity.Warehouse{}
	out := make([]*entity.StockLineView, 0, len(lines))
	for _, line := range lines {
		v := &entity.StockLineView{StockLine: *line}
		p, ok := products[line.ProductID]
		if !ok {
			var err error
			if p, err = uc.reader.Products.GetByID(ctx, line.ProductID); err != nil {
				return nil, err
			}
			products[line.ProductID] = p
		}
		if p != nil {
			v.ProductName, v.ProductSKU = p.Name, p.SKU
		}
		w, ok := warehouses[line.WarehouseID]
		if !ok {
			var err error
			if w, err = uc.reader.Warehouses.GetByID(ctx, line.WarehouseID); err != nil {
				return nil, err
			}
			warehouses[line.WarehouseID] = w
		}
		if w != nil {
			v.WarehouseName, v.WarehouseCode = w.Name, w.ShortCode
		}
		out = append(out, v)
	}
	return out, nil
}
