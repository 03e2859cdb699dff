package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `product_id, warehouse_id, quantity, version, updated_at`

// Get obtiene el stock actual de un producto en una bodega; línea en cero si no existe.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.StockLine, error) {
	if !validID(productID) || !validID(warehouseID) {
		return &entity.StockLine{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero}, nil
	}
	query := `SELECT ` + stockColumns + ` FROM stock_lines WHERE product_id = $1 AND warehouse_id = $2`
	var s entity.StockLine
	err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.Version, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == codeInvalidTextRepr {
			return &entity.StockLine{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero}, nil
		}
		return nil, mapError("get stock", "stock_line", productID, err)
	}
	return &s, nil
}

// GetForUpdate crea la línea en cero si hace falta y la bloquea (SELECT FOR UPDATE)
// hasta el fin de la transacción.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.StockLine, error) {
	if !validID(productID) {
		return nil, domain.NotFound("product", productID)
	}
	if !validID(warehouseID) {
		return nil, domain.NotFound("warehouse", warehouseID)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_lines (product_id, warehouse_id, quantity, version, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (product_id, warehouse_id) DO NOTHING`,
		productID, warehouseID,
	)
	if err != nil {
		return nil, mapError("create stock line", "stock_line", productID, err)
	}
	query := `SELECT ` + stockColumns + ` FROM stock_lines WHERE product_id = $1 AND warehouse_id = $2 FOR UPDATE`
	var s entity.StockLine
	if err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.Version, &s.UpdatedAt,
	); err != nil {
		return nil, mapError("get stock for update", "stock_line", productID, err)
	}
	return &s, nil
}

// Save escribe la cantidad si la versión leída sigue vigente e incrementa line.Version.
func (r *StockRepo) Save(ctx context.Context, line *entity.StockLine) error {
	if line.Quantity.IsNegative() {
		return fmt.Errorf("save stock line: cantidad negativa: %w", domain.ErrInsufficientStock)
	}
	now := time.Now().UTC()
	cmd, err := r.q.Exec(ctx, `
		INSERT INTO stock_lines (product_id, warehouse_id, quantity, version, updated_at)
		VALUES ($1, $2, $3, $4 + 1, $5)
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
		WHERE stock_lines.version = $4`,
		line.ProductID, line.WarehouseID, line.Quantity, line.Version, now,
	)
	if err != nil {
		return mapError("save stock line", "stock_line", line.ProductID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ConcurrencyConflict("save stock line")
	}
	line.Version++
	line.UpdatedAt = now
	return nil
}

// SumByProduct suma las cantidades de todas las bodegas.
func (r *StockRepo) SumByProduct(ctx context.Context, productID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_lines WHERE product_id = $1`, productID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError("sum stock", "product", productID, err)
	}
	return total, nil
}

// List lista líneas filtrando por producto y/o bodega.
func (r *StockRepo) List(ctx context.Context, f repository.StockFilter) ([]*entity.StockLine, error) {
	w := newWhere()
	if f.ProductID != "" {
		w.add("product_id::text = ?", f.ProductID)
	}
	if f.WarehouseID != "" {
		w.add("warehouse_id::text = ?", f.WarehouseID)
	}
	query := `SELECT ` + stockColumns + ` FROM stock_lines` + w.sql() +
		` ORDER BY product_id, warehouse_id` + w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		if pgCode(err) == codeInvalidTextRepr {
			return nil, nil
		}
		return nil, mapError("list stock", "stock_line", "", err)
	}
	defer rows.Close()
	var list []*entity.StockLine
	for rows.Next() {
		var s entity.StockLine
		if err := rows.Scan(&s.ProductID, &s.WarehouseID, &s.Quantity, &s.Version, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock line: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
