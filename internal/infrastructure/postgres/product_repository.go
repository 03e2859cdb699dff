package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, name, sku, description, category, unit_of_measure, cost_per_unit, reorder_level,
	on_hand, free_to_use, reserved_quantity, created_by, created_at, updated_at`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var (
		p   entity.Product
		sku *string
	)
	err := row.Scan(&p.ID, &p.Name, &sku, &p.Description, &p.Category, &p.UnitOfMeasure, &p.CostPerUnit,
		&p.ReorderLevel, &p.OnHand, &p.FreeToUse, &p.ReservedQuantity, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.SKU = emptyIfNull(sku)
	return &p, nil
}

// Create persiste un nuevo producto con stock en cero.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (id, name, sku, description, category, unit_of_measure, cost_per_unit, reorder_level,
			on_hand, free_to_use, reserved_quantity, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10, $11, $12)`,
		p.ID, p.Name, nullIfEmpty(p.SKU), p.Description, p.Category, p.UnitOfMeasure, p.CostPerUnit,
		p.ReorderLevel, p.ReservedQuantity, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	return mapError("insert product", "product", p.ID, err)
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, nil
	}
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	return notFoundOrNil(p, err, "get product", "product", id)
}

// GetForUpdate obtiene el producto con SELECT ... FOR UPDATE. Solo tiene efecto dentro de una tx.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, nil
	}
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	return notFoundOrNil(p, err, "lock product", "product", id)
}

// GetByName obtiene un producto por nombre exacto.
func (r *ProductRepo) GetByName(ctx context.Context, name string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name))
	return notFoundOrNil(p, err, "get product by name", "product", name)
}

// GetBySKU obtiene un producto por SKU.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	if sku == "" {
		return nil, nil
	}
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku))
	return notFoundOrNil(p, err, "get product by sku", "product", sku)
}

// Update actualiza los campos de catálogo. No toca on_hand ni free_to_use (se manejan vía el libro).
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE products SET name = $2, sku = $3, description = $4, category = $5, unit_of_measure = $6,
			cost_per_unit = $7, reorder_level = $8, updated_at = $9
		WHERE id = $1`,
		p.ID, p.Name, nullIfEmpty(p.SKU), p.Description, p.Category, p.UnitOfMeasure,
		p.CostPerUnit, p.ReorderLevel, p.UpdatedAt,
	)
	if err != nil {
		return mapError("update product", "product", p.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("product", p.ID)
	}
	return nil
}

// UpdateCost actualiza solo el costo del producto (usado por el motor de inventario).
func (r *ProductRepo) UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE products SET cost_per_unit = $2, updated_at = now() WHERE id = $1`,
		productID, cost,
	)
	return mapError("update product cost", "product", productID, err)
}

// UpdateStockTotals escribe la proyección de stock del producto.
func (r *ProductRepo) UpdateStockTotals(ctx context.Context, productID string, onHand, freeToUse decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET on_hand = $2, free_to_use = $3, updated_at = now() WHERE id = $1`,
		productID, onHand, freeToUse,
	)
	if err != nil {
		return mapError("update product totals", "product", productID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("product", productID)
	}
	return nil
}

// List lista productos por nombre, con búsqueda en nombre/SKU y filtro de categoría.
func (r *ProductRepo) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	w := newWhere()
	if f.Search != "" {
		w.add("(name ILIKE ? OR sku ILIKE ?)", "%"+f.Search+"%", "%"+f.Search+"%")
	}
	if f.Category != "" {
		w.add("LOWER(category) = LOWER(?)", f.Category)
	}
	query := `SELECT ` + productColumns + ` FROM products` + w.sql() + ` ORDER BY name` + w.page(f.Limit, f.Offset)
	return r.query(ctx, "list products", query, w.args...)
}

// ListBelowReorderLevel lista productos con on_hand por debajo de su nivel de reorden.
func (r *ProductRepo) ListBelowReorderLevel(ctx context.Context) ([]*entity.Product, error) {
	return r.query(ctx, "list products below reorder",
		`SELECT `+productColumns+` FROM products WHERE reorder_level > 0 AND on_hand < reorder_level ORDER BY name`)
}

func (r *ProductRepo) query(ctx context.Context, op, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, "product", "", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Delete elimina un producto por ID.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError("delete product", "product", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("product", id)
	}
	return nil
}
