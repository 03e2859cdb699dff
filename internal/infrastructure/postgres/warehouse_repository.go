package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
	_ repository.LocationRepository  = (*LocationRepo)(nil)
)

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

const warehouseColumns = `id, name, short_code, address, is_active, created_at, updated_at`

func scanWarehouse(row pgx.Row) (*entity.Warehouse, error) {
	var w entity.Warehouse
	if err := row.Scan(&w.ID, &w.Name, &w.ShortCode, &w.Address, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Create persiste una nueva bodega.
func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO warehouses (id, name, short_code, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.Name, w.ShortCode, w.Address, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	return mapError("insert warehouse", "warehouse", w.ID, err)
}

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	if !validID(id) {
		return nil, nil
	}
	w, err := scanWarehouse(r.q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id))
	return notFoundOrNil(w, err, "get warehouse", "warehouse", id)
}

// GetForShare obtiene la bodega con FOR SHARE: varias mutaciones pueden tenerla a la vez,
// pero un borrado espera a que terminen.
func (r *WarehouseRepo) GetForShare(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.lock(ctx, id, "FOR SHARE")
}

// GetForUpdate obtiene la bodega con FOR UPDATE.
func (r *WarehouseRepo) GetForUpdate(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.lock(ctx, id, "FOR UPDATE")
}

func (r *WarehouseRepo) lock(ctx context.Context, id, mode string) (*entity.Warehouse, error) {
	if !validID(id) {
		return nil, nil
	}
	w, err := scanWarehouse(r.q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1 `+mode, id))
	return notFoundOrNil(w, err, "lock warehouse", "warehouse", id)
}

// GetByName obtiene una bodega por nombre.
func (r *WarehouseRepo) GetByName(ctx context.Context, name string) (*entity.Warehouse, error) {
	w, err := scanWarehouse(r.q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE name = $1`, name))
	return notFoundOrNil(w, err, "get warehouse by name", "warehouse", name)
}

// GetByShortCode obtiene una bodega por código corto.
func (r *WarehouseRepo) GetByShortCode(ctx context.Context, code string) (*entity.Warehouse, error) {
	w, err := scanWarehouse(r.q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE short_code = $1`, code))
	return notFoundOrNil(w, err, "get warehouse by code", "warehouse", code)
}

// Update actualiza una bodega.
func (r *WarehouseRepo) Update(ctx context.Context, w *entity.Warehouse) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE warehouses SET name = $2, short_code = $3, address = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		w.ID, w.Name, w.ShortCode, w.Address, w.IsActive, w.UpdatedAt,
	)
	if err != nil {
		return mapError("update warehouse", "warehouse", w.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("warehouse", w.ID)
	}
	return nil
}

// List lista bodegas por nombre con paginación.
func (r *WarehouseRepo) List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	w := newWhere()
	rows, err := r.q.Query(ctx, `SELECT `+warehouseColumns+` FROM warehouses ORDER BY name`+w.page(limit, offset), w.args...)
	if err != nil {
		return nil, mapError("list warehouses", "warehouse", "", err)
	}
	defer rows.Close()
	var list []*entity.Warehouse
	for rows.Next() {
		wh, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		list = append(list, wh)
	}
	return list, rows.Err()
}

// Delete elimina una bodega por ID.
func (r *WarehouseRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return mapError("delete warehouse", "warehouse", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("warehouse", id)
	}
	return nil
}

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de persistencia para ubicaciones.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

const locationColumns = `id, name, short_code, warehouse_id, created_at, updated_at`

func scanLocation(row pgx.Row) (*entity.Location, error) {
	var l entity.Location
	if err := row.Scan(&l.ID, &l.Name, &l.ShortCode, &l.WarehouseID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create persiste una ubicación; la bodega debe existir (FK).
func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO locations (id, name, short_code, warehouse_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.Name, l.ShortCode, l.WarehouseID, l.CreatedAt, l.UpdatedAt,
	)
	if pgCode(err) == codeForeignKeyViolation {
		return domain.NotFound("warehouse", l.WarehouseID)
	}
	return mapError("insert location", "location", l.ID, err)
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	if !validID(id) {
		return nil, nil
	}
	l, err := scanLocation(r.q.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
	return notFoundOrNil(l, err, "get location", "location", id)
}

// GetByShortCode obtiene una ubicación por código corto.
func (r *LocationRepo) GetByShortCode(ctx context.Context, code string) (*entity.Location, error) {
	l, err := scanLocation(r.q.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE short_code = $1`, code))
	return notFoundOrNil(l, err, "get location by code", "location", code)
}

// Update actualiza una ubicación.
func (r *LocationRepo) Update(ctx context.Context, l *entity.Location) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE locations SET name = $2, short_code = $3, warehouse_id = $4, updated_at = $5
		WHERE id = $1`,
		l.ID, l.Name, l.ShortCode, l.WarehouseID, l.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return domain.NotFound("warehouse", l.WarehouseID)
		}
		return mapError("update location", "location", l.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("location", l.ID)
	}
	return nil
}

// List lista ubicaciones, opcionalmente de una sola bodega.
func (r *LocationRepo) List(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.Location, error) {
	w := newWhere()
	if warehouseID != "" {
		w.add("warehouse_id::text = ?", warehouseID)
	}
	query := `SELECT ` + locationColumns + ` FROM locations` + w.sql() + ` ORDER BY short_code` + w.page(limit, offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapError("list locations", "location", "", err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// Delete elimina una ubicación por ID.
func (r *LocationRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return mapError("delete location", "location", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("location", id)
	}
	return nil
}
