package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo libro de inventario sobre PostgreSQL. Solo INSERT y SELECT.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `id, seq, transaction_id, linked_entry_id, type, reference, product_id, warehouse_id,
	counterpart_warehouse_id, quantity_delta, previous_quantity, new_quantity, actor_id, note, created_at`

// Append inserta el asiento y asigna entry.Seq.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, transaction_id, linked_entry_id, type, reference, product_id, warehouse_id,
			counterpart_warehouse_id, quantity_delta, previous_quantity, new_quantity, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq`,
		e.ID, e.TransactionID, nullIfEmpty(e.LinkedEntryID), e.Type, e.Reference, e.ProductID, e.WarehouseID,
		nullIfEmpty(e.CounterpartWarehouseID), e.QuantityDelta, e.PreviousQuantity, e.NewQuantity,
		e.ActorID, e.Note, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return mapError("append ledger entry", "ledger_entry", e.ID, err)
	}
	return nil
}

// List devuelve asientos del más reciente al más antiguo.
func (r *LedgerRepo) List(ctx context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	w := ledgerWhere(f)
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries` + w.sql() +
		` ORDER BY seq DESC` + w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapError("list ledger", "ledger_entry", "", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var (
			e           entity.LedgerEntry
			linked      *string
			counterpart *string
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.TransactionID, &linked, &e.Type, &e.Reference, &e.ProductID,
			&e.WarehouseID, &counterpart, &e.QuantityDelta, &e.PreviousQuantity, &e.NewQuantity,
			&e.ActorID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.LinkedEntryID = emptyIfNull(linked)
		e.CounterpartWarehouseID = emptyIfNull(counterpart)
		list = append(list, &e)
	}
	return list, rows.Err()
}

func ledgerWhere(f repository.LedgerFilter) *where {
	w := newWhere()
	if f.Type != "" {
		w.add("type = ?", f.Type)
	}
	if f.ProductID != "" {
		w.add("product_id::text = ?", f.ProductID)
	}
	if f.WarehouseID != "" {
		w.add("warehouse_id::text = ?", f.WarehouseID)
	}
	if f.Search != "" {
		w.add("reference ILIKE ?", "%"+f.Search+"%")
	}
	if f.From != nil {
		w.add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("created_at < ?", *f.To)
	}
	return w
}

// CountByType cuenta asientos por tipo.
func (r *LedgerRepo) CountByType(ctx context.Context) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT type, COUNT(*) FROM ledger_entries GROUP BY type`)
	if err != nil {
		return nil, mapError("count ledger", "ledger_entry", "", err)
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var (
			t string
			n int64
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan ledger count: %w", err)
		}
		out[t] = n
	}
	return out, rows.Err()
}

// SumDeltas suma QuantityDelta de un par (producto, bodega).
func (r *LedgerRepo) SumDeltas(ctx context.Context, productID, warehouseID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_delta), 0) FROM ledger_entries
		WHERE product_id::text = $1 AND warehouse_id::text = $2`,
		productID, warehouseID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError("sum ledger", "ledger_entry", "", err)
	}
	return total, nil
}

// SumMoved suma ABS(quantity_delta) de todos los asientos del filtro, sin paginar.
func (r *LedgerRepo) SumMoved(ctx context.Context, f repository.LedgerFilter) (decimal.Decimal, error) {
	w := ledgerWhere(f)
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(ABS(quantity_delta)), 0) FROM ledger_entries`+w.sql(), w.args...).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError("sum ledger moved", "ledger_entry", "", err)
	}
	return total, nil
}
