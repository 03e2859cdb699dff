package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.ReceiptRepository  = (*ReceiptRepo)(nil)
	_ repository.SequenceRepository = (*SequenceRepo)(nil)
)

// ReceiptRepo recepciones y sus líneas sobre PostgreSQL.
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador de recepciones. Pasar pool o tx (Querier).
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

const receiptColumns = `id, reference, supplier, from_location, to_location_id, schedule_date, responsible, note,
	status, created_by, validated_by, validated_at, version, created_at, updated_at`

func scanReceipt(row pgx.Row) (*entity.Receipt, error) {
	var rc entity.Receipt
	err := row.Scan(&rc.ID, &rc.Reference, &rc.Supplier, &rc.FromLocation, &rc.ToLocationID, &rc.ScheduleDate,
		&rc.Responsible, &rc.Note, &rc.Status, &rc.CreatedBy, &rc.ValidatedBy, &rc.ValidatedAt, &rc.Version,
		&rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// Create inserta la cabecera y las líneas.
func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO receipts (id, reference, supplier, from_location, to_location_id, schedule_date, responsible, note,
			status, created_by, validated_by, validated_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rc.ID, rc.Reference, rc.Supplier, rc.FromLocation, rc.ToLocationID, rc.ScheduleDate, rc.Responsible,
		rc.Note, rc.Status, rc.CreatedBy, rc.ValidatedBy, rc.ValidatedAt, rc.Version, rc.CreatedAt, rc.UpdatedAt,
	)
	if err != nil {
		return mapError("insert receipt", "receipt", rc.ID, err)
	}
	return r.insertItems(ctx, rc)
}

func (r *ReceiptRepo) insertItems(ctx context.Context, rc *entity.Receipt) error {
	for i, it := range rc.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO receipt_items (id, receipt_id, position, product_id, quantity_expected, quantity_received)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, rc.ID, i, it.ProductID, it.QuantityExpected, it.QuantityReceived,
		)
		if err != nil {
			return mapError("insert receipt item", "receipt", rc.ID, err)
		}
	}
	return nil
}

// GetByID obtiene una recepción con sus líneas.
func (r *ReceiptRepo) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	if !validID(id) {
		return nil, nil
	}
	rc, err := scanReceipt(r.q.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id))
	rc, err = notFoundOrNil(rc, err, "get receipt", "receipt", id)
	if err != nil || rc == nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*entity.Receipt{rc}); err != nil {
		return nil, err
	}
	return rc, nil
}

// loadItems carga las líneas de varias recepciones con una sola consulta.
func (r *ReceiptRepo) loadItems(ctx context.Context, receipts []*entity.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(receipts))
	byID := make(map[string]*entity.Receipt, len(receipts))
	for _, rc := range receipts {
		ids = append(ids, rc.ID)
		byID[rc.ID] = rc
		rc.Items = []entity.ReceiptItem{}
	}
	rows, err := r.q.Query(ctx, `
		SELECT receipt_id, id, product_id, quantity_expected, quantity_received
		FROM receipt_items WHERE receipt_id::text = ANY($1)
		ORDER BY receipt_id, position`, ids)
	if err != nil {
		return mapError("list receipt items", "receipt", "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			receiptID string
			it        entity.ReceiptItem
		)
		if err := rows.Scan(&receiptID, &it.ID, &it.ProductID, &it.QuantityExpected, &it.QuantityReceived); err != nil {
			return fmt.Errorf("scan receipt item: %w", err)
		}
		if rc, ok := byID[receiptID]; ok {
			rc.Items = append(rc.Items, it)
		}
	}
	return rows.Err()
}

// Update reemplaza cabecera y líneas si la versión coincide; incrementa receipt.Version.
func (r *ReceiptRepo) Update(ctx context.Context, rc *entity.Receipt) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE receipts SET supplier = $3, from_location = $4, to_location_id = $5, schedule_date = $6,
			responsible = $7, note = $8, status = $9, validated_by = $10, validated_at = $11,
			version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $2`,
		rc.ID, rc.Version, rc.Supplier, rc.FromLocation, rc.ToLocationID, rc.ScheduleDate, rc.Responsible,
		rc.Note, rc.Status, rc.ValidatedBy, rc.ValidatedAt, rc.UpdatedAt,
	)
	if err != nil {
		return mapError("update receipt", "receipt", rc.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "update receipt", rc.ID)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM receipt_items WHERE receipt_id = $1`, rc.ID); err != nil {
		return mapError("replace receipt items", "receipt", rc.ID, err)
	}
	if err := r.insertItems(ctx, rc); err != nil {
		return err
	}
	rc.Version++
	return nil
}

// List lista recepciones de la más reciente a la más antigua.
func (r *ReceiptRepo) List(ctx context.Context, f repository.ReceiptFilter) ([]*entity.Receipt, error) {
	w := newWhere()
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Search != "" {
		w.add("(reference ILIKE ? OR supplier ILIKE ?)", "%"+f.Search+"%", "%"+f.Search+"%")
	}
	query := `SELECT ` + receiptColumns + ` FROM receipts` + w.sql() +
		` ORDER BY created_at DESC, reference DESC` + w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapError("list receipts", "receipt", "", err)
	}
	var list []*entity.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		list = append(list, rc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Stats calcula los contadores del tablero. Late = READY con fecha programada anterior a now.
func (r *ReceiptRepo) Stats(ctx context.Context, now time.Time) (*entity.ReceiptStats, error) {
	var s entity.ReceiptStats
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'READY'),
			COUNT(*) FILTER (WHERE status = 'DONE'),
			COUNT(*) FILTER (WHERE status = 'READY' AND schedule_date < $1),
			COUNT(*) FILTER (WHERE status = 'CANCELLED')
		FROM receipts`, now,
	).Scan(&s.Total, &s.Pending, &s.Done, &s.Late, &s.Cancelled)
	if err != nil {
		return nil, mapError("receipt stats", "receipt", "", err)
	}
	return &s, nil
}

// Delete elimina la recepción si la versión coincide; las líneas caen por ON DELETE CASCADE.
func (r *ReceiptRepo) Delete(ctx context.Context, id string, version int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM receipts WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return mapError("delete receipt", "receipt", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "delete receipt", id)
	}
	return nil
}

// missingOrStale distingue, tras un UPDATE/DELETE con guarda de versión que no tocó filas,
// entre una recepción inexistente y una modificada por otra transacción.
func (r *ReceiptRepo) missingOrStale(ctx context.Context, op, id string) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM receipts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapError(op, "receipt", id, err)
	}
	if !exists {
		return domain.NotFound("receipt", id)
	}
	return domain.ConcurrencyConflict(op)
}

// SequenceRepo contadores atómicos en la tabla sequences.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el generador de consecutivos.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Next incrementa y devuelve el contador. El UPSERT bloquea la fila, así dos
// transacciones concurrentes nunca obtienen el mismo valor.
func (r *SequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, name,
	).Scan(&n)
	if err != nil {
		return 0, mapError("next sequence", "sequence", name, err)
	}
	return n, nil
}
