package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.StockRepository    = (*StockRepo)(nil)
	_ repository.LedgerRepository   = (*LedgerRepo)(nil)
	_ repository.ReceiptRepository  = (*ReceiptRepo)(nil)
	_ repository.SequenceRepository = (*SequenceRepo)(nil)
)

// StockRepo líneas de stock en memoria con control de versión.
type StockRepo struct{ v view }

func (r *StockRepo) Get(_ context.Context, productID, warehouseID string) (*entity.StockLine, error) {
	var out *entity.StockLine
	err := r.v.do(func(st *state) error {
		if line, ok := st.stock[stockKey{productID, warehouseID}]; ok {
			cp := *line
			out = &cp
			return nil
		}
		out = &entity.StockLine{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero}
		return nil
	})
	return out, err
}

func (r *StockRepo) GetForUpdate(_ context.Context, productID, warehouseID string) (*entity.StockLine, error) {
	var out *entity.StockLine
	err := r.v.do(func(st *state) error {
		key := stockKey{productID, warehouseID}
		line, ok := st.stock[key]
		if !ok {
			line = &entity.StockLine{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero, UpdatedAt: time.Now()}
			st.stock[key] = line
		}
		cp := *line
		out = &cp
		return nil
	})
	return out, err
}

func (r *StockRepo) Save(_ context.Context, line *entity.StockLine) error {
	return r.v.do(func(st *state) error {
		if line.Quantity.IsNegative() {
			return fmt.Errorf("save stock line: cantidad negativa: %w", domain.ErrInsufficientStock)
		}
		key := stockKey{line.ProductID, line.WarehouseID}
		cur, ok := st.stock[key]
		var curVersion int64
		if ok {
			curVersion = cur.Version
		}
		if curVersion != line.Version {
			return domain.ConcurrencyConflict("save stock line")
		}
		line.Version++
		line.UpdatedAt = time.Now()
		cp := *line
		st.stock[key] = &cp
		return nil
	})
}

func (r *StockRepo) SumByProduct(_ context.Context, productID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.v.do(func(st *state) error {
		for k, line := range st.stock {
			if k.productID == productID {
				total = total.Add(line.Quantity)
			}
		}
		return nil
	})
	return total, err
}

func (r *StockRepo) List(_ context.Context, f repository.StockFilter) ([]*entity.StockLine, error) {
	var out []*entity.StockLine
	err := r.v.do(func(st *state) error {
		for k, line := range st.stock {
			if f.ProductID != "" && k.productID != f.ProductID {
				continue
			}
			if f.WarehouseID != "" && k.warehouseID != f.WarehouseID {
				continue
			}
			cp := *line
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return page(out, f.Limit, f.Offset), err
}

// LedgerRepo libro de inventario en memoria (solo inserción).
type LedgerRepo struct{ v view }

func (r *LedgerRepo) Append(_ context.Context, entry *entity.LedgerEntry) error {
	return r.v.do(func(st *state) error {
		for _, e := range st.ledger {
			if e.ID == entry.ID {
				return domain.Duplicate("ledger_entry", "id")
			}
		}
		st.ledgerSeq++
		entry.Seq = st.ledgerSeq
		cp := *entry
		st.ledger = append(st.ledger, &cp)
		return nil
	})
}

// ledgerMatches aplica el filtro igual que el WHERE de PostgreSQL: From inclusivo, To exclusivo.
func ledgerMatches(e *entity.LedgerEntry, f repository.LedgerFilter, search string) bool {
	switch {
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.ProductID != "" && e.ProductID != f.ProductID:
		return false
	case f.WarehouseID != "" && e.WarehouseID != f.WarehouseID:
		return false
	case search != "" && !strings.Contains(strings.ToLower(e.Reference), search):
		return false
	case f.From != nil && e.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !e.CreatedAt.Before(*f.To):
		return false
	}
	return true
}

func (r *LedgerRepo) List(_ context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*entity.LedgerEntry
	err := r.v.do(func(st *state) error {
		for i := len(st.ledger) - 1; i >= 0; i-- {
			e := st.ledger[i]
			if !ledgerMatches(e, f, search) {
				continue
			}
			cp := *e
			out = append(out, &cp)
		}
		return nil
	})
	return page(out, f.Limit, f.Offset), err
}

func (r *LedgerRepo) CountByType(_ context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	err := r.v.do(func(st *state) error {
		for _, e := range st.ledger {
			counts[e.Type]++
		}
		return nil
	})
	return counts, err
}

func (r *LedgerRepo) SumDeltas(_ context.Context, productID, warehouseID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.v.do(func(st *state) error {
		for _, e := range st.ledger {
			if e.ProductID == productID && e.WarehouseID == warehouseID {
				total = total.Add(e.QuantityDelta)
			}
		}
		return nil
	})
	return total, err
}

func (r *LedgerRepo) SumMoved(_ context.Context, f repository.LedgerFilter) (decimal.Decimal, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	total := decimal.Zero
	err := r.v.do(func(st *state) error {
		for _, e := range st.ledger {
			if ledgerMatches(e, f, search) {
				total = total.Add(e.QuantityDelta.Abs())
			}
		}
		return nil
	})
	return total, err
}

// ReceiptRepo recepciones en memoria.
type ReceiptRepo struct{ v view }

func copyReceipt(r *entity.Receipt) *entity.Receipt {
	cp := *r
	cp.Items = append([]entity.ReceiptItem(nil), r.Items...)
	if r.ValidatedAt != nil {
		t := *r.ValidatedAt
		cp.ValidatedAt = &t
	}
	return &cp
}

func (r *ReceiptRepo) Create(_ context.Context, rc *entity.Receipt) error {
	return r.v.do(func(st *state) error {
		for _, other := range st.receipts {
			if other.Reference == rc.Reference {
				return domain.ErrDuplicateReference
			}
		}
		st.receipts[rc.ID] = copyReceipt(rc)
		return nil
	})
}

func (r *ReceiptRepo) GetByID(_ context.Context, id string) (*entity.Receipt, error) {
	var out *entity.Receipt
	err := r.v.do(func(st *state) error {
		if rc, ok := st.receipts[id]; ok {
			out = copyReceipt(rc)
		}
		return nil
	})
	return out, err
}

func (r *ReceiptRepo) Update(_ context.Context, rc *entity.Receipt) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.receipts[rc.ID]
		if !ok {
			return domain.NotFound("receipt", rc.ID)
		}
		if cur.Version != rc.Version {
			return domain.ConcurrencyConflict("update receipt")
		}
		rc.Version++
		st.receipts[rc.ID] = copyReceipt(rc)
		return nil
	})
}

func (r *ReceiptRepo) List(_ context.Context, f repository.ReceiptFilter) ([]*entity.Receipt, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*entity.Receipt
	err := r.v.do(func(st *state) error {
		for _, rc := range st.receipts {
			if f.Status != "" && rc.Status != f.Status {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(rc.Reference), search) &&
				!strings.Contains(strings.ToLower(rc.Supplier), search) {
				continue
			}
			out = append(out, copyReceipt(rc))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Reference > out[j].Reference
	})
	return page(out, f.Limit, f.Offset), err
}

func (r *ReceiptRepo) Stats(_ context.Context, now time.Time) (*entity.ReceiptStats, error) {
	stats := &entity.ReceiptStats{}
	err := r.v.do(func(st *state) error {
		for _, rc := range st.receipts {
			stats.Total++
			switch rc.Status {
			case entity.ReceiptStatusReady:
				stats.Pending++
				if rc.ScheduleDate.Before(now) {
					stats.Late++
				}
			case entity.ReceiptStatusDone:
				stats.Done++
			case entity.ReceiptStatusCancelled:
				stats.Cancelled++
			}
		}
		return nil
	})
	return stats, err
}

func (r *ReceiptRepo) Delete(_ context.Context, id string, version int64) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.receipts[id]
		if !ok {
			return domain.NotFound("receipt", id)
		}
		if cur.Version != version {
			return domain.ConcurrencyConflict("delete receipt")
		}
		delete(st.receipts, id)
		return nil
	})
}

// SequenceRepo contadores atómicos en memoria.
type SequenceRepo struct{ v view }

func (r *SequenceRepo) Next(_ context.Context, name string) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		st.sequences[name]++
		n = st.sequences[name]
		return nil
	})
	return n, err
}
