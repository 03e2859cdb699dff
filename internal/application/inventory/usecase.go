package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Referencias por omisión de los movimientos directos.
const (
	DefaultReceiveReference = "Vendor"
	DefaultDeliverReference = "Sales"
	DefaultAdjustReference  = "Inventory adjustment"
)

// errNoChange fuerza el rollback de un ajuste sin diferencia.
var errNoChange = errors.New("sin cambios")

// LedgerUseCase es el motor de inventario: Receive, Deliver, Transfer y Adjust.
// Cada operación corre en una sola transacción (líneas de stock, asientos y proyección
// del producto) y se reintenta completa ante conflictos de concurrencia.
type LedgerUseCase struct {
	txRunner TxRunner
	reader   Repos
	retry    RetryPolicy
	log      *logger.Logger
	now      func() time.Time
}

// NewLedgerUseCase construye el motor. reader se usa para consultas fuera de transacción.
func NewLedgerUseCase(txRunner TxRunner, reader Repos, retry RetryPolicy, log *logger.Logger) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner: txRunner,
		reader:   reader,
		retry:    retry,
		log:      log.Component("ledger"),
		now:      time.Now,
	}
}

// ReceiveInput entrada de mercancía a una bodega. UnitCost opcional recalcula el costo promedio.
type ReceiveInput struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal
	Reference   string
	Note        string
	ActorID     string
}

// DeliverInput salida de mercancía desde una bodega.
type DeliverInput struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	Reference   string
	Note        string
	ActorID     string
}

// TransferInput traslado entre dos bodegas distintas.
type TransferInput struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        decimal.Decimal
	Reference       string
	Note            string
	ActorID         string
}

// AdjustInput conteo físico de una línea de stock.
type AdjustInput struct {
	ProductID       string
	WarehouseID     string
	CountedQuantity decimal.Decimal
	Reference       string
	Note            string
	ActorID         string
}

// MutationResult asientos escritos y líneas resultantes de una operación.
// Changed es false solo para un ajuste cuyo conteo coincide con lo registrado.
type MutationResult struct {
	TransactionID string
	Entries       []*entity.LedgerEntry
	Lines         []*entity.StockLine
	Product       *entity.Product
	Changed       bool
}

// Receive suma quantity a la línea (producto, bodega) y registra un asiento RECEIPT.
func (uc *LedgerUseCase) Receive(ctx context.Context, in ReceiveInput) (*MutationResult, error) {
	if err := validateReceive(in); err != nil {
		return nil, err
	}
	var res *MutationResult
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "receive", func(r Repos) error {
		var err error
		res, err = uc.ReceiveInTx(ctx, r, in, uuid.NewString())
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.logMutation(res)
	return res, nil
}

func validateReceive(in ReceiveInput) error {
	if in.ProductID == "" || in.WarehouseID == "" {
		return domain.ErrInvalidInput
	}
	if err := domaininv.RequirePositive("receive", in.Quantity); err != nil {
		return err
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}

// ReceiveInTx aplica una entrada usando los repositorios del caller (misma transacción).
// La usa la validación de recepciones para comprometer todas las líneas juntas.
func (uc *LedgerUseCase) ReceiveInTx(ctx context.Context, r Repos, in ReceiveInput, txID string) (*MutationResult, error) {
	if err := validateReceive(in); err != nil {
		return nil, err
	}
	product, err := requireProduct(ctx, r, in.ProductID)
	if err != nil {
		return nil, err
	}
	if _, err := requireWarehouse(ctx, r, in.WarehouseID); err != nil {
		return nil, err
	}

	line, err := r.Stock.GetForUpdate(ctx, in.ProductID, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	entry, err := uc.applyDelta(ctx, r, line, in.Quantity, entryDraft{
		txID:      txID,
		kind:      entity.EntryTypeReceipt,
		reference: orDefault(in.Reference, DefaultReceiveReference),
		note:      in.Note,
		actorID:   in.ActorID,
		at:        now,
	})
	if err != nil {
		return nil, err
	}

	if in.UnitCost != nil {
		cost := domaininv.WeightedAverageCost(product.OnHand, product.CostPerUnit, in.Quantity, *in.UnitCost)
		if err := r.Products.UpdateCost(ctx, product.ID, cost); err != nil {
			return nil, err
		}
	}
	p, err := reconcile(ctx, r, in.ProductID)
	if err != nil {
		return nil, err
	}
	return &MutationResult{TransactionID: txID, Entries: []*entity.LedgerEntry{entry}, Lines: []*entity.StockLine{line}, Product: p, Changed: true}, nil
}

// Deliver resta quantity de la línea; falla con ErrInsufficientStock sin escribir nada
// si la existencia no alcanza.
func (uc *LedgerUseCase) Deliver(ctx context.Context, in DeliverInput) (*MutationResult, error) {
	if in.ProductID == "" || in.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := domaininv.RequirePositive("deliver", in.Quantity); err != nil {
		return nil, err
	}
	var res *MutationResult
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "deliver", func(r Repos) error {
		if _, err := requireProduct(ctx, r, in.ProductID); err != nil {
			return err
		}
		if _, err := requireWarehouse(ctx, r, in.WarehouseID); err != nil {
			return err
		}
		line, err := r.Stock.GetForUpdate(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		txID := uuid.NewString()
		entry, err := uc.applyDelta(ctx, r, line, in.Quantity.Neg(), entryDraft{
			txID:      txID,
			kind:      entity.EntryTypeDelivery,
			reference: orDefault(in.Reference, DefaultDeliverReference),
			note:      in.Note,
			actorID:   in.ActorID,
			at:        uc.now(),
		})
		if err != nil {
			return err
		}
		p, err := reconcile(ctx, r, in.ProductID)
		if err != nil {
			return err
		}
		res = &MutationResult{TransactionID: txID, Entries: []*entity.LedgerEntry{entry}, Lines: []*entity.StockLine{line}, Product: p, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.logMutation(res)
	return res, nil
}

// Transfer mueve quantity de una bodega a otra. Ambas patas (líneas y asientos) se
// confirman en la misma transacción; si la segunda falla no queda rastro de la primera.
func (uc *LedgerUseCase) Transfer(ctx context.Context, in TransferInput) (*MutationResult, error) {
	if in.ProductID == "" || in.FromWarehouseID == "" || in.ToWarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := domaininv.RequirePositive("transfer", in.Quantity); err != nil {
		return nil, err
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, domain.SameWarehouse(in.FromWarehouseID)
	}

	var res *MutationResult
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "transfer", func(r Repos) error {
		if _, err := requireProduct(ctx, r, in.ProductID); err != nil {
			return err
		}
		from, err := requireWarehouse(ctx, r, in.FromWarehouseID)
		if err != nil {
			return err
		}
		to, err := requireWarehouse(ctx, r, in.ToWarehouseID)
		if err != nil {
			return err
		}

		// Orden de bloqueo determinista para no cruzarse con un traslado inverso.
		var src, dst *entity.StockLine
		if in.FromWarehouseID < in.ToWarehouseID {
			if src, err = r.Stock.GetForUpdate(ctx, in.ProductID, in.FromWarehouseID); err != nil {
				return err
			}
			if dst, err = r.Stock.GetForUpdate(ctx, in.ProductID, in.ToWarehouseID); err != nil {
				return err
			}
		} else {
			if dst, err = r.Stock.GetForUpdate(ctx, in.ProductID, in.ToWarehouseID); err != nil {
				return err
			}
			if src, err = r.Stock.GetForUpdate(ctx, in.ProductID, in.FromWarehouseID); err != nil {
				return err
			}
		}

		txID := uuid.NewString()
		outID, inID := uuid.NewString(), uuid.NewString()
		now := uc.now()
		outEntry, err := uc.applyDelta(ctx, r, src, in.Quantity.Neg(), entryDraft{
			id:          outID,
			linkedID:    inID,
			counterpart: to.ID,
			txID:        txID,
			kind:        entity.EntryTypeTransfer,
			reference:   orDefault(in.Reference, "To: "+to.ShortCode),
			note:        in.Note,
			actorID:     in.ActorID,
			at:          now,
		})
		if err != nil {
			return err
		}
		inEntry, err := uc.applyDelta(ctx, r, dst, in.Quantity, entryDraft{
			id:          inID,
			linkedID:    outID,
			counterpart: from.ID,
			txID:        txID,
			kind:        entity.EntryTypeTransfer,
			reference:   orDefault(in.Reference, "From: "+from.ShortCode),
			note:        in.Note,
			actorID:     in.ActorID,
			at:          now,
		})
		if err != nil {
			return err
		}
		p, err := reconcile(ctx, r, in.ProductID)
		if err != nil {
			return err
		}
		res = &MutationResult{
			TransactionID: txID,
			Entries:       []*entity.LedgerEntry{outEntry, inEntry},
			Lines:         []*entity.StockLine{src, dst},
			Product:       p,
			Changed:       true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.logMutation(res)
	return res, nil
}

// Adjust fija la línea al conteo físico. Un conteo igual a lo registrado no escribe
// nada (ni línea ni asiento) y devuelve Changed=false.
func (uc *LedgerUseCase) Adjust(ctx context.Context, in AdjustInput) (*MutationResult, error) {
	if in.ProductID == "" || in.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := domaininv.RequireNonNegative("adjust", in.CountedQuantity); err != nil {
		return nil, err
	}
	var res *MutationResult
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "adjust", func(r Repos) error {
		if _, err := requireProduct(ctx, r, in.ProductID); err != nil {
			return err
		}
		if _, err := requireWarehouse(ctx, r, in.WarehouseID); err != nil {
			return err
		}
		line, err := r.Stock.GetForUpdate(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		delta := domaininv.AdjustDelta(line.Quantity, in.CountedQuantity)
		if delta.IsZero() {
			res = &MutationResult{Lines: []*entity.StockLine{line}, Changed: false}
			return errNoChange
		}
		txID := uuid.NewString()
		entry, err := uc.applyDelta(ctx, r, line, delta, entryDraft{
			txID:      txID,
			kind:      entity.EntryTypeAdjustment,
			reference: orDefault(in.Reference, DefaultAdjustReference),
			note:      in.Note,
			actorID:   in.ActorID,
			at:        uc.now(),
		})
		if err != nil {
			return err
		}
		p, err := reconcile(ctx, r, in.ProductID)
		if err != nil {
			return err
		}
		res = &MutationResult{TransactionID: txID, Entries: []*entity.LedgerEntry{entry}, Lines: []*entity.StockLine{line}, Product: p, Changed: true}
		return nil
	})
	if errors.Is(err, errNoChange) {
		uc.log.Debug().Str("product_id", in.ProductID).Str("warehouse_id", in.WarehouseID).Msg("ajuste sin diferencia, omitido")
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	uc.logMutation(res)
	return res, nil
}

// ReconcileProduct recalcula OnHand/FreeToUse desde las líneas de stock.
func (uc *LedgerUseCase) ReconcileProduct(ctx context.Context, productID string) (*entity.Product, error) {
	var p *entity.Product
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "reconcile", func(r Repos) error {
		var err error
		p, err = reconcile(ctx, r, productID)
		return err
	})
	return p, err
}

type entryDraft struct {
	id          string
	linkedID    string
	counterpart string
	txID        string
	kind        string
	reference   string
	note        string
	actorID     string
	at          time.Time
}

// applyDelta es el único punto que modifica una línea de stock: valida que no quede
// negativa, la guarda con control de versión y escribe el asiento correspondiente.
func (uc *LedgerUseCase) applyDelta(ctx context.Context, r Repos, line *entity.StockLine, delta decimal.Decimal, d entryDraft) (*entity.LedgerEntry, error) {
	prev := line.Quantity
	next := prev.Add(delta)
	if next.IsNegative() {
		return nil, domain.InsufficientStock(line.ProductID, line.WarehouseID, delta.Neg(), prev)
	}
	if err := domaininv.CheckStored("stock line", next); err != nil {
		return nil, err
	}
	line.Quantity = next
	if err := r.Stock.Save(ctx, line); err != nil {
		return nil, err
	}

	id := d.id
	if id == "" {
		id = uuid.NewString()
	}
	entry := &entity.LedgerEntry{
		ID:                     id,
		TransactionID:          d.txID,
		LinkedEntryID:          d.linkedID,
		Type:                   d.kind,
		Reference:              d.reference,
		ProductID:              line.ProductID,
		WarehouseID:            line.WarehouseID,
		CounterpartWarehouseID: d.counterpart,
		QuantityDelta:          delta,
		PreviousQuantity:       prev,
		NewQuantity:            next,
		ActorID:                d.actorID,
		Note:                   d.note,
		CreatedAt:              d.at,
	}
	if err := r.Ledger.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// reconcile es la única escritura de la proyección OnHand/FreeToUse del producto. La fila
// del producto ya está bloqueada por la mutación, así la suma ve todas las líneas confirmadas.
func reconcile(ctx context.Context, r Repos, productID string) (*entity.Product, error) {
	product, err := requireProduct(ctx, r, productID)
	if err != nil {
		return nil, err
	}
	total, err := r.Stock.SumByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := domaininv.CheckStored("reconcile", total); err != nil {
		return nil, err
	}
	product.ApplyTotals(total)
	if err := r.Products.UpdateStockTotals(ctx, productID, product.OnHand, product.FreeToUse); err != nil {
		return nil, err
	}
	return product, nil
}

// requireProduct bloquea la fila del producto. Es el primer bloqueo de toda mutación,
// antes que bodegas y líneas de stock.
func requireProduct(ctx context.Context, r Repos, id string) (*entity.Product, error) {
	p, err := r.Products.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("product", id)
	}
	return p, nil
}

// requireWarehouse toma la bodega en modo compartido para que no se borre durante la tx.
func requireWarehouse(ctx context.Context, r Repos, id string) (*entity.Warehouse, error) {
	w, err := r.Warehouses.GetForShare(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil || !w.IsActive {
		return nil, domain.NotFound("warehouse", id)
	}
	return w, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (uc *LedgerUseCase) logMutation(res *MutationResult) {
	if res == nil || len(res.Entries) == 0 {
		return
	}
	e := res.Entries[0]
	uc.log.Debug().
		Str("tx_id", res.TransactionID).
		Str("type", e.Type).
		Str("product_id", e.ProductID).
		Str("reference", e.Reference).
		Int("entries", len(res.Entries)).
		Msg("movimiento registrado")
}
