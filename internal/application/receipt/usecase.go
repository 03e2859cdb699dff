// Package receipt implementa el ciclo de vida de las recepciones de mercancía:
// DRAFT/WAITING/READY editables, READY -> DONE al validar (aplica las entradas de stock
// en una sola transacción) y cancelación desde cualquier estado no terminal.
package receipt

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// StockReceiver aplica una entrada de stock dentro de la transacción del caller.
type StockReceiver interface {
	ReceiveInTx(ctx context.Context, r inventory.Repos, in inventory.ReceiveInput, txID string) (*inventory.MutationResult, error)
}

// UseCase casos de uso de recepciones.
type UseCase struct {
	txRunner inventory.TxRunner
	reader   inventory.Repos
	stock    StockReceiver
	pdf      ports.ReceiptPDFGenerator
	retry    inventory.RetryPolicy
	log      *logger.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso. pdf puede ser nil si no se expone la impresión.
func NewUseCase(
	txRunner inventory.TxRunner,
	reader inventory.Repos,
	stock StockReceiver,
	pdf ports.ReceiptPDFGenerator,
	retry inventory.RetryPolicy,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		txRunner: txRunner,
		reader:   reader,
		stock:    stock,
		pdf:      pdf,
		retry:    retry,
		log:      log.Component("receipt"),
		now:      time.Now,
	}
}

// ItemInput línea de una recepción. QuantityReceived nil o cero = se recibirá lo esperado.
type ItemInput struct {
	ProductID        string
	QuantityExpected decimal.Decimal
	QuantityReceived *decimal.Decimal
}

// CreateInput datos para crear una recepción.
type CreateInput struct {
	Supplier     string
	FromLocation string
	ToLocationID string
	ScheduleDate *time.Time
	Responsible  string
	Note         string
	Status       string // DRAFT (por defecto) o READY
	Items        []ItemInput
}

// UpdateInput cambios parciales; los campos nil no se modifican. Items nil conserva las líneas.
type UpdateInput struct {
	Supplier     *string
	FromLocation *string
	ToLocationID *string
	ScheduleDate *time.Time
	Responsible  *string
	Note         *string
	Status       *string
	Items        []ItemInput
}

// Create valida la recepción y le asigna la siguiente referencia WH/IN/NNNN.
func (uc *UseCase) Create(ctx context.Context, actorID string, in CreateInput) (*entity.Receipt, error) {
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status == "" {
		status = entity.ReceiptStatusDraft
	}
	if !domaininv.IsInitialReceiptStatus(status) {
		return nil, domain.InvalidTransition("", "", status)
	}
	supplier := strings.TrimSpace(in.Supplier)
	if supplier == "" || in.ToLocationID == "" {
		return nil, domain.ErrInvalidInput
	}
	items, err := buildItems(in.Items)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	rc := &entity.Receipt{
		ID:           uuid.NewString(),
		Supplier:     supplier,
		FromLocation: orDefault(strings.TrimSpace(in.FromLocation), entity.DefaultFromLocation),
		ToLocationID: in.ToLocationID,
		ScheduleDate: now,
		Responsible:  in.Responsible,
		Note:         in.Note,
		Status:       status,
		Items:        items,
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.ScheduleDate != nil {
		rc.ScheduleDate = *in.ScheduleDate
	}

	err = uc.retry.Run(ctx, uc.txRunner, uc.log, "create receipt", func(r inventory.Repos) error {
		if err := checkReferences(ctx, r, rc); err != nil {
			return err
		}
		n, err := r.Sequences.Next(ctx, domaininv.ReceiptSequence)
		if err != nil {
			return err
		}
		rc.Reference = domaininv.FormatReceiptReference(n)
		rc.Version = 0
		return r.Receipts.Create(ctx, rc)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("receipt_id", rc.ID).Str("reference", rc.Reference).Str("status", rc.Status).Msg("recepción creada")
	return rc, nil
}

// Get obtiene una recepción por ID.
func (uc *UseCase) Get(ctx context.Context, id string) (*entity.Receipt, error) {
	rc, err := uc.reader.Receipts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, domain.NotFound("receipt", id)
	}
	return rc, nil
}

// List lista recepciones con filtro opcional de estado.
func (uc *UseCase) List(ctx context.Context, filter repository.ReceiptFilter) ([]*entity.Receipt, error) {
	if filter.Status != "" {
		filter.Status = strings.ToUpper(filter.Status)
		if !domaininv.IsReceiptStatus(filter.Status) {
			return nil, domain.ErrInvalidInput
		}
	}
	return uc.reader.Receipts.List(ctx, filter)
}

// Stats contadores del tablero: total, pendientes (READY), hechas, atrasadas y canceladas.
func (uc *UseCase) Stats(ctx context.Context) (*entity.ReceiptStats, error) {
	return uc.reader.Receipts.Stats(ctx, uc.now())
}

// Update edita una recepción no terminal. El estado solo puede moverse entre
// DRAFT, WAITING y READY; DONE y CANCELLED tienen sus propias operaciones.
func (uc *UseCase) Update(ctx context.Context, id string, in UpdateInput) (*entity.Receipt, error) {
	var items []entity.ReceiptItem
	if in.Items != nil {
		var err error
		if items, err = buildItems(in.Items); err != nil {
			return nil, err
		}
	}

	var out *entity.Receipt
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "update receipt", func(r inventory.Repos) error {
		rc, err := loadReceipt(ctx, r, id)
		if err != nil {
			return err
		}
		target := rc.Status
		if in.Status != nil {
			target = strings.ToUpper(strings.TrimSpace(*in.Status))
		}
		if rc.IsTerminal() || !domaininv.IsEditableReceiptStatus(target) {
			return domain.InvalidTransition(rc.ID, rc.Status, target)
		}
		if err := domaininv.CheckTransition(rc.ID, rc.Status, target); err != nil {
			return err
		}

		rc.Status = target
		if in.Supplier != nil {
			if strings.TrimSpace(*in.Supplier) == "" {
				return domain.ErrInvalidInput
			}
			rc.Supplier = strings.TrimSpace(*in.Supplier)
		}
		if in.FromLocation != nil {
			rc.FromLocation = orDefault(strings.TrimSpace(*in.FromLocation), entity.DefaultFromLocation)
		}
		if in.ToLocationID != nil {
			rc.ToLocationID = *in.ToLocationID
		}
		if in.ScheduleDate != nil {
			rc.ScheduleDate = *in.ScheduleDate
		}
		if in.Responsible != nil {
			rc.Responsible = *in.Responsible
		}
		if in.Note != nil {
			rc.Note = *in.Note
		}
		if items != nil {
			rc.Items = items
		}
		if err := checkReferences(ctx, r, rc); err != nil {
			return err
		}
		rc.UpdatedAt = uc.now()
		if err := r.Receipts.Update(ctx, rc); err != nil {
			return err
		}
		out = rc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Validate pasa una recepción READY a DONE aplicando una entrada de stock por línea en la
// bodega del destino. Si alguna línea falla no se aplica ninguna y el estado no cambia.
func (uc *UseCase) Validate(ctx context.Context, id, actorID string) (*entity.Receipt, error) {
	var out *entity.Receipt
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "validate receipt", func(r inventory.Repos) error {
		rc, err := loadReceipt(ctx, r, id)
		if err != nil {
			return err
		}
		if err := domaininv.CheckTransition(rc.ID, rc.Status, entity.ReceiptStatusDone); err != nil {
			return err
		}
		warehouseID, err := resolveWarehouse(ctx, r, rc.ToLocationID)
		if err != nil {
			return err
		}
		if err := lockProducts(ctx, r, rc.Items); err != nil {
			return err
		}

		txID := uuid.NewString()
		for i := range rc.Items {
			item := &rc.Items[i]
			qty := item.QuantityReceived
			if !qty.IsPositive() {
				qty = item.QuantityExpected
			}
			if _, err := uc.stock.ReceiveInTx(ctx, r, inventory.ReceiveInput{
				ProductID:   item.ProductID,
				WarehouseID: warehouseID,
				Quantity:    qty,
				Reference:   rc.Reference,
				ActorID:     actorID,
			}, txID); err != nil {
				return err
			}
			item.QuantityReceived = qty
		}

		now := uc.now()
		rc.Status = entity.ReceiptStatusDone
		rc.ValidatedBy = actorID
		rc.ValidatedAt = &now
		rc.UpdatedAt = now
		if err := r.Receipts.Update(ctx, rc); err != nil {
			return err
		}
		out = rc
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("receipt_id", out.ID).Str("reference", out.Reference).Int("items", len(out.Items)).Msg("recepción validada")
	return out, nil
}

// Cancel pasa una recepción no terminal a CANCELLED. Nunca toca stock.
func (uc *UseCase) Cancel(ctx context.Context, id, actorID string) (*entity.Receipt, error) {
	var out *entity.Receipt
	err := uc.retry.Run(ctx, uc.txRunner, uc.log, "cancel receipt", func(r inventory.Repos) error {
		rc, err := loadReceipt(ctx, r, id)
		if err != nil {
			return err
		}
		if err := domaininv.CheckTransition(rc.ID, rc.Status, entity.ReceiptStatusCancelled); err != nil {
			return err
		}
		rc.Status = entity.ReceiptStatusCancelled
		rc.UpdatedAt = uc.now()
		if err := r.Receipts.Update(ctx, rc); err != nil {
			return err
		}
		out = rc
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("receipt_id", out.ID).Str("actor", actorID).Msg("recepción cancelada")
	return out, nil
}

// Delete borra una recepción que no esté DONE. El borrado lleva la versión leída: si una
// validación concurrente la cambió, el intento se reintenta y ve el estado nuevo.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	return uc.retry.Run(ctx, uc.txRunner, uc.log, "delete receipt", func(r inventory.Repos) error {
		rc, err := loadReceipt(ctx, r, id)
		if err != nil {
			return err
		}
		if !domaininv.CanDeleteReceipt(rc.Status) {
			return domain.InvalidTransition(rc.ID, rc.Status, "DELETED")
		}
		return r.Receipts.Delete(ctx, rc.ID, rc.Version)
	})
}

// PDF genera el documento imprimible de la recepción.
func (uc *UseCase) PDF(ctx context.Context, id string) ([]byte, error) {
	if uc.pdf == nil {
		return nil, domain.ErrNotFound
	}
	rc, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data := ports.ReceiptPDFData{Receipt: rc, Products: map[string]*entity.Product{}, ToLocation: rc.ToLocationID}
	for _, item := range rc.Items {
		if _, ok := data.Products[item.ProductID]; ok {
			continue
		}
		p, err := uc.reader.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			data.Products[item.ProductID] = p
		}
	}
	if loc, err := uc.reader.Locations.GetByID(ctx, rc.ToLocationID); err == nil && loc != nil {
		data.ToLocation = loc.ShortCode
		if wh, err := uc.reader.Warehouses.GetByID(ctx, loc.WarehouseID); err == nil && wh != nil {
			data.ToWarehouse = wh.Name
		}
	} else if wh, err := uc.reader.Warehouses.GetByID(ctx, rc.ToLocationID); err == nil && wh != nil {
		data.ToLocation = wh.ShortCode
		data.ToWarehouse = wh.Name
	}
	return uc.pdf.Generate(data)
}

func buildItems(in []ItemInput) ([]entity.ReceiptItem, error) {
	if len(in) == 0 {
		return nil, domain.ErrInvalidInput
	}
	items := make([]entity.ReceiptItem, 0, len(in))
	for _, it := range in {
		if it.ProductID == "" {
			return nil, domain.ErrInvalidInput
		}
		if err := domaininv.RequirePositive("receipt item", it.QuantityExpected); err != nil {
			return nil, err
		}
		item := entity.ReceiptItem{
			ID:               uuid.NewString(),
			ProductID:        it.ProductID,
			QuantityExpected: it.QuantityExpected,
			QuantityReceived: decimal.Zero,
		}
		if it.QuantityReceived != nil {
			if err := domaininv.RequireNonNegative("receipt item", *it.QuantityReceived); err != nil {
				return nil, err
			}
			item.QuantityReceived = *it.QuantityReceived
		}
		items = append(items, item)
	}
	return items, nil
}

// checkReferences verifica que existan el destino y los productos de cada línea.
func checkReferences(ctx context.Context, r inventory.Repos, rc *entity.Receipt) error {
	if _, err := resolveWarehouse(ctx, r, rc.ToLocationID); err != nil {
		return err
	}
	for _, item := range rc.Items {
		p, err := r.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("product", item.ProductID)
		}
	}
	return nil
}

// lockProducts bloquea los productos de la recepción en orden de ID, así dos validaciones
// con los mismos productos en distinto orden no se bloquean mutuamente.
func lockProducts(ctx context.Context, r inventory.Repos, items []entity.ReceiptItem) error {
	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		p, err := r.Products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("product", id)
		}
	}
	return nil
}

// resolveWarehouse traduce el destino a bodega: una ubicación resuelve a su bodega,
// y también se acepta directamente el ID de una bodega.
func resolveWarehouse(ctx context.Context, r inventory.Repos, locationID string) (string, error) {
	loc, err := r.Locations.GetByID(ctx, locationID)
	if err != nil {
		return "", err
	}
	if loc != nil {
		return loc.WarehouseID, nil
	}
	wh, err := r.Warehouses.GetByID(ctx, locationID)
	if err != nil {
		return "", err
	}
	if wh != nil {
		return wh.ID, nil
	}
	return "", domain.NotFound("location", locationID)
}

func loadReceipt(ctx context.Context, r inventory.Repos, id string) (*entity.Receipt, error) {
	rc, err := r.Receipts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, domain.NotFound("receipt", id)
	}
	return rc, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
