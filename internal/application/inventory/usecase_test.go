package inventory_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testProductID = "prod-x"
	testWH1       = "wh-1"
	testWH2       = "wh-2"
	testActor     = "user-1"
)

var testRetry = inventory.RetryPolicy{MaxAttempts: 3, Base: time.Millisecond}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store *memory.Store
	uc    *inventory.LedgerUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	seedCatalog(t, store)
	return &fixture{
		store: store,
		uc:    inventory.NewLedgerUseCase(store, store.Repos(), testRetry, logger.Nop()),
	}
}

// newFixtureWithRunner usa un TxRunner alternativo sobre el mismo almacén.
func newFixtureWithRunner(t *testing.T, wrap func(inventory.Repos) inventory.Repos) *fixture {
	t.Helper()
	store := memory.NewStore()
	seedCatalog(t, store)
	runner := hookedRunner{inner: store, wrap: wrap}
	return &fixture{
		store: store,
		uc:    inventory.NewLedgerUseCase(runner, store.Repos(), testRetry, logger.Nop()),
	}
}

func seedCatalog(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	r := store.Repos()
	now := time.Now()
	require.NoError(t, r.Products.Create(ctx, &entity.Product{
		ID: testProductID, Name: "Producto X", SKU: "X-001", CostPerUnit: d("10"),
		ReorderLevel: d("40"), CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, r.Warehouses.Create(ctx, &entity.Warehouse{ID: testWH1, Name: "Bodega 1", ShortCode: "WH1", IsActive: true}))
	require.NoError(t, r.Warehouses.Create(ctx, &entity.Warehouse{ID: testWH2, Name: "Bodega 2", ShortCode: "WH2", IsActive: true}))
}

func (f *fixture) qty(t *testing.T, warehouseID string) decimal.Decimal {
	t.Helper()
	q, err := f.uc.GetQuantity(context.Background(), testProductID, warehouseID)
	require.NoError(t, err)
	return q
}

func (f *fixture) entries(t *testing.T) []*entity.LedgerEntry {
	t.Helper()
	list, err := f.store.Repos().Ledger.List(context.Background(), repository.LedgerFilter{})
	require.NoError(t, err)
	return list
}

func (f *fixture) receive(t *testing.T, warehouseID, q, ref string) {
	t.Helper()
	_, err := f.uc.Receive(context.Background(), inventory.ReceiveInput{
		ProductID: testProductID, WarehouseID: warehouseID, Quantity: d(q), Reference: ref, ActorID: testActor,
	})
	require.NoError(t, err)
}

// assertLedgerMatchesStock: la suma de deltas por par coincide con la línea.
func (f *fixture) assertLedgerMatchesStock(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	r := f.store.Repos()
	lines, err := r.Stock.List(ctx, repository.StockFilter{})
	require.NoError(t, err)
	total := decimal.Zero
	for _, line := range lines {
		sum, err := r.Ledger.SumDeltas(ctx, line.ProductID, line.WarehouseID)
		require.NoError(t, err)
		assert.True(t, sum.Equal(line.Quantity), "ledger %s != stock %s en %s", sum, line.Quantity, line.WarehouseID)
		assert.False(t, line.Quantity.IsNegative())
		total = total.Add(line.Quantity)
	}
	p, err := r.Products.GetByID(ctx, testProductID)
	require.NoError(t, err)
	assert.True(t, p.OnHand.Equal(total), "onHand %s != %s", p.OnHand, total)
	assert.True(t, p.FreeToUse.Equal(total))
}

type hookedRunner struct {
	inner inventory.TxRunner
	wrap  func(inventory.Repos) inventory.Repos
}

func (h hookedRunner) Run(ctx context.Context, fn func(r inventory.Repos) error) error {
	return h.inner.Run(ctx, func(r inventory.Repos) error { return fn(h.wrap(r)) })
}

// failingStock falla al guardar la línea de una bodega concreta.
type failingStock struct {
	repository.StockRepository
	warehouseID string
	err         error
}

func (f failingStock) Save(ctx context.Context, line *entity.StockLine) error {
	if line.WarehouseID == f.warehouseID {
		return f.err
	}
	return f.StockRepository.Save(ctx, line)
}

// conflictingStock devuelve conflicto de concurrencia las primeras n veces.
type conflictingStock struct {
	repository.StockRepository
	remaining *int
	mu        *sync.Mutex
}

func (c conflictingStock) Save(ctx context.Context, line *entity.StockLine) error {
	c.mu.Lock()
	if *c.remaining > 0 {
		*c.remaining--
		c.mu.Unlock()
		return domain.ConcurrencyConflict("save stock line")
	}
	c.mu.Unlock()
	return c.StockRepository.Save(ctx, line)
}

// countingRunner registra si se abrió alguna transacción.
type countingRunner struct{ calls int }

func (c *countingRunner) Run(_ context.Context, _ func(r inventory.Repos) error) error {
	c.calls++
	return errors.New("no debería abrirse una transacción")
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_EscenarioA(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.Receive(context.Background(), inventory.ReceiveInput{
		ProductID: testProductID, WarehouseID: testWH1, Quantity: d("100"), Reference: "PO-1", ActorID: testActor,
	})
	require.NoError(t, err)

	assert.True(t, f.qty(t, testWH1).Equal(d("100")))
	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, entity.EntryTypeReceipt, e.Type)
	assert.Equal(t, "PO-1", e.Reference)
	assert.Equal(t, testActor, e.ActorID)
	assert.True(t, e.PreviousQuantity.IsZero())
	assert.True(t, e.NewQuantity.Equal(d("100")))
	assert.True(t, e.QuantityDelta.Equal(d("100")))
	assert.True(t, res.Product.OnHand.Equal(d("100")))

	assert.Len(t, f.entries(t), 1)
	f.assertLedgerMatchesStock(t)
}

func TestDeliver_EscenarioB(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testWH1, "100", "PO-1")

	_, err := f.uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("30"), Reference: "SO-1", ActorID: testActor})
	require.NoError(t, err)
	assert.True(t, f.qty(t, testWH1).Equal(d("70")))

	_, err = f.uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("80"), Reference: "SO-2", ActorID: testActor})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, testProductID, de.ProductID)
	assert.Equal(t, testWH1, de.WarehouseID)
	assert.True(t, de.Available.Equal(d("70")))
	assert.True(t, de.Requested.Equal(d("80")))

	assert.True(t, f.qty(t, testWH1).Equal(d("70")))
	assert.Len(t, f.entries(t), 2)
	f.assertLedgerMatchesStock(t)
}

func TestTransfer_EscenarioC(t *testing.T) {
	f := newFixture(t)
	f.receive(t, testWH1, "70", "PO-1")

	res, err := f.uc.Transfer(context.Background(), inventory.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: testWH2, Quantity: d("20"), ActorID: testActor,
	})
	require.NoError(t, err)

	assert.True(t, f.qty(t, testWH1).Equal(d("50")))
	assert.True(t, f.qty(t, testWH2).Equal(d("20")))

	require.Len(t, res.Entries, 2)
	out, in := res.Entries[0], res.Entries[1]
	assert.Equal(t, entity.EntryTypeTransfer, out.Type)
	assert.Equal(t, entity.EntryTypeTransfer, in.Type)
	assert.Equal(t, out.TransactionID, in.TransactionID)
	assert.Equal(t, in.ID, out.LinkedEntryID)
	assert.Equal(t, out.ID, in.LinkedEntryID)
	assert.Equal(t, testWH2, out.CounterpartWarehouseID)
	assert.Equal(t, "To: WH2", out.Reference)
	assert.Equal(t, "From: WH1", in.Reference)
	assert.True(t, out.QuantityDelta.Equal(d("-20")))
	assert.True(t, in.PreviousQuantity.IsZero())
	assert.True(t, in.NewQuantity.Equal(d("20")))

	// el total del producto no cambia con un traslado
	assert.True(t, res.Product.OnHand.Equal(d("70")))
	f.assertLedgerMatchesStock(t)
}

func TestAdjust_EscenarioE(t *testing.T) {
	f := newFixture(t)
	f.receive(t, testWH1, "50", "PO-1")

	res, err := f.uc.Adjust(context.Background(), inventory.AdjustInput{
		ProductID: testProductID, WarehouseID: testWH1, CountedQuantity: d("45"), ActorID: testActor,
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, entity.EntryTypeAdjustment, res.Entries[0].Type)
	assert.True(t, res.Entries[0].QuantityDelta.Equal(d("-5")))
	assert.Equal(t, inventory.DefaultAdjustReference, res.Entries[0].Reference)
	assert.True(t, f.qty(t, testWH1).Equal(d("45")))
	f.assertLedgerMatchesStock(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestMutaciones_CantidadInvalidaSinTocarAlmacen(t *testing.T) {
	runner := &countingRunner{}
	uc := inventory.NewLedgerUseCase(runner, memory.NewStore().Repos(), testRetry, logger.Nop())
	ctx := context.Background()

	_, err := uc.Receive(ctx, inventory.ReceiveInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("0")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("-3")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = uc.Transfer(ctx, inventory.TransferInput{ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: testWH2, Quantity: d("1.00001")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = uc.Adjust(ctx, inventory.AdjustInput{ProductID: testProductID, WarehouseID: testWH1, CountedQuantity: d("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	assert.Zero(t, runner.calls)
}

func TestReceive_SaldoFueraDeRangoRechazado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// 9e13 es válido como cantidad de una operación; dos entradas ya no caben en NUMERIC(18,4)
	big := d("90000000000000")
	f.receive(t, testWH1, big.String(), "PO-1")
	before := len(f.entries(t))

	_, err := f.uc.Receive(ctx, inventory.ReceiveInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: big})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "saldo de la línea")
	assert.True(t, f.qty(t, testWH1).Equal(big))

	// la línea de WH2 cabe, pero el total del producto no
	_, err = f.uc.Receive(ctx, inventory.ReceiveInput{ProductID: testProductID, WarehouseID: testWH2, Quantity: big})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "total del producto")
	assert.True(t, f.qty(t, testWH2).IsZero())

	_, err = f.uc.Transfer(ctx, inventory.TransferInput{ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: testWH2, Quantity: d("1")})
	require.NoError(t, err, "un traslado no cambia el total")
	assert.Len(t, f.entries(t), before+2)
}

func TestTransfer_MismaBodega(t *testing.T) {
	f := newFixture(t)
	f.receive(t, testWH1, "10", "PO-1")

	_, err := f.uc.Transfer(context.Background(), inventory.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: testWH1, Quantity: d("5"),
	})
	require.ErrorIs(t, err, domain.ErrSameWarehouse)
	assert.True(t, f.qty(t, testWH1).Equal(d("10")))
}

func TestTransfer_StockInsuficienteEnOrigen(t *testing.T) {
	f := newFixture(t)
	f.receive(t, testWH1, "10", "PO-1")

	_, err := f.uc.Transfer(context.Background(), inventory.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: testWH2, Quantity: d("11"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.qty(t, testWH1).Equal(d("10")))
	assert.True(t, f.qty(t, testWH2).IsZero())
	assert.Len(t, f.entries(t), 1)
}

func TestMutaciones_ReferenciasInexistentes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Receive(ctx, inventory.ReceiveInput{ProductID: "nope", WarehouseID: testWH1, Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: "nope", Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.uc.Transfer(ctx, inventory.TransferInput{ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: "nope", Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, f.entries(t))
}

func TestAdjust_SinDiferenciaNoEscribe(t *testing.T) {
	f := newFixture(t)
	f.receive(t, testWH1, "12", "PO-1")

	res, err := f.uc.Adjust(context.Background(), inventory.AdjustInput{ProductID: testProductID, WarehouseID: testWH1, CountedQuantity: d("12")})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Entries)
	assert.Len(t, f.entries(t), 1)
}

func TestAdjust_LineaInexistenteEnCeroNoLaCrea(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.Adjust(context.Background(), inventory.AdjustInput{ProductID: testProductID, WarehouseID: testWH2, CountedQuantity: d("0")})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	lines, err := f.store.Repos().Stock.List(context.Background(), repository.StockFilter{WarehouseID: testWH2})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReceive_CostoPromedioPonderado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cost := d("20")

	// 0 existencias: el costo pasa a ser el de la entrada
	res, err := f.uc.Receive(ctx, inventory.ReceiveInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("10"), UnitCost: &cost})
	require.NoError(t, err)
	assert.True(t, res.Product.CostPerUnit.Equal(d("20")), res.Product.CostPerUnit.String())

	cost = d("40")
	res, err = f.uc.Receive(ctx, inventory.ReceiveInput{ProductID: testProductID, WarehouseID: testWH2, Quantity: d("10"), UnitCost: &cost})
	require.NoError(t, err)
	assert.True(t, res.Product.CostPerUnit.Equal(d("30")), res.Product.CostPerUnit.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariantes
// ──────────────────────────────────────────────────────────────────────────────

func TestSecuenciaAleatoria_NoNegativoYLibroCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	whs := []string{testWH1, testWH2}

	for i := 0; i < 300; i++ {
		wh := whs[rng.Intn(2)]
		q := decimal.NewFromInt(int64(rng.Intn(20) + 1))
		var err error
		switch rng.Intn(4) {
		case 0:
			_, err = f.uc.Receive(ctx, inventory.ReceiveInput{ProductID: testProductID, WarehouseID: wh, Quantity: q})
		case 1:
			_, err = f.uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: wh, Quantity: q})
		case 2:
			other := testWH2
			if wh == testWH2 {
				other = testWH1
			}
			_, err = f.uc.Transfer(ctx, inventory.TransferInput{ProductID: testProductID, FromWarehouseID: wh, ToWarehouseID: other, Quantity: q})
		case 3:
			_, err = f.uc.Adjust(ctx, inventory.AdjustInput{ProductID: testProductID, WarehouseID: wh, CountedQuantity: decimal.NewFromInt(int64(rng.Intn(30)))})
		}
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
		assert.False(t, f.qty(t, testWH1).IsNegative())
		assert.False(t, f.qty(t, testWH2).IsNegative())
	}
	f.assertLedgerMatchesStock(t)

	// cada asiento cumple nuevo = anterior + delta
	for _, e := range f.entries(t) {
		assert.True(t, e.NewQuantity.Equal(e.PreviousQuantity.Add(e.QuantityDelta)))
	}
}

func TestTransfer_FallaDestinoNoDejaRastro(t *testing.T) {
	boom := errors.New("fallo de escritura en destino")
	f := newFixtureWithRunner(t, func(r inventory.Repos) inventory.Repos {
		r.Stock = failingStock{StockRepository: r.Stock, warehouseID: testWH2, err: boom}
		return r
	})
	// la entrada inicial se hace en WH1, que no falla
	f.receive(t, testWH1, "70", "PO-1")
	before := f.entries(t)

	_, err := f.uc.Transfer(context.Background(), inventory.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: testWH2, Quantity: d("20"),
	})
	require.ErrorIs(t, err, boom)

	assert.True(t, f.qty(t, testWH1).Equal(d("70")))
	assert.True(t, f.qty(t, testWH2).IsZero())
	assert.Len(t, f.entries(t), len(before))
	f.assertLedgerMatchesStock(t)
}

func TestDeliver_ConcurrenteSoloUnoGana(t *testing.T) {
	f := newFixture(t)
	f.receive(t, testWH1, "5", "PO-1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Deliver(context.Background(), inventory.DeliverInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("5")})
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.True(t, f.qty(t, testWH1).IsZero())
	f.assertLedgerMatchesStock(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_ReintentaConflictoDeConcurrencia(t *testing.T) {
	remaining := 0
	mu := &sync.Mutex{}
	f := newFixtureWithRunner(t, func(r inventory.Repos) inventory.Repos {
		r.Stock = conflictingStock{StockRepository: r.Stock, remaining: &remaining, mu: mu}
		return r
	})
	remaining = 2

	_, err := f.uc.Receive(context.Background(), inventory.ReceiveInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("3")})
	require.NoError(t, err)
	assert.True(t, f.qty(t, testWH1).Equal(d("3")))
	assert.Len(t, f.entries(t), 1)
}

func TestReceive_ConflictoAgotaIntentos(t *testing.T) {
	remaining := 0
	mu := &sync.Mutex{}
	f := newFixtureWithRunner(t, func(r inventory.Repos) inventory.Repos {
		r.Stock = conflictingStock{StockRepository: r.Stock, remaining: &remaining, mu: mu}
		return r
	})
	remaining = 3

	_, err := f.uc.Receive(context.Background(), inventory.ReceiveInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("3")})
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.True(t, f.qty(t, testWH1).IsZero())
	assert.Empty(t, f.entries(t))
}

func TestReconcileProduct_ReparaProyeccion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testWH1, "8", "PO-1")

	// dato heredado desalineado
	require.NoError(t, f.store.Repos().Products.UpdateStockTotals(ctx, testProductID, d("999"), d("999")))

	p, err := f.uc.ReconcileProduct(ctx, testProductID)
	require.NoError(t, err)
	assert.True(t, p.OnHand.Equal(d("8")))
	f.assertLedgerMatchesStock(t)
}
