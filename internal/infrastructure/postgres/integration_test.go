//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/receipt"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/migrations"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Contenedor PostgreSQL
// ──────────────────────────────────────────────────────────────────────────────

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "no se pudo iniciar PostgreSQL")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrations.New(dsn, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

type pgFixture struct {
	runner    *postgres.TxRunner
	ledger    *inventory.LedgerUseCase
	productID string
	wh1, wh2  string
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	pool := newTestPool(t)
	runner := postgres.NewTxRunner(pool)
	repos := runner.Repos()
	ctx := context.Background()
	now := time.Now().UTC()

	f := &pgFixture{
		runner:    runner,
		ledger:    inventory.NewLedgerUseCase(runner, repos, inventory.RetryPolicy{MaxAttempts: 5, Base: 5 * time.Millisecond}, logger.Nop()),
		productID: uuid.NewString(),
		wh1:       uuid.NewString(),
		wh2:       uuid.NewString(),
	}
	require.NoError(t, repos.Products.Create(ctx, &entity.Product{
		ID: f.productID, Name: "Producto X", UnitOfMeasure: "Units", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, repos.Warehouses.Create(ctx, &entity.Warehouse{ID: f.wh1, Name: "Uno", ShortCode: "W1", IsActive: true, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, repos.Warehouses.Create(ctx, &entity.Warehouse{ID: f.wh2, Name: "Dos", ShortCode: "W2", IsActive: true, CreatedAt: now, UpdatedAt: now}))
	return f
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestPostgres_RecibirTransferirEntregar(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: f.productID, WarehouseID: f.wh1, Quantity: d("100")})
	require.NoError(t, err)
	res, err := f.ledger.Transfer(ctx, inventory.TransferInput{ProductID: f.productID, FromWarehouseID: f.wh1, ToWarehouseID: f.wh2, Quantity: d("30")})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, res.Entries[0].TransactionID, res.Entries[1].TransactionID)
	assert.Equal(t, "To: W2", res.Entries[0].Reference)

	_, err = f.ledger.Deliver(ctx, inventory.DeliverInput{ProductID: f.productID, WarehouseID: f.wh2, Quantity: d("31")})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	q1, err := f.ledger.GetQuantity(ctx, f.productID, f.wh1)
	require.NoError(t, err)
	q2, err := f.ledger.GetQuantity(ctx, f.productID, f.wh2)
	require.NoError(t, err)
	assert.True(t, q1.Equal(d("70")))
	assert.True(t, q2.Equal(d("30")))

	repos := f.runner.Repos()
	entries, err := repos.Ledger.List(ctx, repository.LedgerFilter{ProductID: f.productID})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	for _, wh := range []string{f.wh1, f.wh2} {
		sum, err := repos.Ledger.SumDeltas(ctx, f.productID, wh)
		require.NoError(t, err)
		line, err := repos.Stock.Get(ctx, f.productID, wh)
		require.NoError(t, err)
		assert.True(t, sum.Equal(line.Quantity), "suma del libro = línea de stock en %s", wh)
	}

	p, err := repos.Products.GetByID(ctx, f.productID)
	require.NoError(t, err)
	assert.True(t, p.OnHand.Equal(d("100")))
}

func TestPostgres_EntregasConcurrentesNuncaNegativas(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: f.productID, WarehouseID: f.wh1, Quantity: d("10")})
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Deliver(ctx, inventory.DeliverInput{ProductID: f.productID, WarehouseID: f.wh1, Quantity: d("1")})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrConcurrencyConflict), "error inesperado: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	q, err := f.ledger.GetQuantity(ctx, f.productID, f.wh1)
	require.NoError(t, err)
	assert.True(t, q.IsZero())
}

func TestPostgres_ReferenciasDeRecepcionUnicas(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	uc := receipt.NewUseCase(f.runner, f.runner.Repos(), f.ledger, nil,
		inventory.RetryPolicy{MaxAttempts: 5, Base: 5 * time.Millisecond}, logger.Nop())

	const n = 10
	refs := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, err := uc.Create(ctx, "tester", receipt.CreateInput{
				Supplier:     "Proveedor",
				ToLocationID: f.wh1,
				Items:        []receipt.ItemInput{{ProductID: f.productID, QuantityExpected: d("1")}},
			})
			if assert.NoError(t, err) {
				refs <- rc.Reference
			}
		}()
	}
	wg.Wait()
	close(refs)

	seen := map[string]bool{}
	for ref := range refs {
		assert.False(t, seen[ref], "referencia repetida %s", ref)
		seen[ref] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["WH/IN/0001"])
}

func TestPostgres_IDMalFormadoEsNoEncontrado(t *testing.T) {
	f := newPGFixture(t)
	_, err := f.ledger.Receive(context.Background(), inventory.ReceiveInput{ProductID: "no-es-uuid", WarehouseID: f.wh1, Quantity: d("1")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPostgres_EntradasConcurrentesMantienenProyeccion(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wh, cost := f.wh1, d("10")
			if i%2 == 1 {
				wh, cost = f.wh2, d("20")
			}
			_, err := f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: f.productID, WarehouseID: wh, Quantity: d("1"), UnitCost: &cost})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	repos := f.runner.Repos()
	sum, err := repos.Stock.SumByProduct(ctx, f.productID)
	require.NoError(t, err)
	p, err := repos.Products.GetByID(ctx, f.productID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(d("20")), "suma de líneas=%s", sum)
	assert.True(t, p.OnHand.Equal(sum), "on_hand=%s suma=%s", p.OnHand, sum)
	assert.True(t, p.FreeToUse.Equal(sum))
	// 10 unidades a 10 y 10 a 20: ningún recálculo del costo se pierde
	assert.InDelta(t, 15.0, p.CostPerUnit.InexactFloat64(), 0.01, "costo=%s", p.CostPerUnit)
}

func TestPostgres_BorradoDeProductoConEntradaConcurrente(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	repos := f.runner.Repos()
	products := usecase.NewProductUseCase(repos.Products, f.runner)

	for i := 0; i < 10; i++ {
		now := time.Now().UTC()
		id := uuid.NewString()
		require.NoError(t, repos.Products.Create(ctx, &entity.Product{
			ID: id, Name: "Carrera " + id, UnitOfMeasure: "Units", CreatedAt: now, UpdatedAt: now,
		}))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: id, WarehouseID: f.wh1, Quantity: d("10")})
			assert.True(t, err == nil || errors.Is(err, domain.ErrNotFound), "entrada: %v", err)
		}()
		go func() {
			defer wg.Done()
			err := products.Delete(ctx, id)
			assert.True(t, err == nil || errors.Is(err, domain.ErrInvalidStateTransition), "borrado: %v", err)
		}()
		wg.Wait()

		p, err := repos.Products.GetByID(ctx, id)
		require.NoError(t, err)
		line, err := repos.Stock.Get(ctx, id, f.wh1)
		require.NoError(t, err)
		if p == nil {
			assert.True(t, line.Quantity.IsZero(), "existencia huérfana de %s: %s", id, line.Quantity)
		} else {
			assert.True(t, line.Quantity.Equal(d("10")))
		}
	}
}

func TestPostgres_BorradoDeBodegaConEntradaConcurrente(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	repos := f.runner.Repos()
	warehouses := usecase.NewWarehouseUseCase(repos.Warehouses, f.runner)

	for i := 0; i < 10; i++ {
		now := time.Now().UTC()
		id := uuid.NewString()
		require.NoError(t, repos.Warehouses.Create(ctx, &entity.Warehouse{
			ID: id, Name: "Bodega " + id, ShortCode: id[:8], IsActive: true, CreatedAt: now, UpdatedAt: now,
		}))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: f.productID, WarehouseID: id, Quantity: d("10")})
			assert.True(t, err == nil || errors.Is(err, domain.ErrNotFound), "entrada: %v", err)
		}()
		go func() {
			defer wg.Done()
			err := warehouses.Delete(ctx, id)
			assert.True(t, err == nil || errors.Is(err, domain.ErrInvalidStateTransition), "borrado: %v", err)
		}()
		wg.Wait()

		w, err := repos.Warehouses.GetByID(ctx, id)
		require.NoError(t, err)
		line, err := repos.Stock.Get(ctx, f.productID, id)
		require.NoError(t, err)
		if w == nil {
			assert.True(t, line.Quantity.IsZero(), "existencia huérfana en %s: %s", id, line.Quantity)
		}
	}
}

func TestPostgres_BorradoDeRecepcionConVersionObsoleta(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	retry := inventory.RetryPolicy{MaxAttempts: 5, Base: 5 * time.Millisecond}
	uc := receipt.NewUseCase(f.runner, f.runner.Repos(), f.ledger, nil, retry, logger.Nop())

	rc, err := uc.Create(ctx, "tester", receipt.CreateInput{
		Supplier:     "Proveedor",
		ToLocationID: f.wh1,
		Status:       entity.ReceiptStatusReady,
		Items:        []receipt.ItemInput{{ProductID: f.productID, QuantityExpected: d("3")}},
	})
	require.NoError(t, err)
	_, err = uc.Validate(ctx, rc.ID, "tester")
	require.NoError(t, err)

	// una tx que leyó la recepción antes de la validación intenta borrarla con esa versión
	repos := f.runner.Repos()
	err = repos.Receipts.Delete(ctx, rc.ID, rc.Version)
	assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict), "borrado obsoleto: %v", err)

	got, err := uc.Get(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReceiptStatusDone, got.Status)

	err = repos.Receipts.Delete(ctx, uuid.NewString(), 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPostgres_SaldoFueraDeRangoEsCantidadInvalida(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	big := d("90000000000000")

	_, err := f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: f.productID, WarehouseID: f.wh1, Quantity: big})
	require.NoError(t, err)
	_, err = f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: f.productID, WarehouseID: f.wh2, Quantity: big})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity), "total del producto: %v", err)

	p, err := f.runner.Repos().Products.GetByID(ctx, f.productID)
	require.NoError(t, err)
	assert.True(t, p.OnHand.Equal(big))
}

func TestPostgres_SumaDeSalidasSinPaginar(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Receive(ctx, inventory.ReceiveInput{ProductID: f.productID, WarehouseID: f.wh1, Quantity: d("700")})
	require.NoError(t, err)
	for i := 0; i < inventory.MaxHistoryLimit+50; i++ {
		_, err := f.ledger.Deliver(ctx, inventory.DeliverInput{ProductID: f.productID, WarehouseID: f.wh1, Quantity: d("1")})
		require.NoError(t, err)
	}

	since := time.Now().Add(-time.Hour)
	total, err := f.runner.Repos().Ledger.SumMoved(ctx, repository.LedgerFilter{
		Type: entity.EntryTypeDelivery, ProductID: f.productID, From: &since,
	})
	require.NoError(t, err)
	assert.True(t, total.Equal(d("550")), "total=%s", total)
}
