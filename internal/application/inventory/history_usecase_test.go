package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestHistory_FiltrosYEstadisticas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testWH1, "100", "PO-1")
	f.receive(t, testWH1, "5", "PO-2")
	_, err := f.uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("30"), Reference: "SO-1"})
	require.NoError(t, err)
	_, err = f.uc.Transfer(ctx, inventory.TransferInput{ProductID: testProductID, FromWarehouseID: testWH1, ToWarehouseID: testWH2, Quantity: d("10")})
	require.NoError(t, err)

	r := f.store.Repos()
	h := inventory.NewHistoryUseCase(r.Ledger, r.Products)

	receipts, err := h.List(ctx, repository.LedgerFilter{Type: entity.EntryTypeReceipt})
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	// más reciente primero
	assert.Equal(t, "PO-2", receipts[0].Reference)

	search, err := h.List(ctx, repository.LedgerFilter{Search: "so-"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, entity.EntryTypeDelivery, search[0].Type)

	future := time.Now().Add(time.Hour)
	none, err := h.List(ctx, repository.LedgerFilter{From: &future})
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(2), stats.ByType[entity.EntryTypeReceipt])
	assert.Equal(t, int64(1), stats.ByType[entity.EntryTypeDelivery])
	assert.Equal(t, int64(2), stats.ByType[entity.EntryTypeTransfer])
	assert.Equal(t, int64(0), stats.ByType[entity.EntryTypeAdjustment])
	assert.Len(t, stats.Recent, 5)

	byProduct, err := h.ListByProduct(ctx, testProductID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, byProduct, 2)

	_, err = h.ListByProduct(ctx, "nope", 10, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.List(ctx, repository.LedgerFilter{Type: "SHIPMENT"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReplenishment_ProductosBajoReorden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// ReorderLevel del producto de prueba = 40
	f.receive(t, testWH1, "30", "PO-1")
	_, err := f.uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("10")})
	require.NoError(t, err)

	r := f.store.Repos()
	uc := inventory.NewReplenishmentUseCase(r.Products, r.Ledger)
	list, err := uc.GenerateReplenishmentList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	s := list[0]
	assert.Equal(t, testProductID, s.Product.ID)
	assert.True(t, s.IdealStock.Equal(d("60")), s.IdealStock.String())
	assert.True(t, s.SuggestedOrderQty.Equal(d("40")), s.SuggestedOrderQty.String())
	assert.True(t, s.EstimatedOrderCost.Equal(d("400")))
	assert.True(t, s.DeliveredLast90d.Equal(d("10")))
	assert.Equal(t, 1, s.Priority)

	f.receive(t, testWH2, "100", "PO-2")
	list, err = uc.GenerateReplenishmentList(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReplenishment_SumaTodasLasSalidasSinLimiteDePagina(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deliveries := inventory.MaxHistoryLimit + 100
	f.receive(t, testWH1, "620", "PO-1")
	for i := 0; i < deliveries; i++ {
		_, err := f.uc.Deliver(ctx, inventory.DeliverInput{ProductID: testProductID, WarehouseID: testWH1, Quantity: d("1")})
		require.NoError(t, err)
	}

	r := f.store.Repos()
	list, err := inventory.NewReplenishmentUseCase(r.Products, r.Ledger).GenerateReplenishmentList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].DeliveredLast90d.Equal(d("600")), list[0].DeliveredLast90d.String())
	assert.True(t, list[0].Product.OnHand.Equal(d("20")))
}
