package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestGenerate_ProduceUnPDF(t *testing.T) {
	validated := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	rc := &entity.Receipt{
		ID:           "rc-1",
		Reference:    "WH/IN/0007",
		Supplier:     "Azure Interior",
		FromLocation: entity.DefaultFromLocation,
		ToLocationID: "loc-1",
		ScheduleDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:       entity.ReceiptStatusDone,
		ValidatedBy:  "user-1",
		ValidatedAt:  &validated,
		Items: []entity.ReceiptItem{
			{ProductID: "p-1", QuantityExpected: decimal.NewFromInt(10), QuantityReceived: decimal.RequireFromString("9.5")},
			{ProductID: "p-desconocido", QuantityExpected: decimal.NewFromInt(2), QuantityReceived: decimal.NewFromInt(2)},
		},
	}
	data := ports.ReceiptPDFData{
		Receipt:     rc,
		Products:    map[string]*entity.Product{"p-1": {ID: "p-1", Name: "Escritorio", SKU: "DESK-01", UnitOfMeasure: "Units"}},
		ToLocation:  "WH/Stock",
		ToWarehouse: "Principal",
	}

	out, err := NewMarotoPDFGenerator().Generate(data)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "el documento debe iniciar con la firma %%PDF")
}

func TestGenerate_SinRecepcion(t *testing.T) {
	_, err := NewMarotoPDFGenerator().Generate(ports.ReceiptPDFData{})
	assert.Error(t, err)
}

func TestFormatQty(t *testing.T) {
	assert.Equal(t, "12.5", formatQty(decimal.RequireFromString("12.5000")))
	assert.Equal(t, "3", formatQty(decimal.NewFromInt(3)))
	assert.Equal(t, "0.1235", formatQty(decimal.RequireFromString("0.12345")))
}
