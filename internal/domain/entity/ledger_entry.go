package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de asiento del libro de inventario.
const (
	EntryTypeReceipt    = "RECEIPT"
	EntryTypeDelivery   = "DELIVERY"
	EntryTypeTransfer   = "TRANSFER"
	EntryTypeAdjustment = "ADJUSTMENT"
)

// EntryTypes en orden de presentación.
var EntryTypes = []string{EntryTypeReceipt, EntryTypeDelivery, EntryTypeTransfer, EntryTypeAdjustment}

// ValidEntryType indica si t es un tipo de asiento conocido.
func ValidEntryType(t string) bool {
	for _, et := range EntryTypes {
		if et == t {
			return true
		}
	}
	return false
}

// LedgerEntry es un registro inmutable de un cambio de cantidad.
// NewQuantity == PreviousQuantity + QuantityDelta.
type LedgerEntry struct {
	ID            string
	Seq           int64 // orden de inserción, asignado por el almacenamiento
	TransactionID string
	// LinkedEntryID apunta a la otra pata de un traslado.
	LinkedEntryID          string
	Type                   string
	Reference              string
	ProductID              string
	WarehouseID            string
	CounterpartWarehouseID string
	QuantityDelta          decimal.Decimal
	PreviousQuantity       decimal.Decimal
	NewQuantity            decimal.Decimal
	ActorID                string
	Note                   string
	CreatedAt              time.Time
}

// MoveStats resume el historial de movimientos.
type MoveStats struct {
	Total  int64
	ByType map[string]int64
	Recent []*LedgerEntry
}
