package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una recepción.
const (
	ReceiptStatusDraft     = "DRAFT"
	ReceiptStatusWaiting   = "WAITING"
	ReceiptStatusReady     = "READY"
	ReceiptStatusDone      = "DONE"
	ReceiptStatusCancelled = "CANCELLED"
)

// DefaultFromLocation es el origen por omisión de una recepción de proveedor.
const DefaultFromLocation = "Vendor"

// Receipt es un documento de entrada con varias líneas.
type Receipt struct {
	ID           string
	Reference    string // WH/IN/0001, única
	Supplier     string
	FromLocation string
	ToLocationID string
	ScheduleDate time.Time
	Responsible  string
	Note         string
	Status       string
	Items        []ReceiptItem
	CreatedBy    string
	ValidatedBy  string
	ValidatedAt  *time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReceiptItem es una línea de la recepción.
type ReceiptItem struct {
	ID               string
	ProductID        string
	QuantityExpected decimal.Decimal
	QuantityReceived decimal.Decimal
}

// IsTerminal indica si la recepción ya no admite cambios.
func (r *Receipt) IsTerminal() bool {
	return r.Status == ReceiptStatusDone || r.Status == ReceiptStatusCancelled
}

// ReceiptStats agrega los contadores del tablero de recepciones.
type ReceiptStats struct {
	Total     int64
	Pending   int64 // READY
	Done      int64
	Late      int64 // READY con fecha programada vencida
	Cancelled int64
}
