package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo.
// OnHand y FreeToUse son una proyección de solo lectura: los escribe únicamente la
// reconciliación del motor de inventario a partir de las líneas de stock.
type Product struct {
	ID               string
	Name             string // único
	SKU              string // opcional, único si está presente
	Description      string
	Category         string
	UnitOfMeasure    string
	CostPerUnit      decimal.Decimal
	ReorderLevel     decimal.Decimal
	OnHand           decimal.Decimal
	FreeToUse        decimal.Decimal
	ReservedQuantity decimal.Decimal
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ApplyTotals fija la proyección a partir del total en bodegas.
func (p *Product) ApplyTotals(onHand decimal.Decimal) {
	p.OnHand = onHand
	p.FreeToUse = onHand.Sub(p.ReservedQuantity)
}
