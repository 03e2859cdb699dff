package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLine es la cantidad disponible de un producto en una bodega.
// Se crea perezosamente en cero y nunca se elimina.
type StockLine struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	Version     int64 // bloqueo optimista
	UpdatedAt   time.Time
}

// StockLineView es una línea de stock enriquecida con nombres para listados.
type StockLineView struct {
	StockLine
	ProductName   string
	ProductSKU    string
	WarehouseName string
	WarehouseCode string
}
