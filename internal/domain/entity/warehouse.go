package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario (multi-bodega).
type Warehouse struct {
	ID        string
	Name      string // único
	ShortCode string // único, ej. "WH"
	Address   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
