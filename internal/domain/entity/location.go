package entity

import "time"

// Location es una ubicación dentro de una bodega (estante, zona de recepción...).
type Location struct {
	ID          string
	Name        string
	ShortCode   string // único
	WarehouseID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
