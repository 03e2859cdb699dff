package dto

import "time"

// CreateWarehouseRequest entrada para crear una bodega.
type CreateWarehouseRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	ShortCode string `json:"short_code" validate:"required,min=1,max=10"`
	Address   string `json:"address" validate:"omitempty,max=500"`
}

// UpdateWarehouseRequest entrada para actualizar una bodega.
type UpdateWarehouseRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	ShortCode *string `json:"short_code" validate:"omitempty,min=1,max=10"`
	Address   *string `json:"address" validate:"omitempty,max=500"`
	IsActive  *bool   `json:"is_active"`
}

// WarehouseResponse salida de una bodega.
type WarehouseResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ShortCode string    `json:"short_code"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseListResponse lista paginada de bodegas.
type WarehouseListResponse struct {
	Items []WarehouseResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}

// CreateLocationRequest entrada para crear una ubicación dentro de una bodega.
type CreateLocationRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	ShortCode   string `json:"short_code" validate:"required,min=1,max=20"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
}

// UpdateLocationRequest entrada para actualizar una ubicación.
type UpdateLocationRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	ShortCode   *string `json:"short_code" validate:"omitempty,min=1,max=20"`
	WarehouseID *string `json:"warehouse_id" validate:"omitempty,min=1"`
}

// LocationResponse salida de una ubicación.
type LocationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ShortCode   string    `json:"short_code"`
	WarehouseID string    `json:"warehouse_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LocationListResponse lista paginada de ubicaciones.
type LocationListResponse struct {
	Items []LocationResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
