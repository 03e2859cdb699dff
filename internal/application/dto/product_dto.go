package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. El stock nace en cero.
type CreateProductRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	SKU           string          `json:"sku" validate:"omitempty,max=100"`
	Description   string          `json:"description" validate:"omitempty,max=2000"`
	Category      string          `json:"category" validate:"omitempty,max=100"`
	UnitOfMeasure string          `json:"unit_of_measure" validate:"omitempty,max=20"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	ReorderLevel  decimal.Decimal `json:"reorder_level"`
}

// UpdateProductRequest entrada para actualizar un producto (sin OnHand ni FreeToUse).
type UpdateProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	SKU           *string          `json:"sku" validate:"omitempty,max=100"`
	Description   *string          `json:"description" validate:"omitempty,max=2000"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	UnitOfMeasure *string          `json:"unit_of_measure" validate:"omitempty,max=20"`
	CostPerUnit   *decimal.Decimal `json:"cost_per_unit"`
	ReorderLevel  *decimal.Decimal `json:"reorder_level"`
}

// ProductListRequest filtros de GET /api/products.
type ProductListRequest struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	PageRequest
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku,omitempty"`
	Description      string          `json:"description,omitempty"`
	Category         string          `json:"category,omitempty"`
	UnitOfMeasure    string          `json:"unit_of_measure"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	ReorderLevel     decimal.Decimal `json:"reorder_level"`
	OnHand           decimal.Decimal `json:"on_hand"`
	FreeToUse        decimal.Decimal `json:"free_to_use"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	CreatedBy        string          `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
