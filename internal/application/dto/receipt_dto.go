package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptItemRequest línea de una recepción.
type ReceiptItemRequest struct {
	ProductID        string           `json:"product_id" validate:"required"`
	QuantityExpected decimal.Decimal  `json:"quantity_expected"`
	QuantityReceived *decimal.Decimal `json:"quantity_received,omitempty"`
}

// CreateReceiptRequest body para POST /api/receipts.
type CreateReceiptRequest struct {
	Supplier     string               `json:"supplier" validate:"required,min=1,max=200"`
	FromLocation string               `json:"from_location" validate:"omitempty,max=200"`
	ToLocationID string               `json:"to_location_id" validate:"required"`
	ScheduleDate *time.Time           `json:"schedule_date"`
	Responsible  string               `json:"responsible" validate:"omitempty,max=200"`
	Note         string               `json:"note" validate:"omitempty,max=1000"`
	Status       string               `json:"status" validate:"omitempty,oneof=DRAFT READY"`
	Items        []ReceiptItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateReceiptRequest body para PUT /api/receipts/:id. Items ausente conserva las líneas.
type UpdateReceiptRequest struct {
	Supplier     *string              `json:"supplier" validate:"omitempty,min=1,max=200"`
	FromLocation *string              `json:"from_location" validate:"omitempty,max=200"`
	ToLocationID *string              `json:"to_location_id" validate:"omitempty,min=1"`
	ScheduleDate *time.Time           `json:"schedule_date"`
	Responsible  *string              `json:"responsible" validate:"omitempty,max=200"`
	Note         *string              `json:"note" validate:"omitempty,max=1000"`
	Status       *string              `json:"status" validate:"omitempty,oneof=DRAFT WAITING READY CANCELLED"`
	Items        []ReceiptItemRequest `json:"items" validate:"omitempty,dive"`
}

// ReceiptListRequest filtros de GET /api/receipts.
type ReceiptListRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=DRAFT WAITING READY DONE CANCELLED"`
	Search string `query:"search"`
	PageRequest
}

// ReceiptItemResponse línea de una recepción.
type ReceiptItemResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	QuantityExpected decimal.Decimal `json:"quantity_expected"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
}

// ReceiptResponse salida de una recepción.
type ReceiptResponse struct {
	ID           string                `json:"id"`
	Reference    string                `json:"reference"`
	Supplier     string                `json:"supplier"`
	FromLocation string                `json:"from_location"`
	ToLocationID string                `json:"to_location_id"`
	ScheduleDate time.Time             `json:"schedule_date"`
	Responsible  string                `json:"responsible,omitempty"`
	Note         string                `json:"note,omitempty"`
	Status       string                `json:"status"`
	Items        []ReceiptItemResponse `json:"items"`
	CreatedBy    string                `json:"created_by,omitempty"`
	ValidatedBy  string                `json:"validated_by,omitempty"`
	ValidatedAt  *time.Time            `json:"validated_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ReceiptListResponse lista paginada de recepciones.
type ReceiptListResponse struct {
	Items []ReceiptResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ReceiptStatsResponse contadores del tablero de recepciones.
type ReceiptStatsResponse struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Done      int64 `json:"done"`
	Late      int64 `json:"late"`
	Cancelled int64 `json:"cancelled"`
}
