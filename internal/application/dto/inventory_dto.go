package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveRequest body para POST /api/stock/receive.
type ReceiveRequest struct {
	ProductID   string           `json:"product_id" validate:"required"`
	WarehouseID string           `json:"warehouse_id" validate:"required"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	Reference   string           `json:"reference" validate:"omitempty,max=200"`
	Note        string           `json:"note" validate:"omitempty,max=1000"`
}

// DeliverRequest body para POST /api/stock/deliver.
type DeliverRequest struct {
	ProductID   string          `json:"product_id" validate:"required"`
	WarehouseID string          `json:"warehouse_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reference   string          `json:"reference" validate:"omitempty,max=200"`
	Note        string          `json:"note" validate:"omitempty,max=1000"`
}

// TransferRequest body para POST /api/stock/transfer.
type TransferRequest struct {
	ProductID       string          `json:"product_id" validate:"required"`
	FromWarehouseID string          `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string          `json:"to_warehouse_id" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	Reference       string          `json:"reference" validate:"omitempty,max=200"`
	Note            string          `json:"note" validate:"omitempty,max=1000"`
}

// AdjustRequest body para POST /api/stock/adjust. CountedQuantity es el conteo físico.
type AdjustRequest struct {
	ProductID       string          `json:"product_id" validate:"required"`
	WarehouseID     string          `json:"warehouse_id" validate:"required"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
	Reference       string          `json:"reference" validate:"omitempty,max=200"`
	Note            string          `json:"note" validate:"omitempty,max=1000"`
}

// StockLineResponse cantidad de un producto en una bodega.
type StockLineResponse struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	ProductSKU    string          `json:"product_sku,omitempty"`
	WarehouseID   string          `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name,omitempty"`
	WarehouseCode string          `json:"warehouse_code,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Version       int64           `json:"version"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockListResponse listado de líneas de stock.
type StockListResponse struct {
	Items []StockLineResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}

// ProductStockResponse proyección del producto junto a su desglose por bodega.
type ProductStockResponse struct {
	Product ProductResponse     `json:"product"`
	Lines   []StockLineResponse `json:"lines"`
}

// LedgerEntryResponse un asiento del libro de inventario.
type LedgerEntryResponse struct {
	ID                     string          `json:"id"`
	Seq                    int64           `json:"seq"`
	TransactionID          string          `json:"transaction_id"`
	LinkedEntryID          string          `json:"linked_entry_id,omitempty"`
	Type                   string          `json:"type"`
	Reference              string          `json:"reference"`
	ProductID              string          `json:"product_id"`
	WarehouseID            string          `json:"warehouse_id"`
	CounterpartWarehouseID string          `json:"counterpart_warehouse_id,omitempty"`
	QuantityDelta          decimal.Decimal `json:"quantity_delta"`
	PreviousQuantity       decimal.Decimal `json:"previous_quantity"`
	NewQuantity            decimal.Decimal `json:"new_quantity"`
	ActorID                string          `json:"actor_id,omitempty"`
	Note                   string          `json:"note,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

// MutationResponse resultado de una mutación de stock.
type MutationResponse struct {
	TransactionID string                `json:"transaction_id,omitempty"`
	Changed       bool                  `json:"changed"`
	Entries       []LedgerEntryResponse `json:"entries"`
	Lines         []StockLineResponse   `json:"lines"`
	Product       *ProductResponse      `json:"product,omitempty"`
}

// MoveListRequest filtros de GET /api/moves.
type MoveListRequest struct {
	Type        string `query:"type" validate:"omitempty,oneof=RECEIPT DELIVERY TRANSFER ADJUSTMENT"`
	ProductID   string `query:"product_id"`
	WarehouseID string `query:"warehouse_id"`
	Search      string `query:"search"`
	From        string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	PageRequest
}

// MoveListResponse historial de movimientos.
type MoveListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// MoveStatsResponse conteos del historial.
type MoveStatsResponse struct {
	Total  int64                 `json:"total"`
	ByType map[string]int64      `json:"by_type"`
	Recent []LedgerEntryResponse `json:"recent"`
}

// ReplenishmentSuggestionDTO representa una sugerencia de reposición para un producto
// que se encuentra por debajo de su nivel de reorden.
type ReplenishmentSuggestionDTO struct {
	ProductID          string          `json:"product_id"`
	SKU                string          `json:"sku,omitempty"`
	ProductName        string          `json:"product_name"`
	CurrentStock       decimal.Decimal `json:"current_stock"`
	ReorderLevel       decimal.Decimal `json:"reorder_level"`
	IdealStock         decimal.Decimal `json:"ideal_stock"`
	SuggestedOrderQty  decimal.Decimal `json:"suggested_order_qty"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"`
	DeliveredLast90d   decimal.Decimal `json:"delivered_last_90d"`
	Priority           int             `json:"priority"`
}
