package http

import (
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func toLedgerEntryResponse(e *entity.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:                     e.ID,
		Seq:                    e.Seq,
		TransactionID:          e.TransactionID,
		LinkedEntryID:          e.LinkedEntryID,
		Type:                   e.Type,
		Reference:              e.Reference,
		ProductID:              e.ProductID,
		WarehouseID:            e.WarehouseID,
		CounterpartWarehouseID: e.CounterpartWarehouseID,
		QuantityDelta:          e.QuantityDelta,
		PreviousQuantity:       e.PreviousQuantity,
		NewQuantity:            e.NewQuantity,
		ActorID:                e.ActorID,
		Note:                   e.Note,
		CreatedAt:              e.CreatedAt,
	}
}

func toLedgerEntryResponses(entries []*entity.LedgerEntry) []dto.LedgerEntryResponse {
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerEntryResponse(e))
	}
	return out
}

func toStockLineResponse(l *entity.StockLine) dto.StockLineResponse {
	return dto.StockLineResponse{
		ProductID:   l.ProductID,
		WarehouseID: l.WarehouseID,
		Quantity:    l.Quantity,
		Version:     l.Version,
		UpdatedAt:   l.UpdatedAt,
	}
}

func toStockLineViews(lines []*entity.StockLineView) []dto.StockLineResponse {
	out := make([]dto.StockLineResponse, 0, len(lines))
	for _, v := range lines {
		r := toStockLineResponse(&v.StockLine)
		r.ProductName = v.ProductName
		r.ProductSKU = v.ProductSKU
		r.WarehouseName = v.WarehouseName
		r.WarehouseCode = v.WarehouseCode
		out = append(out, r)
	}
	return out
}

func toMutationResponse(res *inventory.MutationResult) dto.MutationResponse {
	out := dto.MutationResponse{
		TransactionID: res.TransactionID,
		Changed:       res.Changed,
		Entries:       toLedgerEntryResponses(res.Entries),
		Lines:         make([]dto.StockLineResponse, 0, len(res.Lines)),
	}
	for _, l := range res.Lines {
		out.Lines = append(out.Lines, toStockLineResponse(l))
	}
	if res.Product != nil {
		out.Product = usecase.ToProductResponse(res.Product)
	}
	return out
}

func toReceiptResponse(rc *entity.Receipt) dto.ReceiptResponse {
	out := dto.ReceiptResponse{
		ID:           rc.ID,
		Reference:    rc.Reference,
		Supplier:     rc.Supplier,
		FromLocation: rc.FromLocation,
		ToLocationID: rc.ToLocationID,
		ScheduleDate: rc.ScheduleDate,
		Responsible:  rc.Responsible,
		Note:         rc.Note,
		Status:       rc.Status,
		Items:        make([]dto.ReceiptItemResponse, 0, len(rc.Items)),
		CreatedBy:    rc.CreatedBy,
		ValidatedBy:  rc.ValidatedBy,
		ValidatedAt:  rc.ValidatedAt,
		CreatedAt:    rc.CreatedAt,
		UpdatedAt:    rc.UpdatedAt,
	}
	for _, it := range rc.Items {
		out.Items = append(out.Items, dto.ReceiptItemResponse{
			ID:               it.ID,
			ProductID:        it.ProductID,
			QuantityExpected: it.QuantityExpected,
			QuantityReceived: it.QuantityReceived,
		})
	}
	return out
}

func toReplenishmentDTO(s inventory.Suggestion) dto.ReplenishmentSuggestionDTO {
	return dto.ReplenishmentSuggestionDTO{
		ProductID:          s.Product.ID,
		SKU:                s.Product.SKU,
		ProductName:        s.Product.Name,
		CurrentStock:       s.Product.OnHand,
		ReorderLevel:       s.Product.ReorderLevel,
		IdealStock:         s.IdealStock,
		SuggestedOrderQty:  s.SuggestedOrderQty,
		UnitCost:           s.Product.CostPerUnit,
		EstimatedOrderCost: s.EstimatedOrderCost,
		DeliveredLast90d:   s.DeliveredLast90d,
		Priority:           s.Priority,
	}
}
