package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Suggestion sugerencia de reposición para un producto bajo su nivel de reorden.
type Suggestion struct {
	Product            *entity.Product
	IdealStock         decimal.Decimal // ReorderLevel * 1.5
	SuggestedOrderQty  decimal.Decimal // IdealStock - OnHand
	EstimatedOrderCost decimal.Decimal // SuggestedOrderQty * CostPerUnit
	DeliveredLast90d   decimal.Decimal // salidas recientes, para priorizar
	Priority           int             // 1 = más urgente
}

// ReplenishmentUseCase genera la lista de reposición a partir de la proyección de stock
// y de las salidas registradas en el libro.
type ReplenishmentUseCase struct {
	productRepo repository.ProductRepository
	ledgerRepo  repository.LedgerRepository
	now         func() time.Time
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(productRepo repository.ProductRepository, ledgerRepo repository.LedgerRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{productRepo: productRepo, ledgerRepo: ledgerRepo, now: time.Now}
}

var idealFactor = decimal.NewFromFloat(1.5)

// GenerateReplenishmentList devuelve los productos con OnHand < ReorderLevel, ordenados por
// volumen de salidas de los últimos 90 días y luego por déficit.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context) ([]Suggestion, error) {
	products, err := uc.productRepo.ListBelowReorderLevel(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []Suggestion{}, nil
	}

	since := uc.now().AddDate(0, 0, -90)
	suggestions := make([]Suggestion, 0, len(products))
	for _, p := range products {
		ideal := p.ReorderLevel.Mul(idealFactor)
		qty := ideal.Sub(p.OnHand)
		if qty.IsNegative() {
			qty = decimal.Zero
		}

		delivered, err := uc.ledgerRepo.SumMoved(ctx, repository.LedgerFilter{
			Type:      entity.EntryTypeDelivery,
			ProductID: p.ID,
			From:      &since,
		})
		if err != nil {
			return nil, err
		}

		suggestions = append(suggestions, Suggestion{
			Product:            p,
			IdealStock:         ideal,
			SuggestedOrderQty:  qty,
			EstimatedOrderCost: qty.Mul(p.CostPerUnit),
			DeliveredLast90d:   delivered,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !a.DeliveredLast90d.Equal(b.DeliveredLast90d) {
			return a.DeliveredLast90d.GreaterThan(b.DeliveredLast90d)
		}
		defA := a.Product.ReorderLevel.Sub(a.Product.OnHand)
		defB := b.Product.ReorderLevel.Sub(b.Product.OnHand)
		return defA.GreaterThan(defB)
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
