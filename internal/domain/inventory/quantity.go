package inventory

import (
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// QuantityScale es la cantidad máxima de decimales admitida (NUMERIC(18,4)).
const QuantityScale = 4

var maxQuantity = decimal.New(1, 14)

// checkScale rechaza cantidades con más precisión o magnitud de la que se puede persistir.
func checkScale(op string, q decimal.Decimal) error {
	if !q.Equal(q.Truncate(QuantityScale)) {
		return domain.InvalidQuantity(op, "máximo 4 decimales")
	}
	if q.Abs().GreaterThanOrEqual(maxQuantity) {
		return domain.InvalidQuantity(op, "cantidad fuera de rango")
	}
	return nil
}

// CheckStored valida un saldo resultante (línea de stock o total del producto) contra el
// rango de la columna, antes de escribirlo.
func CheckStored(op string, q decimal.Decimal) error {
	if q.Abs().GreaterThanOrEqual(maxQuantity) {
		return domain.InvalidQuantity(op, "el saldo resultante excede el máximo almacenable")
	}
	return nil
}

// RequirePositive valida una cantidad que debe ser estrictamente mayor que cero.
func RequirePositive(op string, q decimal.Decimal) error {
	if !q.IsPositive() {
		return domain.InvalidQuantity(op, "la cantidad debe ser mayor que cero")
	}
	return checkScale(op, q)
}

// RequireNonNegative valida una cantidad contada, que puede ser cero.
func RequireNonNegative(op string, q decimal.Decimal) error {
	if q.IsNegative() {
		return domain.InvalidQuantity(op, "la cantidad no puede ser negativa")
	}
	return checkScale(op, q)
}

// AdjustDelta es la diferencia entre lo contado y lo registrado.
func AdjustDelta(current, counted decimal.Decimal) decimal.Decimal {
	return counted.Sub(current)
}

// SumQuantities suma las cantidades de un conjunto de líneas.
func SumQuantities(quantities ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, q := range quantities {
		total = total.Add(q)
	}
	return total
}
