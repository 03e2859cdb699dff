package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost recalcula el costo unitario tras una entrada valorizada.
// costo = ((existente * costoActual) + (entrada * costoEntrada)) / (existente + entrada)
func WeightedAverageCost(onHand, currentCost, received, receivedCost decimal.Decimal) decimal.Decimal {
	sum := onHand.Add(received)
	if sum.LessThanOrEqual(decimal.Zero) {
		return receivedCost
	}
	num := onHand.Mul(currentCost).Add(received.Mul(receivedCost))
	return num.Div(sum).Round(QuantityScale)
}
