package calculator

import "github.com/shopspring/decimal"

// RoundCents rounds a monetary amount to 2 decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// AddRate credits one click worth rate to balance.
func AddRate(balance decimal.Decimal, rate float64) decimal.Decimal {
	return RoundCents(balance.Add(decimal.NewFromFloat(rate)))
}
