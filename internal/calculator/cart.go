package calculator

import (
	"fmt"

	"github.com/samber/lo"

	"WeEarn/internal/model"
)

// TaxPercent is the sales tax applied on the cart subtotal.
const TaxPercent = 6

// Totals sums precomputed line prices and adds floored tax.
func Totals(lines []int) model.CartTotals {
	subtotal := lo.Sum(lines)
	tax := subtotal * TaxPercent / 100
	return model.CartTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// CartTotals prices every item and returns subtotal, tax and total.
func CartTotals(items []model.CartItem) (model.CartTotals, error) {
	lines := make([]int, 0, len(items))
	for _, item := range items {
		p, err := LinePrice(item)
		if err != nil {
			return model.CartTotals{}, fmt.Errorf("item %s: %w", item.ID, err)
		}
		lines = append(lines, p)
	}
	return Totals(lines), nil
}
