package models

import "github.com/shopspring/decimal"

var (
	// TaxRate applies to every order subtotal.
	TaxRate = decimal.RequireFromString("0.08")
	// Orders under FreeShippingThreshold pay FlatShippingCost.
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingCost      = decimal.NewFromInt(10)
)

// OrderTotals are the derived monetary fields of an order, rounded to 2 places.
type OrderTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// ComputeOrderTotals derives tax, shipping and the final total from a pre-tax subtotal.
// The total is rounded once from the unrounded tax so that
// total == round(subtotal*1.08 + shipping, 2).
func ComputeOrderTotals(subtotal decimal.Decimal) OrderTotals {
	tax := subtotal.Mul(TaxRate)
	shipping := decimal.Zero
	if subtotal.LessThan(FreeShippingThreshold) {
		shipping = FlatShippingCost
	}
	return OrderTotals{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Shipping: shipping.Round(2),
		Total:    subtotal.Add(tax).Add(shipping).Round(2),
	}
}
