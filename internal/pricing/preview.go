// Package pricing holds the only client-side money arithmetic in the
// service: transient previews shown while a cart mutation is in flight.
// Previews are estimates, never authoritative; every server response
// replaces them.
package pricing

import "github.com/shopspring/decimal"

// Totals mirrors the cart totals block. Amounts are integer VND.
type Totals struct {
	Subtotal       int64
	DiscountAmount int64
	ShippingFee    int64
	TotalAmount    int64
}

// EstimateAdd previews totals after adding quantity units at unitPrice.
// The discount and shipping figures are carried over untouched; the server
// recomputes both on confirmation.
func EstimateAdd(t Totals, unitPrice int64, quantity int) Totals {
	delta := decimal.NewFromInt(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
	return recompute(t, delta)
}

// EstimateLineChange previews totals after a line moves from its current
// total to unitPrice*newQuantity.
func EstimateLineChange(t Totals, oldLineTotal, unitPrice int64, newQuantity int) Totals {
	newTotal := decimal.NewFromInt(unitPrice).Mul(decimal.NewFromInt(int64(newQuantity)))
	delta := newTotal.Sub(decimal.NewFromInt(oldLineTotal))
	return recompute(t, delta)
}

// EstimateRemove previews totals after a line leaves the cart.
func EstimateRemove(t Totals, lineTotal int64) Totals {
	return recompute(t, decimal.NewFromInt(lineTotal).Neg())
}

func recompute(t Totals, subtotalDelta decimal.Decimal) Totals {
	zero := decimal.Zero

	subtotal := decimal.NewFromInt(t.Subtotal).Add(subtotalDelta)
	if subtotal.LessThan(zero) {
		subtotal = zero
	}

	discount := decimal.NewFromInt(t.DiscountAmount)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	total := subtotal.Sub(discount).Add(decimal.NewFromInt(t.ShippingFee))
	if total.LessThan(zero) {
		total = zero
	}

	return Totals{
		Subtotal:       subtotal.IntPart(),
		DiscountAmount: discount.IntPart(),
		ShippingFee:    t.ShippingFee,
		TotalAmount:    total.IntPart(),
	}
}
