package cart

import "strconv"

// Pure read-only derivations over a Snapshot. Nothing here mutates state or
// gates checkout; these feed badges, summaries and progress bars.

// ItemCount is the number of distinct lines in the cart. Summed quantities
// are available separately as TotalQuantity.
func ItemCount(snap Snapshot) int {
	return len(snap.Cart.Items)
}

// TotalQuantity sums the quantities across all lines.
func TotalQuantity(snap Snapshot) int {
	total := 0
	for _, line := range snap.Cart.Items {
		total += line.Quantity
	}
	return total
}

// FreeShippingProgress is min(100, round(subtotal/threshold*100)). Display
// affordance only.
func FreeShippingProgress(snap Snapshot, threshold int64) int {
	if threshold <= 0 {
		return 0
	}
	progress := (snap.Cart.Subtotal*100 + threshold/2) / threshold
	if progress > 100 {
		return 100
	}
	if progress < 0 {
		return 0
	}
	return int(progress)
}

// LineOf finds the line for (productID, variantID). A nil variant matches
// only lines without one; a concrete variant must match exactly.
func LineOf(snap Snapshot, productID int64, variantID *int64) (Line, bool) {
	if idx := lineIndex(snap.Cart.Items, productID, variantID); idx >= 0 {
		return snap.Cart.Items[idx], true
	}
	return Line{}, false
}

// QuantityOf reports the quantity of (productID, variantID) currently in the
// cart, zero when absent.
func QuantityOf(snap Snapshot, productID int64, variantID *int64) int {
	if line, ok := LineOf(snap, productID, variantID); ok {
		return line.Quantity
	}
	return 0
}

// Contains reports whether (productID, variantID) is in the cart.
func Contains(snap Snapshot, productID int64, variantID *int64) bool {
	return QuantityOf(snap, productID, variantID) > 0
}

// FormatVND renders an integer VND amount with dot separators, the way the
// storefront displays prices (e.g. 1250000 -> "1.250.000 ₫").
func FormatVND(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}

	formatted := string(out) + " ₫"
	if negative {
		return "-" + formatted
	}
	return formatted
}
