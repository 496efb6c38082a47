package cart_test

import (
	"testing"

	"storefront-api/internal/cart"

	"github.com/stretchr/testify/assert"
)

func snapWith(items []cart.Line, subtotal int64) cart.Snapshot {
	return cart.Snapshot{
		Loaded: true,
		Cart:   cart.Cart{Items: items, Subtotal: subtotal},
	}
}

func TestItemCount(t *testing.T) {
	t.Run("empty_cart", func(t *testing.T) {
		assert.Zero(t, cart.ItemCount(snapWith(nil, 0)))
	})

	t.Run("counts_distinct_lines_not_quantities", func(t *testing.T) {
		snap := snapWith([]cart.Line{
			{ID: 1, Quantity: 5},
			{ID: 2, Quantity: 3},
		}, 0)
		assert.Equal(t, 2, cart.ItemCount(snap))
		assert.Equal(t, 8, cart.TotalQuantity(snap))
	})
}

func TestFreeShippingProgress(t *testing.T) {
	tests := []struct {
		name      string
		subtotal  int64
		threshold int64
		want      int
	}{
		{"empty", 0, 500_000, 0},
		{"halfway", 250_000, 500_000, 50},
		{"rounds_nearest", 333_333, 500_000, 67},
		{"at_threshold", 500_000, 500_000, 100},
		{"capped_at_100", 900_000, 500_000, 100},
		{"zero_threshold", 100_000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapWith(nil, tt.subtotal)
			assert.Equal(t, tt.want, cart.FreeShippingProgress(snap, tt.threshold))
		})
	}
}

func TestLineLookups(t *testing.T) {
	variant := int64(100)
	snap := snapWith([]cart.Line{
		{ID: 1, ProductID: 10, Quantity: 2},
		{ID: 2, ProductID: 10, VariantID: &variant, Quantity: 3},
	}, 0)

	t.Run("base_product_matches_nil_variant_only", func(t *testing.T) {
		line, ok := cart.LineOf(snap, 10, nil)
		assert.True(t, ok)
		assert.Equal(t, int64(1), line.ID)
	})

	t.Run("variant_must_match_exactly", func(t *testing.T) {
		assert.Equal(t, 3, cart.QuantityOf(snap, 10, &variant))

		other := int64(999)
		assert.Zero(t, cart.QuantityOf(snap, 10, &other))
	})

	t.Run("contains", func(t *testing.T) {
		assert.True(t, cart.Contains(snap, 10, nil))
		assert.False(t, cart.Contains(snap, 11, nil))
	})
}

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "0 ₫", cart.FormatVND(0))
	assert.Equal(t, "999 ₫", cart.FormatVND(999))
	assert.Equal(t, "1.000 ₫", cart.FormatVND(1000))
	assert.Equal(t, "1.250.000 ₫", cart.FormatVND(1_250_000))
	assert.Equal(t, "-45.000 ₫", cart.FormatVND(-45_000))
}
