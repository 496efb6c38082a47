package pricing_test

import (
	"testing"

	"storefront-api/internal/pricing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateAdd(t *testing.T) {
	base := pricing.Totals{Subtotal: 10000, ShippingFee: 3000, TotalAmount: 13000}

	got := pricing.EstimateAdd(base, 500, 4)
	assert.Equal(t, pricing.Totals{Subtotal: 12000, ShippingFee: 3000, TotalAmount: 15000}, got)
}

func TestEstimateLineChange(t *testing.T) {
	base := pricing.Totals{Subtotal: 10000, TotalAmount: 10000}

	t.Run("increase", func(t *testing.T) {
		// line was 2000, becomes 1000*4
		got := pricing.EstimateLineChange(base, 2000, 1000, 4)
		assert.Equal(t, int64(12000), got.Subtotal)
		assert.Equal(t, int64(12000), got.TotalAmount)
	})

	t.Run("decrease", func(t *testing.T) {
		got := pricing.EstimateLineChange(base, 2000, 1000, 1)
		assert.Equal(t, int64(9000), got.Subtotal)
	})
}

func TestEstimateRemove(t *testing.T) {
	base := pricing.Totals{Subtotal: 10000, DiscountAmount: 1000, ShippingFee: 3000, TotalAmount: 12000}

	got := pricing.EstimateRemove(base, 4000)
	assert.Equal(t, int64(6000), got.Subtotal)
	assert.Equal(t, int64(1000), got.DiscountAmount)
	assert.Equal(t, int64(8000), got.TotalAmount)
}

func TestEstimateFloorsAtZero(t *testing.T) {
	base := pricing.Totals{Subtotal: 3000, DiscountAmount: 2500, TotalAmount: 500}

	t.Run("subtotal_never_negative", func(t *testing.T) {
		got := pricing.EstimateRemove(base, 5000)
		assert.Zero(t, got.Subtotal)
		assert.Zero(t, got.TotalAmount)
	})

	t.Run("discount_capped_at_subtotal", func(t *testing.T) {
		got := pricing.EstimateRemove(base, 1000)
		assert.Equal(t, int64(2000), got.Subtotal)
		assert.Equal(t, int64(2000), got.DiscountAmount)
		assert.Zero(t, got.TotalAmount)
	})
}
