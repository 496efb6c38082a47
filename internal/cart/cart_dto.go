package cart

type AddItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQtyRequest carries the target quantity. Zero and below mean removal,
// so no minimum here.
type UpdateQtyRequest struct {
	Quantity int `json:"quantity"`
}

type ApplyDiscountRequest struct {
	DiscountCode string `json:"discount_code" validate:"required"`
}

type UpdateShippingRequest struct {
	ShippingAddressID int64  `json:"shipping_address_id" validate:"required,gt=0"`
	Note              string `json:"note,omitempty"`
}

type CartResponse struct {
	ID                   int64   `json:"id"`
	Items                []Line  `json:"items"`
	ItemCount            int     `json:"item_count"`
	TotalQuantity        int     `json:"total_quantity"`
	Subtotal             int64   `json:"subtotal"`
	DiscountAmount       int64   `json:"discount_amount"`
	ShippingFee          int64   `json:"shipping_fee"`
	TotalAmount          int64   `json:"total_amount"`
	DiscountCode         *string `json:"discount_code,omitempty"`
	Note                 string  `json:"note,omitempty"`
	ShippingAddressID    *int64  `json:"shipping_address_id,omitempty"`
	FreeShippingProgress int     `json:"free_shipping_progress"`
	Status               string  `json:"status"`
	Preview              *Totals `json:"preview,omitempty"`
}

type CartCountResponse struct {
	Count         int `json:"count"`
	TotalQuantity int `json:"total_quantity"`
}

type LookupResponse struct {
	InCart   bool `json:"in_cart"`
	Quantity int  `json:"quantity"`
}

func toCartResponse(snap Snapshot, threshold int64) CartResponse {
	items := snap.Cart.Items
	if items == nil {
		items = []Line{}
	}
	return CartResponse{
		ID:                   snap.Cart.ID,
		Items:                items,
		ItemCount:            ItemCount(snap),
		TotalQuantity:        TotalQuantity(snap),
		Subtotal:             snap.Cart.Subtotal,
		DiscountAmount:       snap.Cart.DiscountAmount,
		ShippingFee:          snap.Cart.ShippingFee,
		TotalAmount:          snap.Cart.TotalAmount,
		DiscountCode:         snap.Cart.DiscountCode,
		Note:                 snap.Cart.Note,
		ShippingAddressID:    snap.Cart.ShippingAddressID,
		FreeShippingProgress: FreeShippingProgress(snap, threshold),
		Status:               string(snap.Status),
		Preview:              snap.Preview,
	}
}
