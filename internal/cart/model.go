package cart

// Monetary amounts are integer VND, rounded server-side. The client never
// recomputes authoritative totals; see internal/pricing for the only place
// estimates happen.

// Line is one purchasable entry in the cart. Identity is the server-assigned
// cart-item id, distinct from the product id. VariantID is nil for
// base-product lines.
type Line struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	VariantID      *int64 `json:"variant_id,omitempty"`
	Name           string `json:"name,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int    `json:"quantity"`
	StockQuantity  int    `json:"stock_quantity"`
	UnitPrice      int64  `json:"unit_price"`
	TotalPrice     int64  `json:"total_price"`
	DiscountAmount int64  `json:"discount_amount"`
}

// Cart is one user's active cart as last confirmed by the upstream API.
// Item order is display order only.
type Cart struct {
	ID                int64   `json:"id"`
	Items             []Line  `json:"items"`
	Subtotal          int64   `json:"subtotal"`
	DiscountAmount    int64   `json:"discount_amount"`
	ShippingFee       int64   `json:"shipping_fee"`
	TotalAmount       int64   `json:"total_amount"`
	DiscountCode      *string `json:"discount_code,omitempty"`
	Note              string  `json:"note,omitempty"`
	ShippingAddressID *int64  `json:"shipping_address_id,omitempty"`
}

// Totals is the slice of cart state returned by line-level mutations.
type Totals struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	ShippingFee    int64 `json:"shipping_fee"`
	TotalAmount    int64 `json:"total_amount"`
}

// AddLineResult is the add-line response: the cart id, the echoed line and
// the recomputed totals.
type AddLineResult struct {
	CartID    int64  `json:"cart_id"`
	Item      Line   `json:"item"`
	CartTotal Totals `json:"cart_total"`
}

// ShippingInfo updates the cart's shipping reference and order note.
type ShippingInfo struct {
	ShippingAddressID int64  `json:"shipping_address_id"`
	Note              string `json:"note,omitempty"`
}

// ProductInfo is the product data AddItem needs for its preconditions.
// StockQuantity and UnitPrice must already be resolved to the chosen
// variant when a variant is being added.
type ProductInfo struct {
	ID            int64
	Name          string
	HasVariant    bool
	StockQuantity int
	UnitPrice     int64
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Snapshot is a deep copy of store state, safe to read after the store moves
// on. Preview is a client-side estimate of totals for the in-flight mutation;
// it is discarded the moment a server response lands.
type Snapshot struct {
	UserID  string
	Loaded  bool
	Cart    Cart
	Status  Status
	Err     error
	Preview *Totals
}

func cloneCart(c Cart) Cart {
	out := c
	if c.Items != nil {
		out.Items = make([]Line, len(c.Items))
		copy(out.Items, c.Items)
		for i := range out.Items {
			if v := c.Items[i].VariantID; v != nil {
				vv := *v
				out.Items[i].VariantID = &vv
			}
		}
	}
	if c.DiscountCode != nil {
		code := *c.DiscountCode
		out.DiscountCode = &code
	}
	if c.ShippingAddressID != nil {
		id := *c.ShippingAddressID
		out.ShippingAddressID = &id
	}
	return out
}
