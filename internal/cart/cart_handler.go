package cart

import (
	"net/http"
	"strconv"

	"storefront-api/internal/events"
	"storefront-api/internal/pkg/apperror"
	"storefront-api/internal/pkg/response"
	"storefront-api/internal/product"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	stores    *Registry
	products  product.Client
	emitter   events.Emitter
	threshold int64
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewHandler(stores *Registry, products product.Client, emitter events.Emitter, freeShippingThreshold int64, logger *zap.Logger) *Handler {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	l := zap.L().Named("cart.handler")
	if logger != nil {
		l = logger.Named("cart.handler")
	}
	return &Handler{
		stores:    stores,
		products:  products,
		emitter:   emitter,
		threshold: freeShippingThreshold,
		validate:  validator.New(),
		logger:    l,
	}
}

func (h *Handler) storeFor(c *gin.Context) (*Store, string, bool) {
	userID := c.GetString("user_id_validated")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "User not authenticated", nil)
		return nil, "", false
	}
	return h.stores.For(userID), userID, true
}

// ensureLoaded lazily fetches the cart the first time a user's store is
// touched.
func (h *Handler) ensureLoaded(c *gin.Context, st *Store) bool {
	if st.Snapshot().Loaded {
		return true
	}
	if err := st.Load(c.Request.Context()); err != nil {
		h.writeServiceError(c, err)
		return false
	}
	return true
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
}

// Detail renders the full cart with projections.
// GET /cart
func (h *Handler) Detail(c *gin.Context) {
	st, _, ok := h.storeFor(c)
	if !ok {
		return
	}
	if !h.ensureLoaded(c, st) {
		return
	}

	response.Success(c, http.StatusOK, "", toCartResponse(st.Snapshot(), h.threshold))
}

// Count renders the badge numbers.
// GET /cart/count
func (h *Handler) Count(c *gin.Context) {
	st, _, ok := h.storeFor(c)
	if !ok {
		return
	}
	if !h.ensureLoaded(c, st) {
		return
	}

	snap := st.Snapshot()
	response.Success(c, http.StatusOK, "", CartCountResponse{
		Count:         ItemCount(snap),
		TotalQuantity: TotalQuantity(snap),
	})
}

// Lookup reports whether a product (or variant) is already in the cart.
// GET /cart/lookup?product_id=&variant_id=
func (h *Handler) Lookup(c *gin.Context) {
	st, _, ok := h.storeFor(c)
	if !ok {
		return
	}
	if !h.ensureLoaded(c, st) {
		return
	}

	productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid product id", nil)
		return
	}

	var variantID *int64
	if raw := c.Query("variant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid variant id", nil)
			return
		}
		variantID = &id
	}

	snap := st.Snapshot()
	qty := QuantityOf(snap, productID, variantID)
	response.Success(c, http.StatusOK, "", LookupResponse{InCart: qty > 0, Quantity: qty})
}

// AddItem adds a product to the cart.
// POST /cart/items
func (h *Handler) AddItem(c *gin.Context) {
	st, userID, ok := h.storeFor(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	if !h.ensureLoaded(c, st) {
		return
	}

	info, err := h.products.Get(c.Request.Context(), req.ProductID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	stock, price, err := product.Resolve(info, req.VariantID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	err = st.AddItem(c.Request.Context(), ProductInfo{
		ID:            info.ID,
		Name:          info.Name,
		HasVariant:    info.HasVariant,
		StockQuantity: stock,
		UnitPrice:     price,
	}, req.Quantity, req.VariantID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	snap := st.Snapshot()
	ev := events.NewCartEvent(events.TypeItemAdded, userID)
	ev.CartID = snap.Cart.ID
	ev.ProductID = req.ProductID
	ev.VariantID = req.VariantID
	ev.Quantity = req.Quantity
	h.emitter.Emit(ev)

	response.Success(c, http.StatusCreated, "Item added to cart", toCartResponse(snap, h.threshold))
}

// UpdateQty sets a line's quantity; zero and below remove the line.
// PATCH /cart/items/:itemId
func (h *Handler) UpdateQty(c *gin.Context) {
	st, userID, ok := h.storeFor(c)
	if !ok {
		return
	}

	lineID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil || lineID <= 0 {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid cart item id", nil)
		return
	}

	var req UpdateQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	if !h.ensureLoaded(c, st) {
		return
	}

	if err := st.UpdateItemQuantity(c.Request.Context(), lineID, req.Quantity); err != nil {
		h.writeServiceError(c, err)
		return
	}

	snap := st.Snapshot()
	eventType := events.TypeItemUpdated
	if req.Quantity <= 0 {
		eventType = events.TypeItemRemoved
	}
	ev := events.NewCartEvent(eventType, userID)
	ev.CartID = snap.Cart.ID
	ev.LineID = lineID
	ev.Quantity = req.Quantity
	h.emitter.Emit(ev)

	message := "Cart updated"
	if req.Quantity <= 0 {
		message = "Item removed from cart"
	}
	response.Success(c, http.StatusOK, message, toCartResponse(snap, h.threshold))
}

// RemoveItem deletes a line.
// DELETE /cart/items/:itemId
func (h *Handler) RemoveItem(c *gin.Context) {
	st, userID, ok := h.storeFor(c)
	if !ok {
		return
	}

	lineID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil || lineID <= 0 {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid cart item id", nil)
		return
	}

	if !h.ensureLoaded(c, st) {
		return
	}

	if err := st.RemoveItem(c.Request.Context(), lineID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	snap := st.Snapshot()
	ev := events.NewCartEvent(events.TypeItemRemoved, userID)
	ev.CartID = snap.Cart.ID
	ev.LineID = lineID
	h.emitter.Emit(ev)

	response.Success(c, http.StatusOK, "Item removed from cart", toCartResponse(snap, h.threshold))
}

// Clear empties the cart.
// DELETE /cart
func (h *Handler) Clear(c *gin.Context) {
	st, userID, ok := h.storeFor(c)
	if !ok {
		return
	}

	if err := st.Clear(c.Request.Context()); err != nil {
		h.writeServiceError(c, err)
		return
	}

	snap := st.Snapshot()
	ev := events.NewCartEvent(events.TypeCleared, userID)
	ev.CartID = snap.Cart.ID
	h.emitter.Emit(ev)

	response.Success(c, http.StatusOK, "Cart cleared", toCartResponse(snap, h.threshold))
}

// ApplyDiscount applies a code; an already-active code is replaced.
// POST /cart/discount
func (h *Handler) ApplyDiscount(c *gin.Context) {
	st, userID, ok := h.storeFor(c)
	if !ok {
		return
	}

	var req ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Discount code is required", err.Error())
		return
	}

	if !h.ensureLoaded(c, st) {
		return
	}

	if err := st.ApplyDiscount(c.Request.Context(), req.DiscountCode); err != nil {
		h.writeServiceError(c, err)
		return
	}

	snap := st.Snapshot()
	ev := events.NewCartEvent(events.TypeDiscountApplied, userID)
	ev.CartID = snap.Cart.ID
	ev.Code = req.DiscountCode
	h.emitter.Emit(ev)

	response.Success(c, http.StatusOK, "Discount applied successfully", toCartResponse(snap, h.threshold))
}

// RemoveDiscount removes the active code.
// DELETE /cart/discount
func (h *Handler) RemoveDiscount(c *gin.Context) {
	st, userID, ok := h.storeFor(c)
	if !ok {
		return
	}

	if err := st.RemoveDiscount(c.Request.Context()); err != nil {
		h.writeServiceError(c, err)
		return
	}

	snap := st.Snapshot()
	ev := events.NewCartEvent(events.TypeDiscountRemoved, userID)
	ev.CartID = snap.Cart.ID
	h.emitter.Emit(ev)

	response.Success(c, http.StatusOK, "Discount removed", toCartResponse(snap, h.threshold))
}

// UpdateShipping sets the shipping address reference and order note.
// PUT /cart/shipping
func (h *Handler) UpdateShipping(c *gin.Context) {
	st, _, ok := h.storeFor(c)
	if !ok {
		return
	}

	var req UpdateShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	if !h.ensureLoaded(c, st) {
		return
	}

	err := st.UpdateShipping(c.Request.Context(), ShippingInfo{
		ShippingAddressID: req.ShippingAddressID,
		Note:              req.Note,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Shipping info updated", toCartResponse(st.Snapshot(), h.threshold))
}

// EndSession drops the user's store. The frontend calls this on logout; the
// next authenticated touch starts from a fresh fetch.
// DELETE /cart/session
func (h *Handler) EndSession(c *gin.Context) {
	userID := c.GetString("user_id_validated")
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "User not authenticated", nil)
		return
	}

	h.stores.Remove(userID)
	response.Success(c, http.StatusOK, "", nil)
}
