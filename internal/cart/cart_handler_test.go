package cart_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-api/internal/cart"
	"storefront-api/internal/events"
	mock "storefront-api/internal/mock/cart"
	"storefront-api/internal/product"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// ==================== FAKES ====================

type fakeProductClient struct {
	GetFn func(ctx context.Context, productID int64) (product.Info, error)
}

func (f *fakeProductClient) Get(ctx context.Context, productID int64) (product.Info, error) {
	return f.GetFn(ctx, productID)
}

type captureEmitter struct {
	mu     sync.Mutex
	events []events.CartEvent
}

func (e *captureEmitter) Emit(ev events.CartEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *captureEmitter) last() (events.CartEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) == 0 {
		return events.CartEvent{}, false
	}
	return e.events[len(e.events)-1], true
}

// ==================== HELPERS ====================

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func authWrapper(userID string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id_validated", userID)
		handler(c)
	}
}

type handlerFixture struct {
	gw      *mock.MockGateway
	emitter *captureEmitter
	handler *cart.Handler
	router  *gin.Engine
}

func newHandlerFixture(t *testing.T, products product.Client) *handlerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	gw := mock.NewMockGateway(ctrl)
	emitter := &captureEmitter{}
	reg := cart.NewRegistry(gw, time.Minute, nil)
	h := cart.NewHandler(reg, products, emitter, 500_000, nil)

	return &handlerFixture{gw: gw, emitter: emitter, handler: h, router: setupTestRouter()}
}

// ==================== TEST CASES ====================

func TestCartHandler_Detail(t *testing.T) {
	t.Run("success_lazy_loads", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{
			ID:          7,
			Items:       []cart.Line{{ID: 20, ProductID: 1, Quantity: 2, UnitPrice: 5000, TotalPrice: 10000}},
			Subtotal:    10000,
			TotalAmount: 10000,
		}, nil)

		f.router.GET("/cart", authWrapper("user-1", f.handler.Detail))

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"item_count":1`)
		assert.Contains(t, w.Body.String(), `"total_quantity":2`)
		assert.Contains(t, w.Body.String(), `"free_shipping_progress":2`)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.router.GET("/cart", f.handler.Detail)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("second_call_skips_fetch", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{ID: 7}, nil).Times(1)

		f.router.GET("/cart", authWrapper("user-1", f.handler.Detail))

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestCartHandler_Count(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{
		Items: []cart.Line{{ID: 1, Quantity: 2}, {ID: 2, Quantity: 3}},
	}, nil)

	f.router.GET("/cart/count", authWrapper("user-1", f.handler.Count))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/count", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
	assert.Contains(t, w.Body.String(), `"total_quantity":5`)
}

func TestCartHandler_Lookup(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{
		Items: []cart.Line{{ID: 1, ProductID: 10, Quantity: 2}},
	}, nil)

	f.router.GET("/cart/lookup", authWrapper("user-1", f.handler.Lookup))

	t.Run("in_cart", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/lookup?product_id=10", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"in_cart":true`)
		assert.Contains(t, w.Body.String(), `"quantity":2`)
	})

	t.Run("not_in_cart", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/lookup?product_id=99", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"in_cart":false`)
	})

	t.Run("bad_product_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/lookup?product_id=abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCartHandler_AddItem(t *testing.T) {
	products := &fakeProductClient{
		GetFn: func(ctx context.Context, productID int64) (product.Info, error) {
			return product.Info{ID: productID, Name: "Widget", StockQuantity: 10, FinalPrice: 1000}, nil
		},
	}

	t.Run("success_emits_event", func(t *testing.T) {
		f := newHandlerFixture(t, products)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{}, nil)
		f.gw.EXPECT().
			AddLine(gomock.Any(), "user-1", int64(1), nil, 2).
			Return(cart.AddLineResult{
				CartID:    9,
				Item:      cart.Line{ID: 20, ProductID: 1, Quantity: 2, UnitPrice: 1000, TotalPrice: 2000},
				CartTotal: cart.Totals{Subtotal: 2000, TotalAmount: 2000},
			}, nil)

		f.router.POST("/cart/items", authWrapper("user-1", f.handler.AddItem))

		body := `{"product_id":1,"quantity":2}`
		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"total_amount":2000`)

		ev, ok := f.emitter.last()
		assert.True(t, ok)
		assert.Equal(t, events.TypeItemAdded, ev.Type)
		assert.Equal(t, int64(9), ev.CartID)
	})

	t.Run("invalid_body", func(t *testing.T) {
		f := newHandlerFixture(t, products)
		f.router.POST("/cart/items", authWrapper("user-1", f.handler.AddItem))

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":1}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("product_not_found", func(t *testing.T) {
		missing := &fakeProductClient{
			GetFn: func(ctx context.Context, productID int64) (product.Info, error) {
				return product.Info{}, product.ErrProductNotFound
			},
		}
		f := newHandlerFixture(t, missing)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{}, nil)

		f.router.POST("/cart/items", authWrapper("user-1", f.handler.AddItem))

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":1,"quantity":1}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("out_of_stock", func(t *testing.T) {
		soldOut := &fakeProductClient{
			GetFn: func(ctx context.Context, productID int64) (product.Info, error) {
				return product.Info{ID: productID, StockQuantity: 0, FinalPrice: 1000}, nil
			},
		}
		f := newHandlerFixture(t, soldOut)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{}, nil)

		f.router.POST("/cart/items", authWrapper("user-1", f.handler.AddItem))

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":1,"quantity":1}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestCartHandler_UpdateQty(t *testing.T) {
	initial := cart.Cart{
		ID:          9,
		Items:       []cart.Line{{ID: 20, ProductID: 1, Quantity: 2, UnitPrice: 1000, TotalPrice: 2000, StockQuantity: 10}},
		Subtotal:    2000,
		TotalAmount: 2000,
	}

	t.Run("success", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(initial, nil)
		f.gw.EXPECT().
			UpdateLine(gomock.Any(), int64(20), 3).
			Return(cart.Totals{Subtotal: 3000, TotalAmount: 3000}, nil)

		f.router.PATCH("/cart/items/:itemId", authWrapper("user-1", f.handler.UpdateQty))

		req := httptest.NewRequest(http.MethodPatch, "/cart/items/20", strings.NewReader(`{"quantity":3}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		ev, ok := f.emitter.last()
		assert.True(t, ok)
		assert.Equal(t, events.TypeItemUpdated, ev.Type)
	})

	t.Run("zero_quantity_removes", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(initial, nil)
		f.gw.EXPECT().RemoveLine(gomock.Any(), int64(20)).Return(cart.Totals{}, nil)

		f.router.PATCH("/cart/items/:itemId", authWrapper("user-1", f.handler.UpdateQty))

		req := httptest.NewRequest(http.MethodPatch, "/cart/items/20", strings.NewReader(`{"quantity":0}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		ev, ok := f.emitter.last()
		assert.True(t, ok)
		assert.Equal(t, events.TypeItemRemoved, ev.Type)
	})

	t.Run("bad_item_id", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.router.PATCH("/cart/items/:itemId", authWrapper("user-1", f.handler.UpdateQty))

		req := httptest.NewRequest(http.MethodPatch, "/cart/items/abc", strings.NewReader(`{"quantity":3}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCartHandler_RemoveItem(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{
		ID:          9,
		Items:       []cart.Line{{ID: 20, ProductID: 1, Quantity: 2, TotalPrice: 2000}},
		Subtotal:    2000,
		TotalAmount: 2000,
	}, nil)
	f.gw.EXPECT().RemoveLine(gomock.Any(), int64(20)).Return(cart.Totals{}, nil)

	f.router.DELETE("/cart/items/:itemId", authWrapper("user-1", f.handler.RemoveItem))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cart/items/20", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"item_count":0`)
}

func TestCartHandler_Discounts(t *testing.T) {
	code := "SUMMER10"

	t.Run("apply_success", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{ID: 9, Subtotal: 10000, TotalAmount: 10000}, nil)
		f.gw.EXPECT().
			ApplyDiscount(gomock.Any(), "user-1", code).
			Return(cart.Cart{ID: 9, Subtotal: 10000, DiscountAmount: 1000, TotalAmount: 9000, DiscountCode: &code}, nil)

		f.router.POST("/cart/discount", authWrapper("user-1", f.handler.ApplyDiscount))

		req := httptest.NewRequest(http.MethodPost, "/cart/discount", strings.NewReader(`{"discount_code":"SUMMER10"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"discount_code":"SUMMER10"`)

		ev, ok := f.emitter.last()
		assert.True(t, ok)
		assert.Equal(t, events.TypeDiscountApplied, ev.Type)
		assert.Equal(t, code, ev.Code)
	})

	t.Run("apply_missing_code", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.router.POST("/cart/discount", authWrapper("user-1", f.handler.ApplyDiscount))

		req := httptest.NewRequest(http.MethodPost, "/cart/discount", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("apply_invalid_code", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{ID: 9}, nil)
		f.gw.EXPECT().
			ApplyDiscount(gomock.Any(), "user-1", "BOGUS").
			Return(cart.Cart{}, cart.ErrInvalidDiscount)

		f.router.POST("/cart/discount", authWrapper("user-1", f.handler.ApplyDiscount))

		req := httptest.NewRequest(http.MethodPost, "/cart/discount", strings.NewReader(`{"discount_code":"BOGUS"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("remove_success", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{ID: 9, DiscountCode: &code}, nil)
		f.gw.EXPECT().RemoveDiscount(gomock.Any(), "user-1").Return(cart.Cart{ID: 9}, nil)

		f.router.DELETE("/cart/discount", authWrapper("user-1", f.handler.RemoveDiscount))

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cart/discount", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCartHandler_Clear(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.gw.EXPECT().Clear(gomock.Any(), "user-1").Return(cart.Cart{ID: 9}, nil)

	f.router.DELETE("/cart", authWrapper("user-1", f.handler.Clear))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cart", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	ev, ok := f.emitter.last()
	assert.True(t, ok)
	assert.Equal(t, events.TypeCleared, ev.Type)
}

func TestCartHandler_UpdateShipping(t *testing.T) {
	f := newHandlerFixture(t, nil)
	addr := int64(55)
	f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{ID: 9, Subtotal: 10000, TotalAmount: 10000}, nil)
	f.gw.EXPECT().
		UpdateShipping(gomock.Any(), "user-1", cart.ShippingInfo{ShippingAddressID: 55, Note: "leave at door"}).
		Return(cart.Cart{ID: 9, Subtotal: 10000, ShippingFee: 30000, TotalAmount: 40000, ShippingAddressID: &addr}, nil)

	f.router.PUT("/cart/shipping", authWrapper("user-1", f.handler.UpdateShipping))

	req := httptest.NewRequest(http.MethodPut, "/cart/shipping", strings.NewReader(`{"shipping_address_id":55,"note":"leave at door"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shipping_fee":30000`)
}

func TestCartHandler_EndSession(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.gw.EXPECT().Fetch(gomock.Any(), "user-1").Return(cart.Cart{ID: 9}, nil).Times(2)

	f.router.GET("/cart", authWrapper("user-1", f.handler.Detail))
	f.router.DELETE("/cart/session", authWrapper("user-1", f.handler.EndSession))

	// first touch loads the store
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// logout drops it
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cart/session", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// next touch starts from a fresh fetch
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
