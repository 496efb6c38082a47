package cart

import (
	"context"
	"sync"

	"storefront-api/internal/pkg/apperror"
	"storefront-api/internal/pricing"

	"go.uber.org/zap"
)

// stockFallback bounds quantity clamping when a line carries no stock figure.
const stockFallback = 99

// Store owns the authoritative client-side view of one user's cart. All
// writes go through commands that call the Gateway and reconcile local state
// from the server-confirmed payload; reads get deep-copied snapshots.
//
// Mutations targeting the same cart line queue behind one another so a slow
// earlier request cannot overwrite a later one's confirmed state. Commands
// for different lines may overlap; state writes are serialized internally.
type Store struct {
	userID string
	gw     Gateway
	logger *zap.Logger

	mu      sync.RWMutex
	cart    Cart
	loaded  bool
	status  Status
	lastErr error
	preview *Totals

	lineMu    sync.Mutex
	lineLocks map[int64]*sync.Mutex
}

func NewStore(userID string, gw Gateway, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		userID:    userID,
		gw:        gw,
		logger:    logger.Named("cart.store"),
		status:    StatusIdle,
		lineLocks: make(map[int64]*sync.Mutex),
	}
}

// Snapshot returns a copy of the current state; safe to keep after the store
// moves on.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		UserID: s.userID,
		Loaded: s.loaded,
		Cart:   cloneCart(s.cart),
		Status: s.status,
		Err:    s.lastErr,
	}
	if s.preview != nil {
		p := *s.preview
		snap.Preview = &p
	}
	return snap
}

// Load fetches the cart and replaces local state wholesale. Without a user
// identity it is a no-op: anonymous sessions have no cart.
func (s *Store) Load(ctx context.Context) error {
	if s.userID == "" {
		return nil
	}

	s.begin(nil)
	fetched, err := s.gw.Fetch(ctx, s.userID)
	if err != nil {
		// The upstream creates carts implicitly on first mutation, so a
		// missing cart is just an empty one.
		if apperror.CodeOf(err) == apperror.CodeNotFound {
			s.succeed(func(c *Cart) { *c = Cart{} })
			return nil
		}
		return s.fail(err)
	}

	s.succeed(func(c *Cart) { *c = fetched })
	return nil
}

// AddItem adds quantity units of a product (or one of its variants).
// Preconditions fail fast without a network call: positive stock, and a
// variant id whenever the product is variant-bearing. Quantity is clamped to
// [1, stock] before dispatch.
func (s *Store) AddItem(ctx context.Context, product ProductInfo, quantity int, variantID *int64) error {
	if product.HasVariant && variantID == nil {
		return s.failLocal(ErrVariantRequired)
	}
	if product.StockQuantity <= 0 {
		return s.failLocal(ErrOutOfStock)
	}
	quantity = clampQuantity(quantity, product.StockQuantity)

	s.begin(s.previewAdd(product.UnitPrice, quantity))
	res, err := s.gw.AddLine(ctx, s.userID, product.ID, variantID, quantity)
	if err != nil {
		return s.fail(err)
	}

	s.succeed(func(c *Cart) {
		c.ID = res.CartID
		idx := lineIndex(c.Items, res.Item.ProductID, res.Item.VariantID)
		if idx >= 0 {
			c.Items[idx] = res.Item
		} else {
			c.Items = append(c.Items, res.Item)
		}
		applyTotals(c, res.CartTotal)
	})
	return nil
}

// UpdateItemQuantity sets a line's quantity, clamped to [1, stock] as a UX
// affordance; the server clamp stays authoritative. Zero or negative
// quantities are removals, not updates.
func (s *Store) UpdateItemQuantity(ctx context.Context, lineID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, lineID)
	}
	if lineID == 0 {
		return s.failLocal(ErrInvalidLineID)
	}

	unlock := s.lockLine(lineID)
	defer unlock()

	line, ok := s.findLine(lineID)
	if !ok {
		return s.failLocal(ErrLineNotFound)
	}
	quantity = clampQuantity(quantity, line.StockQuantity)

	s.begin(s.previewLineChange(line, quantity))
	totals, err := s.gw.UpdateLine(ctx, lineID, quantity)
	if err != nil {
		if apperror.CodeOf(err) == apperror.CodeNotFound {
			// The line vanished under us; resync before surfacing.
			s.refresh(ctx)
		}
		return s.fail(err)
	}

	s.succeed(func(c *Cart) {
		if idx := lineIndexByID(c.Items, lineID); idx >= 0 {
			c.Items[idx].Quantity = quantity
		}
		applyTotals(c, totals)
	})
	return nil
}

// RemoveItem deletes a line. A zero line id is rejected locally before any
// network traffic happens.
func (s *Store) RemoveItem(ctx context.Context, lineID int64) error {
	if lineID == 0 {
		return s.failLocal(ErrInvalidLineID)
	}

	unlock := s.lockLine(lineID)
	defer unlock()

	var preview *Totals
	if line, ok := s.findLine(lineID); ok {
		preview = s.previewRemove(line)
	}

	s.begin(preview)
	totals, err := s.gw.RemoveLine(ctx, lineID)
	if err != nil {
		if apperror.CodeOf(err) == apperror.CodeNotFound {
			s.refresh(ctx)
		}
		return s.fail(err)
	}

	s.succeed(func(c *Cart) {
		if idx := lineIndexByID(c.Items, lineID); idx >= 0 {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		}
		applyTotals(c, totals)
	})
	s.dropLineLock(lineID)
	return nil
}

// Clear empties the cart; the server response replaces state wholesale.
func (s *Store) Clear(ctx context.Context) error {
	s.begin(nil)
	cleared, err := s.gw.Clear(ctx, s.userID)
	if err != nil {
		return s.fail(err)
	}

	s.succeed(func(c *Cart) { *c = cleared })
	s.dropAllLineLocks()
	return nil
}

// ApplyDiscount applies a code. A cart holds at most one active code;
// applying while another is active is a replacement, enforced by replacing
// the whole cart from whichever discount response wins.
func (s *Store) ApplyDiscount(ctx context.Context, code string) error {
	if code == "" {
		return s.failLocal(ErrDiscountCodeRequired)
	}

	s.begin(nil)
	updated, err := s.gw.ApplyDiscount(ctx, s.userID, code)
	if err != nil {
		return s.fail(err)
	}

	s.succeed(func(c *Cart) { *c = updated })
	return nil
}

func (s *Store) RemoveDiscount(ctx context.Context) error {
	s.begin(nil)
	updated, err := s.gw.RemoveDiscount(ctx, s.userID)
	if err != nil {
		return s.fail(err)
	}

	s.succeed(func(c *Cart) { *c = updated })
	return nil
}

func (s *Store) UpdateShipping(ctx context.Context, info ShippingInfo) error {
	s.begin(nil)
	updated, err := s.gw.UpdateShipping(ctx, s.userID, info)
	if err != nil {
		return s.fail(err)
	}

	s.succeed(func(c *Cart) { *c = updated })
	return nil
}

// ClearError reverts a failed store to idle without dispatching anything.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFailed {
		s.status = StatusIdle
		s.lastErr = nil
	}
}

// ========================
// lifecycle helpers
// ========================

func (s *Store) begin(preview *Totals) {
	s.mu.Lock()
	s.status = StatusPending
	s.lastErr = nil
	s.preview = preview
	s.mu.Unlock()
}

func (s *Store) succeed(apply func(c *Cart)) {
	s.mu.Lock()
	apply(&s.cart)
	s.loaded = true
	s.status = StatusSucceeded
	s.lastErr = nil
	s.preview = nil
	s.mu.Unlock()
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.status = StatusFailed
	s.lastErr = err
	s.preview = nil
	s.mu.Unlock()
	s.logger.Warn("cart command failed", zap.String("user_id", s.userID), zap.Error(err))
	return err
}

// failLocal rejects a command before dispatch; prior state stays untouched
// and no network call is made.
func (s *Store) failLocal(err error) error {
	return s.fail(err)
}

// refresh replaces the cart from the server after stale-state errors. Best
// effort: a failed refetch keeps the old view.
func (s *Store) refresh(ctx context.Context) {
	fetched, err := s.gw.Fetch(ctx, s.userID)
	if err != nil {
		s.logger.Warn("stale-state refetch failed", zap.String("user_id", s.userID), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.cart = fetched
	s.loaded = true
	s.mu.Unlock()
}

func (s *Store) findLine(lineID int64) (Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := lineIndexByID(s.cart.Items, lineID); idx >= 0 {
		return s.cart.Items[idx], true
	}
	return Line{}, false
}

func (s *Store) lockLine(lineID int64) func() {
	s.lineMu.Lock()
	lock, ok := s.lineLocks[lineID]
	if !ok {
		lock = &sync.Mutex{}
		s.lineLocks[lineID] = lock
	}
	s.lineMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *Store) dropLineLock(lineID int64) {
	s.lineMu.Lock()
	delete(s.lineLocks, lineID)
	s.lineMu.Unlock()
}

func (s *Store) dropAllLineLocks() {
	s.lineMu.Lock()
	s.lineLocks = make(map[int64]*sync.Mutex)
	s.lineMu.Unlock()
}

// ========================
// reconciliation helpers
// ========================

func applyTotals(c *Cart, t Totals) {
	c.Subtotal = t.Subtotal
	c.DiscountAmount = t.DiscountAmount
	c.ShippingFee = t.ShippingFee
	c.TotalAmount = t.TotalAmount
}

func clampQuantity(quantity, stock int) int {
	if stock <= 0 {
		stock = stockFallback
	}
	if quantity < 1 {
		return 1
	}
	if quantity > stock {
		return stock
	}
	return quantity
}

func lineIndexByID(items []Line, lineID int64) int {
	for i := range items {
		if items[i].ID == lineID {
			return i
		}
	}
	return -1
}

// lineIndex matches by (product, variant): nil variant on both sides
// matches, non-nil must match exactly.
func lineIndex(items []Line, productID int64, variantID *int64) int {
	for i := range items {
		if items[i].ProductID != productID {
			continue
		}
		if variantMatches(items[i].VariantID, variantID) {
			return i
		}
	}
	return -1
}

func variantMatches(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ========================
// preview helpers
// ========================

func (s *Store) currentTotals() (pricing.Totals, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return pricing.Totals{}, false
	}
	return pricing.Totals{
		Subtotal:       s.cart.Subtotal,
		DiscountAmount: s.cart.DiscountAmount,
		ShippingFee:    s.cart.ShippingFee,
		TotalAmount:    s.cart.TotalAmount,
	}, true
}

func (s *Store) previewAdd(unitPrice int64, quantity int) *Totals {
	base, ok := s.currentTotals()
	if !ok {
		return nil
	}
	return fromPricing(pricing.EstimateAdd(base, unitPrice, quantity))
}

func (s *Store) previewLineChange(line Line, newQuantity int) *Totals {
	base, ok := s.currentTotals()
	if !ok {
		return nil
	}
	return fromPricing(pricing.EstimateLineChange(base, line.TotalPrice, line.UnitPrice, newQuantity))
}

func (s *Store) previewRemove(line Line) *Totals {
	base, ok := s.currentTotals()
	if !ok {
		return nil
	}
	return fromPricing(pricing.EstimateRemove(base, line.TotalPrice))
}

func fromPricing(t pricing.Totals) *Totals {
	return &Totals{
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		ShippingFee:    t.ShippingFee,
		TotalAmount:    t.TotalAmount,
	}
}
