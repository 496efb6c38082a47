package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry hands out exactly one Store per user id, so the cart has a single
// exclusive owner no matter how many views read it. Stores left untouched
// past the idle TTL are evicted by the janitor; Remove drops a user's store
// immediately (logout).
type Registry struct {
	gw     Gateway
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

func NewRegistry(gw Gateway, idleTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Registry{
		gw:      gw,
		ttl:     idleTTL,
		logger:  logger.Named("cart.registry"),
		entries: make(map[string]*registryEntry),
	}
}

// For returns the user's store, creating it on first touch.
func (r *Registry) For(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok {
		entry = &registryEntry{store: NewStore(userID, r.gw, r.logger)}
		r.entries[userID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.store
}

// Remove drops the user's store. Called on logout; the next touch starts
// from a fresh, unloaded store.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

// Len reports how many stores are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run evicts idle stores until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle(time.Now())
		}
	}
}

func (r *Registry) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.ttl {
			delete(r.entries, userID)
			r.logger.Debug("evicted idle cart store", zap.String("user_id", userID))
		}
	}
}
