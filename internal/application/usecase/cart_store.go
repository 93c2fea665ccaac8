// internal/application/usecase/cart_store.go
package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	cartdom "ayyooya/internal/domain/cart"
	"ayyooya/internal/domain/common"
	"ayyooya/internal/domain/localstate"
)

// CartStore is the shopper's cart, mirrored to the local store after every
// mutation. All methods are safe for concurrent use; persistence happens
// under the same lock so the stored snapshot never lags the memory copy.
type CartStore struct {
	mu    sync.Mutex
	local localstate.Store
	items cartdom.Items
	log   *zap.Logger
}

// NewCartStore loads the persisted snapshot. A missing or malformed
// snapshot yields an empty cart.
func NewCartStore(ctx context.Context, local localstate.Store, log *zap.Logger) *CartStore {
	if log == nil {
		log = zap.NewNop()
	}
	s := &CartStore{
		local: local,
		items: cartdom.Items{},
		log:   log.Named("cart_store"),
	}
	s.Reload(ctx)
	return s
}

// Reload re-reads the persisted snapshot, replacing the in-memory cart.
func (s *CartStore) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.readSnapshot(ctx)
}

func (s *CartStore) readSnapshot(ctx context.Context) cartdom.Items {
	raw, ok, err := s.local.Get(ctx, localstate.KeyCart)
	if err != nil {
		s.log.Warn("read snapshot failed, starting empty", zap.Error(err))
		return cartdom.Items{}
	}
	if !ok {
		return cartdom.Items{}
	}
	items, err := cartdom.Decode(raw)
	if err != nil {
		s.log.Warn("malformed snapshot, starting empty", zap.Error(err))
		return cartdom.Items{}
	}
	return items
}

// AddItem appends it. The store does not dedupe; callers that want one
// line per product check Contains first.
func (s *CartStore) AddItem(ctx context.Context, it cartdom.CartItem) error {
	const op = "cart.add"
	it, err := it.Normalized()
	if err != nil {
		return common.E(common.CodeValidation, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.items.Clone(), it)
	s.items = next
	return s.persistLocked(ctx, op)
}

// RemoveItem drops every line matching (productID, size). Removing an
// absent line is a no-op that still persists.
func (s *CartStore) RemoveItem(ctx context.Context, productID, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = s.items.Without(productID, size)
	return s.persistLocked(ctx, "cart.remove")
}

// Clear empties the cart and removes the persisted key.
func (s *CartStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = cartdom.Items{}
	if err := s.local.Delete(ctx, localstate.KeyCart); err != nil {
		s.log.Error("clear persisted cart failed", zap.Error(err))
		return common.E(common.CodeInternal, "cart.clear", fmt.Errorf("delete snapshot: %w", err))
	}
	return nil
}

func (s *CartStore) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Contains(productID)
}

func (s *CartStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Total()
}

// Items returns a copy of the cart lines in insertion order.
func (s *CartStore) Items() cartdom.Items {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// CartSnapshot is a consistent view of lines and total.
type CartSnapshot struct {
	Items cartdom.Items `json:"items"`
	Total int           `json:"total"`
	Count int           `json:"count"`
}

func (s *CartStore) Snapshot() CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartSnapshot{
		Items: s.items.Clone(),
		Total: s.items.Total(),
		Count: len(s.items),
	}
}

// persistLocked writes the snapshot; the caller holds mu. On failure the
// in-memory mutation is kept and the next successful write re-syncs.
func (s *CartStore) persistLocked(ctx context.Context, op string) error {
	raw, err := s.items.Encode()
	if err != nil {
		return common.E(common.CodeInternal, op, err)
	}
	if err := s.local.Set(ctx, localstate.KeyCart, raw); err != nil {
		s.log.Error("persist cart failed", zap.String("op", op), zap.Error(err))
		return common.E(common.CodeInternal, op, fmt.Errorf("persist snapshot: %w", err))
	}
	return nil
}
