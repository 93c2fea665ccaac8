// Package memory holds process-local backends for offline runs and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	orderdom "ayyooya/internal/domain/order"
)

// OrderRepository keeps orders in memory and publishes every write to
// its change feed.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]orderdom.Order
	feed   *ChangeFeed
}

func NewOrderRepository(feed *ChangeFeed) *OrderRepository {
	return &OrderRepository{orders: map[string]orderdom.Order{}, feed: feed}
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (orderdom.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[strings.TrimSpace(id)]
	if !ok {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) List(_ context.Context, f orderdom.Filter) ([]orderdom.Order, error) {
	r.mu.RLock()
	out := make([]orderdom.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.Match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	r.mu.RUnlock()
	orderdom.SortNewestFirst(out)
	return out, nil
}

func (r *OrderRepository) Create(_ context.Context, o orderdom.Order) (orderdom.Order, error) {
	r.mu.Lock()
	if _, ok := r.orders[o.ID]; ok {
		r.mu.Unlock()
		return orderdom.Order{}, orderdom.ErrConflict
	}
	r.orders[o.ID] = cloneOrder(o)
	r.mu.Unlock()
	r.feed.publish(o.UserID, orderdom.Change{Kind: orderdom.ChangeInsert, OrderID: o.ID})
	return o, nil
}

func (r *OrderRepository) Save(_ context.Context, o orderdom.Order, from orderdom.Status) (orderdom.Order, error) {
	r.mu.Lock()
	cur, ok := r.orders[o.ID]
	if !ok {
		r.mu.Unlock()
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	if orderdom.ParseStatus(string(cur.Status)) != from {
		r.mu.Unlock()
		return orderdom.Order{}, orderdom.ErrConflict
	}
	cur.Status = o.Status
	cur.TrackingNumber = orderdom.NormalizePtr(o.TrackingNumber)
	cur.UpdatedAt = o.UpdatedAt
	r.orders[o.ID] = cur
	r.mu.Unlock()
	r.feed.publish(cur.UserID, orderdom.Change{Kind: orderdom.ChangeUpdate, OrderID: o.ID})
	return cloneOrder(cur), nil
}

func (r *OrderRepository) Delete(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	cur, ok := r.orders[id]
	if !ok {
		r.mu.Unlock()
		return orderdom.ErrNotFound
	}
	delete(r.orders, id)
	r.mu.Unlock()
	r.feed.publish(cur.UserID, orderdom.Change{Kind: orderdom.ChangeDelete, OrderID: id})
	return nil
}

func cloneOrder(o orderdom.Order) orderdom.Order {
	o.Items = append([]orderdom.Item(nil), o.Items...)
	if o.TrackingNumber != nil {
		tn := *o.TrackingNumber
		o.TrackingNumber = &tn
	}
	return o
}
