// internal/application/usecase/admin_orders.go
package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"ayyooya/internal/domain/common"
	orderdom "ayyooya/internal/domain/order"
)

// Entry is one row of the admin board: either the last fetched value or an
// action the admin started that no fetch has reflected yet.
type Entry interface {
	Order() orderdom.Order
	// Effective is the status the row is shown under.
	Effective() orderdom.Status
	isEntry()
}

// Confirmed is a row as the backend last reported it.
type Confirmed struct {
	Value orderdom.Order
}

func (c Confirmed) Order() orderdom.Order      { return c.Value }
func (c Confirmed) Effective() orderdom.Status { return c.Value.Status }
func (Confirmed) isEntry()                     {}

// Intent is a row with an action in flight or awaiting the next fetch.
// Target "" means the row is being deleted.
type Intent struct {
	Value  orderdom.Order
	Target orderdom.Status
	Since  time.Time
}

func (i Intent) Order() orderdom.Order { return i.Value }
func (i Intent) Effective() orderdom.Status {
	if i.Target == "" {
		return i.Value.Status
	}
	return i.Target
}
func (Intent) isEntry() {}

// Deleting reports whether the intent removes the row.
func (i Intent) Deleting() bool { return i.Target == "" }

// AdminOrders is the admin order board. Actions record an Intent; the next
// successful Refresh replaces every row with what the backend returned.
type AdminOrders struct {
	query    *OrderQuery
	workflow *OrderWorkflow
	clock    Clock
	log      *zap.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

func NewAdminOrders(query *OrderQuery, workflow *OrderWorkflow, clock Clock, log *zap.Logger) *AdminOrders {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminOrders{
		query:    query,
		workflow: workflow,
		clock:    clockOrSystem(clock),
		log:      log.Named("admin_orders"),
		entries:  map[string]Entry{},
	}
}

// Refresh fetches all orders and resolves every pending intent.
func (b *AdminOrders) Refresh(ctx context.Context) ([]Entry, error) {
	xs, err := b.query.All(ctx)
	if err != nil {
		return b.View(), err
	}
	next := make(map[string]Entry, len(xs))
	for _, o := range xs {
		next[o.ID] = Confirmed{Value: o}
	}
	b.mu.Lock()
	b.entries = next
	b.mu.Unlock()
	return b.View(), nil
}

// View returns the rows grouped by effective status, newest first.
func (b *AdminOrders) View() []Entry {
	b.mu.Lock()
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	b.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Order(), out[j].Order()
		oi.Status, oj.Status = out[i].Effective(), out[j].Effective()
		return orderdom.ListsBefore(oi, oj)
	})
	return out
}

func (b *AdminOrders) Confirm(ctx context.Context, id string) (orderdom.Order, error) {
	return b.act(ctx, id, orderdom.StatusCompleted, b.workflow.Confirm)
}

func (b *AdminOrders) Cancel(ctx context.Context, id string) (orderdom.Order, error) {
	return b.act(ctx, id, orderdom.StatusCanceled, b.workflow.Cancel)
}

func (b *AdminOrders) Delete(ctx context.Context, id string, confirmed bool) error {
	_, err := b.act(ctx, id, "", func(ctx context.Context, id string) (orderdom.Order, error) {
		return orderdom.Order{}, b.workflow.Delete(ctx, id, confirmed)
	})
	return err
}

func (b *AdminOrders) AttachTracking(ctx context.Context, id, number string) (orderdom.Order, error) {
	return b.act(ctx, id, orderdom.StatusCompleted, func(ctx context.Context, id string) (orderdom.Order, error) {
		return b.workflow.AttachTracking(ctx, id, number)
	})
}

// act records an intent, runs fn and keeps the intent until the next
// Refresh. A failed action restores the previous row; a partial failure
// keeps the intent since the status change went through.
func (b *AdminOrders) act(
	ctx context.Context,
	id string,
	target orderdom.Status,
	fn func(context.Context, string) (orderdom.Order, error),
) (orderdom.Order, error) {
	b.mu.Lock()
	prev, had := b.entries[id]
	var base orderdom.Order
	if had {
		base = prev.Order()
	} else {
		base = orderdom.Order{ID: id}
	}
	b.entries[id] = Intent{Value: base, Target: target, Since: b.clock.Now()}
	b.mu.Unlock()

	o, err := fn(ctx, id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil && !common.IsCode(err, common.CodePartial) {
		if had {
			b.entries[id] = prev
		} else {
			delete(b.entries, id)
		}
		return o, err
	}
	if o.ID != "" {
		b.entries[id] = Intent{Value: o, Target: target, Since: b.clock.Now()}
	}
	return o, err
}
