package usecase

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"ayyooya/internal/domain/common"
	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
)

const defaultLookupLimit = 4

// OrderQuery serves the read side of orders.
type OrderQuery struct {
	orders      orderdom.Repository
	sessions    SessionSource
	products    ProductLookup
	lookupLimit int
}

type OrderQueryOption func(*OrderQuery)

// WithProductLookup lets Detail report the current state of each ordered
// product. limit caps concurrent lookups; <= 0 uses the default.
func WithProductLookup(p ProductLookup, limit int) OrderQueryOption {
	return func(q *OrderQuery) {
		q.products = p
		if limit > 0 {
			q.lookupLimit = limit
		}
	}
}

func NewOrderQuery(orders orderdom.Repository, sessions SessionSource, opts ...OrderQueryOption) *OrderQuery {
	q := &OrderQuery{orders: orders, sessions: sessions, lookupLimit: defaultLookupLimit}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Mine returns the signed-in shopper's orders, newest first.
func (q *OrderQuery) Mine(ctx context.Context) ([]orderdom.Order, error) {
	const op = "orders.mine"
	s, err := requireSession(q.sessions, op)
	if err != nil {
		return nil, err
	}
	xs, err := q.orders.List(ctx, orderdom.Filter{UserID: s.UserID})
	if err != nil {
		return nil, mapOrderErr(op, err)
	}
	orderdom.SortNewestFirst(xs)
	return xs, nil
}

// All returns every order in listing order (admin).
func (q *OrderQuery) All(ctx context.Context) ([]orderdom.Order, error) {
	const op = "orders.all"
	if _, err := requireAdmin(q.sessions, op); err != nil {
		return nil, err
	}
	xs, err := q.orders.List(ctx, orderdom.Filter{})
	if err != nil {
		return nil, mapOrderErr(op, err)
	}
	orderdom.SortForListing(xs)
	return xs, nil
}

// Get returns one order if it belongs to the shopper or the shopper is admin.
// Someone else's order reads as not found.
func (q *OrderQuery) Get(ctx context.Context, id string) (orderdom.Order, error) {
	const op = "orders.get"
	s, err := requireSession(q.sessions, op)
	if err != nil {
		return orderdom.Order{}, err
	}
	oid := strings.TrimSpace(id)
	if oid == "" {
		return orderdom.Order{}, common.E(common.CodeValidation, op, ErrInvalidOrderID)
	}
	o, err := q.orders.GetByID(ctx, oid)
	if err != nil {
		return orderdom.Order{}, mapOrderErr(op, err)
	}
	if !s.IsAdmin() && o.UserID != s.UserID {
		return orderdom.Order{}, common.E(common.CodeNotFound, op, orderdom.ErrNotFound)
	}
	return o, nil
}

// ItemState pairs an ordered line with the product as it is now. Product is
// nil when the product was deleted or no lookup is configured.
type ItemState struct {
	Item    orderdom.Item
	Product *productdom.Product
}

type OrderDetail struct {
	Order orderdom.Order
	Items []ItemState
}

// Detail is Get plus the current product of every line, looked up in
// parallel. Any lookup failure other than not-found fails the call.
func (q *OrderQuery) Detail(ctx context.Context, id string) (OrderDetail, error) {
	const op = "orders.detail"
	o, err := q.Get(ctx, id)
	if err != nil {
		return OrderDetail{}, err
	}
	items := make([]ItemState, len(o.Items))
	for i, it := range o.Items {
		items[i].Item = it
	}
	if q.products == nil {
		return OrderDetail{Order: o, Items: items}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.lookupLimit)
	for i := range items {
		g.Go(func() error {
			p, err := q.products.GetByID(gctx, items[i].Item.ProductID)
			if errors.Is(err, productdom.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			items[i].Product = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OrderDetail{}, common.E(common.CodeBackend, op, err)
	}
	return OrderDetail{Order: o, Items: items}, nil
}
