package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayyooya/internal/domain/common"
	productdom "ayyooya/internal/domain/product"
	sessiondom "ayyooya/internal/domain/session"
)

func TestOrderQueryMineOnlyOwnNewestFirst(t *testing.T) {
	a1 := pendingOrder("a1", "p1")
	a2 := pendingOrder("a2", "p1")
	a2.CreatedAt = tBase.Add(time.Hour)
	b1 := pendingOrder("b1", "p1")
	b1.UserID = "u-bob"

	q := NewOrderQuery(newMemOrders(a1, a2, b1), sessionsFor(alice()))
	xs, err := q.Mine(context.Background())
	require.NoError(t, err)
	require.Len(t, xs, 2)
	assert.Equal(t, "a2", xs[0].ID)
	assert.Equal(t, "a1", xs[1].ID)

	_, err = q.Get(context.Background(), "b1")
	assert.Equal(t, common.CodeNotFound, common.CodeOf(err))

	_, err = q.All(context.Background())
	assert.Equal(t, common.CodeForbidden, common.CodeOf(err))
}

func TestOrderQueryNeedsSession(t *testing.T) {
	q := NewOrderQuery(newMemOrders(), sessionsFor(sessiondom.Anonymous()))
	_, err := q.Mine(context.Background())
	assert.Equal(t, common.CodeUnauthenticated, common.CodeOf(err))
}

type lookupFunc func(ctx context.Context, id string) (productdom.Product, error)

func (f lookupFunc) GetByID(ctx context.Context, id string) (productdom.Product, error) {
	return f(ctx, id)
}

func TestOrderQueryDetailLooksUpProducts(t *testing.T) {
	ctx := context.Background()
	prods := products("p1", "p2")
	require.NoError(t, prods.MarkSold(ctx, "p2"))
	q := NewOrderQuery(newMemOrders(pendingOrder("a1", "p1", "p2", "gone")), sessionsFor(alice()),
		WithProductLookup(prods, 2))

	d, err := q.Detail(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", d.Order.ID)
	require.Len(t, d.Items, 3)
	require.NotNil(t, d.Items[0].Product)
	assert.False(t, d.Items[0].Product.IsSold)
	require.NotNil(t, d.Items[1].Product)
	assert.True(t, d.Items[1].Product.IsSold)
	assert.Equal(t, "gone", d.Items[2].Item.ProductID)
	assert.Nil(t, d.Items[2].Product)
}

func TestOrderQueryDetailLookupFailure(t *testing.T) {
	failing := lookupFunc(func(context.Context, string) (productdom.Product, error) {
		return productdom.Product{}, errBoom
	})
	q := NewOrderQuery(newMemOrders(pendingOrder("a1", "p1")), sessionsFor(alice()), WithProductLookup(failing, 0))

	_, err := q.Detail(context.Background(), "a1")
	assert.Equal(t, common.CodeBackend, common.CodeOf(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestOrderQueryDetailWithoutLookup(t *testing.T) {
	q := NewOrderQuery(newMemOrders(pendingOrder("a1", "p1")), sessionsFor(alice()))
	d, err := q.Detail(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Nil(t, d.Items[0].Product)
}
