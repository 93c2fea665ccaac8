package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayyooya/internal/domain/common"
	orderdom "ayyooya/internal/domain/order"
)

func newBoard(orders *memOrders, prods *memProducts) *AdminOrders {
	sessions := adminSessions()
	wf := NewOrderWorkflow(orders, prods, sessions, nil,
		WithWorkflowClock(fixedClock{t: tBase.Add(time.Hour)}),
		WithRetryPolicy(RetryPolicy{Attempts: 1}))
	return NewAdminOrders(NewOrderQuery(orders, sessions), wf, fixedClock{t: tBase.Add(time.Hour)}, nil)
}

func entryIDs(xs []Entry) []string {
	out := []string{}
	for _, e := range xs {
		out = append(out, e.Order().ID)
	}
	return out
}

func TestBoardRefreshGroupsByStatus(t *testing.T) {
	done := pendingOrder("done", "p1")
	done.Status = orderdom.StatusCompleted
	done.CreatedAt = tBase.Add(5 * time.Minute)
	older := pendingOrder("older", "p1")
	newer := pendingOrder("newer", "p1")
	newer.CreatedAt = tBase.Add(time.Minute)

	b := newBoard(newMemOrders(done, older, newer), products("p1"))
	view, err := b.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older", "done"}, entryIDs(view))
	for _, e := range view {
		_, ok := e.(Confirmed)
		assert.True(t, ok)
	}
}

func TestBoardActionRecordsIntentUntilRefresh(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders(pendingOrder("o1", "p1"), pendingOrder("o2", "p1"))
	b := newBoard(orders, products("p1"))
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	_, err = b.Confirm(ctx, "o1")
	require.NoError(t, err)

	var intent Intent
	for _, e := range b.View() {
		if e.Order().ID == "o1" {
			var ok bool
			intent, ok = e.(Intent)
			require.True(t, ok)
		}
	}
	assert.Equal(t, orderdom.StatusCompleted, intent.Target)
	assert.Equal(t, orderdom.StatusCompleted, intent.Effective())

	view, err := b.Refresh(ctx)
	require.NoError(t, err)
	for _, e := range view {
		_, ok := e.(Confirmed)
		assert.True(t, ok, "refresh resolves intents")
	}
	assert.Equal(t, []string{"o2", "o1"}, entryIDs(view))
}

func TestBoardFailedActionRestoresRow(t *testing.T) {
	ctx := context.Background()
	done := pendingOrder("o1", "p1")
	done.Status = orderdom.StatusCompleted
	b := newBoard(newMemOrders(done), products("p1"))
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	_, err = b.Cancel(ctx, "o1")
	assert.Equal(t, common.CodeConflict, common.CodeOf(err))

	view := b.View()
	require.Len(t, view, 1)
	c, ok := view[0].(Confirmed)
	require.True(t, ok)
	assert.Equal(t, orderdom.StatusCompleted, c.Value.Status)
}

func TestBoardDeleteKeepsIntentUntilRefresh(t *testing.T) {
	ctx := context.Background()
	b := newBoard(newMemOrders(pendingOrder("o1", "p1")), products("p1"))
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Delete(ctx, "o1", true))
	view := b.View()
	require.Len(t, view, 1)
	in, ok := view[0].(Intent)
	require.True(t, ok)
	assert.True(t, in.Deleting())

	view, err = b.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, view)
}

func TestBoardViewSortsByEffectiveStatus(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders(pendingOrder("o1", "p1"), pendingOrder("o2", "p1"))
	b := newBoard(orders, products("p1"))
	view, err := b.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "o1"}, entryIDs(view))

	_, err = b.Confirm(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, entryIDs(b.View()))
}
