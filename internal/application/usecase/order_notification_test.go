package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ayyooya/internal/domain/localstate"
	orderdom "ayyooya/internal/domain/order"
	sessiondom "ayyooya/internal/domain/session"
)

var tBase = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func trackedOrder(id, userID, number string, minutes int) orderdom.Order {
	o := orderdom.Order{
		ID:        id,
		UserID:    userID,
		Status:    orderdom.StatusCompleted,
		CreatedAt: tBase.Add(time.Duration(minutes) * time.Minute),
	}
	if number != "" {
		n := number
		o.TrackingNumber = &n
	}
	return o
}

func TestNotifierSeenTrackingDoesNotAlert(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	require.NoError(t, local.Set(ctx, localstate.KeyViewedTrackingIDs, []byte(`[7]`)))
	orders := newMemOrders(trackedOrder("7", "u-alice", "TH1", 1))

	n := NewTrackingNotifier(ctx, orders, nil, sessionsFor(alice()), local, nil)
	require.NoError(t, n.Refresh(ctx))
	assert.False(t, n.HasUnseenTracking())

	orders.put(trackedOrder("9", "u-alice", "TH2", 2))
	require.NoError(t, n.Refresh(ctx))
	assert.True(t, n.HasUnseenTracking())

	require.NoError(t, n.MarkViewed(ctx))
	assert.False(t, n.HasUnseenTracking())
	raw, _ := local.raw(localstate.KeyViewedTrackingIDs)
	assert.JSONEq(t, `["7","9"]`, raw)

	// stays false until something new arrives
	require.NoError(t, n.Refresh(ctx))
	assert.False(t, n.HasUnseenTracking())
}

func TestNotifierIgnoresOtherUsersAndUntracked(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders(
		trackedOrder("1", "u-bob", "TH9", 1),
		trackedOrder("2", "u-alice", "", 2),
	)
	n := NewTrackingNotifier(ctx, orders, nil, sessionsFor(alice()), newMemLocal(), nil)
	require.NoError(t, n.Refresh(ctx))
	assert.False(t, n.HasUnseenTracking())
}

func TestNotifierIdleWithoutSession(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders(trackedOrder("1", "u-alice", "TH1", 1))
	n := NewTrackingNotifier(ctx, orders, nil, sessionsFor(sessiondom.Anonymous()), newMemLocal(), nil)

	require.NoError(t, n.Refresh(ctx))
	require.NoError(t, n.MarkViewed(ctx))
	assert.False(t, n.HasUnseenTracking())
	assert.Equal(t, 0, orders.listCount())
}

func TestNotifierFetchErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders(trackedOrder("1", "u-alice", "TH1", 1))
	n := NewTrackingNotifier(ctx, orders, nil, sessionsFor(alice()), newMemLocal(), nil)
	require.NoError(t, n.Refresh(ctx))
	require.True(t, n.HasUnseenTracking())

	orders.failList = true
	assert.Error(t, n.Refresh(ctx))
	assert.True(t, n.HasUnseenTracking())
}

func TestNotifierMalformedViewedFailsOpen(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	require.NoError(t, local.Set(ctx, localstate.KeyViewedTrackingIDs, []byte(`"oops"`)))
	orders := newMemOrders(trackedOrder("7", "u-alice", "TH1", 1))

	n := NewTrackingNotifier(ctx, orders, nil, sessionsFor(alice()), local, nil)
	require.NoError(t, n.Refresh(ctx))
	assert.True(t, n.HasUnseenTracking())
}

func TestNotifierSubscribeDeliversChanges(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders()
	n := NewTrackingNotifier(ctx, orders, nil, sessionsFor(alice()), newMemLocal(), nil)

	ch, cancel := n.Subscribe()
	defer cancel()
	assert.False(t, <-ch)

	orders.put(trackedOrder("3", "u-alice", "TH3", 1))
	require.NoError(t, n.Refresh(ctx))
	assert.True(t, <-ch)
}

func TestNotifierRunReactsToFeedAndSessionChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	orders := newMemOrders()
	feed := newChanFeed()
	sessions := sessionsFor(alice())
	n := NewTrackingNotifier(context.Background(), orders, feed, sessions, newMemLocal(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool { return feed.subscribed("u-alice") }, time.Second, 5*time.Millisecond)

	orders.put(trackedOrder("9", "u-alice", "TH2", 1))
	require.True(t, feed.emit("u-alice", orderdom.Change{Kind: orderdom.ChangeUpdate, OrderID: "9"}))
	require.Eventually(t, n.HasUnseenTracking, time.Second, 5*time.Millisecond)

	// sign-out: subscription is dropped and the badge clears
	sessions.set(sessiondom.Anonymous())
	require.Eventually(t, func() bool {
		return !feed.subscribed("u-alice") && !n.HasUnseenTracking()
	}, time.Second, 5*time.Millisecond)

	// next user gets a fresh subscription
	sessions.set(sessiondom.SignedIn("u-bob", "", ""))
	require.Eventually(t, func() bool { return feed.subscribed("u-bob") }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.Eventually(t, func() bool { return !feed.subscribed("u-bob") }, time.Second, 5*time.Millisecond)
}

func TestTriggerCoalesces(t *testing.T) {
	n := NewTrackingNotifier(context.Background(), newMemOrders(), nil, sessionsFor(alice()), newMemLocal(), nil)
	for i := 0; i < 10; i++ {
		n.Trigger()
	}
	assert.Len(t, n.refreshCh, 1)
}
