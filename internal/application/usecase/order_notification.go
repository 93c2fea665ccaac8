// internal/application/usecase/order_notification.go
package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ayyooya/internal/domain/common"
	"ayyooya/internal/domain/localstate"
	orderdom "ayyooya/internal/domain/order"
	sessiondom "ayyooya/internal/domain/session"
	"ayyooya/internal/domain/tracking"
)

// TrackingNotifier maintains the "new tracking number" badge for the
// signed-in shopper. Change notifications only schedule a re-fetch; the
// re-fetch result is the truth.
type TrackingNotifier struct {
	orders   orderdom.Repository
	feed     orderdom.ChangeFeed
	sessions SessionSource
	local    localstate.Store
	log      *zap.Logger

	mu        sync.Mutex
	viewed    tracking.ViewedSet
	tracked   []string
	hasUnseen bool
	subs      map[int]chan bool
	nextSub   int

	refreshCh chan struct{}
}

// NewTrackingNotifier loads the persisted viewed ids. feed may be nil, in
// which case only explicit Refresh calls and session changes update the
// badge.
func NewTrackingNotifier(
	ctx context.Context,
	orders orderdom.Repository,
	feed orderdom.ChangeFeed,
	sessions SessionSource,
	local localstate.Store,
	log *zap.Logger,
) *TrackingNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	n := &TrackingNotifier{
		orders:    orders,
		feed:      feed,
		sessions:  sessions,
		local:     local,
		log:       log.Named("tracking_notifier"),
		viewed:    tracking.NewViewedSet(),
		subs:      map[int]chan bool{},
		refreshCh: make(chan struct{}, 1),
	}
	n.viewed = n.readViewed(ctx)
	return n
}

func (n *TrackingNotifier) readViewed(ctx context.Context) tracking.ViewedSet {
	raw, ok, err := n.local.Get(ctx, localstate.KeyViewedTrackingIDs)
	if err != nil {
		n.log.Warn("read viewed ids failed, starting empty", zap.Error(err))
		return tracking.NewViewedSet()
	}
	if !ok {
		return tracking.NewViewedSet()
	}
	s, err := tracking.DecodeViewedSet(raw)
	if err != nil {
		n.log.Warn("malformed viewed ids, starting empty", zap.Error(err))
		return tracking.NewViewedSet()
	}
	return s
}

func (n *TrackingNotifier) HasUnseenTracking() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hasUnseen
}

// Refresh re-fetches the shopper's tracked orders and recomputes the badge.
// Without a session the badge is cleared and nothing is fetched. On a fetch
// error the previous state is kept.
func (n *TrackingNotifier) Refresh(ctx context.Context) error {
	s := n.sessions.Current()
	if !s.IsLoggedIn {
		n.apply(nil)
		return nil
	}
	ids, err := n.fetchTracked(ctx, s.UserID)
	if err != nil {
		return err
	}
	n.apply(ids)
	return nil
}

func (n *TrackingNotifier) fetchTracked(ctx context.Context, userID string) ([]string, error) {
	has := true
	xs, err := n.orders.List(ctx, orderdom.Filter{UserID: userID, HasTracking: &has})
	if err != nil {
		return nil, common.E(common.CodeBackend, "tracking.refresh", err)
	}
	return orderdom.TrackedIDs(xs), nil
}

func (n *TrackingNotifier) apply(tracked []string) {
	n.mu.Lock()
	n.tracked = tracked
	n.setLocked(tracking.HasUnseen(tracked, n.viewed))
	n.mu.Unlock()
}

// setLocked updates the badge and notifies subscribers when it flips.
func (n *TrackingNotifier) setLocked(v bool) {
	if n.hasUnseen == v {
		return
	}
	n.hasUnseen = v
	for _, ch := range n.subs {
		// keep only the latest value
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// MarkViewed records every currently tracked order as seen, replacing the
// stored set, and clears the badge. It is what opening the orders view does.
func (n *TrackingNotifier) MarkViewed(ctx context.Context) error {
	const op = "tracking.mark_viewed"
	s := n.sessions.Current()
	if !s.IsLoggedIn {
		return nil
	}
	ids, err := n.fetchTracked(ctx, s.UserID)
	if err != nil {
		return err
	}
	next := tracking.NewViewedSet(ids...)
	raw, err := next.Encode()
	if err != nil {
		return common.E(common.CodeInternal, op, err)
	}
	if err := n.local.Set(ctx, localstate.KeyViewedTrackingIDs, raw); err != nil {
		return common.E(common.CodeInternal, op, err)
	}

	n.mu.Lock()
	n.viewed = next
	n.tracked = ids
	n.setLocked(false)
	n.mu.Unlock()
	return nil
}

// Subscribe returns a channel receiving the badge value whenever it
// changes. Only the latest value is buffered.
func (n *TrackingNotifier) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = ch
	ch <- n.hasUnseen
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Trigger schedules a re-fetch. Pending triggers coalesce into one.
func (n *TrackingNotifier) Trigger() {
	select {
	case n.refreshCh <- struct{}{}:
	default:
	}
}

// Run owns the change subscription and performs every re-fetch on this
// goroutine. A session change restarts the subscription for the new user.
func (n *TrackingNotifier) Run(ctx context.Context) error {
	sessionCh := make(chan struct{}, 1)
	cancelListen := n.sessions.OnChange(func(sessiondom.Session) {
		select {
		case sessionCh <- struct{}{}:
		default:
		}
	})
	defer cancelListen()

	var (
		changes   <-chan orderdom.Change
		cancelSub context.CancelFunc = func() {}
	)
	defer func() { cancelSub() }()

	resubscribe := func() {
		cancelSub()
		changes = nil
		cancelSub = func() {}

		s := n.sessions.Current()
		if !s.IsLoggedIn || n.feed == nil {
			return
		}
		subCtx, cancel := context.WithCancel(ctx)
		ch, err := n.feed.Subscribe(subCtx, s.UserID)
		if err != nil {
			cancel()
			n.log.Warn("subscribe to order changes failed", zap.String("user_id", s.UserID), zap.Error(err))
			return
		}
		changes, cancelSub = ch, cancel
	}

	resubscribe()
	n.Trigger()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sessionCh:
			resubscribe()
			n.Trigger()
		case c, ok := <-changes:
			if !ok {
				// subscription ended; fall back to explicit refreshes
				changes = nil
				continue
			}
			n.log.Debug("order change", zap.String("kind", string(c.Kind)), zap.String("order_id", c.OrderID))
			n.Trigger()
		case <-n.refreshCh:
			if err := n.Refresh(ctx); err != nil && ctx.Err() == nil {
				n.log.Warn("refresh failed", zap.Error(err))
			}
		}
	}
}
