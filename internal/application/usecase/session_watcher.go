// internal/application/usecase/session_watcher.go
package usecase

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ayyooya/internal/domain/common"
	"ayyooya/internal/domain/localstate"
	sessiondom "ayyooya/internal/domain/session"
)

// SessionWatcher tracks the current session and fans changes out to
// listeners. When a change ends the session it clears the cart exactly once,
// before any listener runs, and erases the persisted auth session.
type SessionWatcher struct {
	auth  sessiondom.AuthPort
	cart  CartClearer
	local localstate.Store
	log   *zap.Logger

	// applyMu serializes Apply end to end, so resets and listener calls
	// run in event order. Listeners must not call back into Apply.
	applyMu sync.Mutex

	mu        sync.Mutex
	current   sessiondom.Session
	lastSeq   uint64
	listeners map[int]func(sessiondom.Session)
	nextID    int
}

func NewSessionWatcher(auth sessiondom.AuthPort, cart CartClearer, local localstate.Store, log *zap.Logger) *SessionWatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionWatcher{
		auth:      auth,
		cart:      cart,
		local:     local,
		log:       log.Named("session_watcher"),
		current:   sessiondom.Anonymous(),
		listeners: map[int]func(sessiondom.Session){},
	}
}

// Init reads the session the backend currently reports. It does not notify
// listeners and does not clear anything.
func (w *SessionWatcher) Init(ctx context.Context) error {
	s, err := w.auth.CurrentUser(ctx)
	if err != nil {
		return common.E(common.CodeBackend, "session.init", err)
	}
	w.mu.Lock()
	w.current = s.Normalize()
	w.mu.Unlock()
	return nil
}

func (w *SessionWatcher) Current() sessiondom.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// OnChange registers cb; it is called after every applied event with the
// new session. The returned func unregisters it.
func (w *SessionWatcher) OnChange(cb func(sessiondom.Session)) (cancel func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = cb
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

// Run applies events from the auth backend until ctx is done or the event
// channel closes.
func (w *SessionWatcher) Run(ctx context.Context) error {
	events := w.auth.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.Apply(ctx, ev)
		}
	}
}

// Apply processes one event. Events whose Seq is not newer than the last
// applied one are dropped; the return value reports whether ev was applied.
func (w *SessionWatcher) Apply(ctx context.Context, ev sessiondom.Event) bool {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.Lock()
	if ev.Seq <= w.lastSeq {
		w.mu.Unlock()
		w.log.Debug("drop stale session event",
			zap.Uint64("seq", ev.Seq), zap.Uint64("last_seq", w.lastSeq), zap.String("kind", string(ev.Kind)))
		return false
	}
	w.lastSeq = ev.Seq
	next := ev.Session.Normalize()
	if ev.Kind == sessiondom.EventSignedOut {
		next = sessiondom.Anonymous()
	}
	w.current = next
	cbs := w.snapshotListenersLocked()
	w.mu.Unlock()

	if !next.IsLoggedIn {
		w.resetLocalState(ctx)
	}
	for _, cb := range cbs {
		cb(next)
	}
	w.log.Info("session changed",
		zap.String("kind", string(ev.Kind)), zap.Uint64("seq", ev.Seq),
		zap.Bool("logged_in", next.IsLoggedIn), zap.String("role", string(next.Role)))
	return true
}

func (w *SessionWatcher) snapshotListenersLocked() []func(sessiondom.Session) {
	ids := make([]int, 0, len(w.listeners))
	for id := range w.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(sessiondom.Session), 0, len(ids))
	for _, id := range ids {
		out = append(out, w.listeners[id])
	}
	return out
}

// resetLocalState clears the per-user data kept on the device. The viewed
// tracking ids are kept.
func (w *SessionWatcher) resetLocalState(ctx context.Context) {
	if w.cart != nil {
		if err := w.cart.Clear(ctx); err != nil {
			w.log.Error("clear cart on sign-out failed", zap.Error(err))
		}
	}
	if w.local != nil {
		if err := w.local.Delete(ctx, localstate.KeyAuthSession); err != nil {
			w.log.Error("erase persisted session failed", zap.Error(err))
		}
	}
}

func (w *SessionWatcher) SignIn(ctx context.Context, email, password string) (sessiondom.Session, error) {
	const op = "session.sign_in"
	c, err := sessiondom.NewCredentials(email, password)
	if err != nil {
		return sessiondom.Anonymous(), common.E(common.CodeValidation, op, err)
	}
	ev, err := w.auth.SignIn(ctx, c)
	if err != nil {
		return sessiondom.Anonymous(), common.E(common.CodeUnauthenticated, op, err)
	}
	w.Apply(ctx, ev)
	return w.Current(), nil
}

// SignUp registers a new account with role user and signs it in.
func (w *SessionWatcher) SignUp(ctx context.Context, email, password, confirm string) (sessiondom.Session, error) {
	const op = "session.sign_up"
	reg, err := sessiondom.NewRegistration(email, password, confirm)
	if err != nil {
		return sessiondom.Anonymous(), common.E(common.CodeValidation, op, err)
	}
	ev, err := w.auth.SignUp(ctx, reg.Credentials)
	if err != nil {
		return sessiondom.Anonymous(), common.E(common.CodeBackend, op, err)
	}
	w.Apply(ctx, ev)
	return w.Current(), nil
}

// SignOut ends the session. Calling it without a session is a no-op apart
// from the local reset.
func (w *SessionWatcher) SignOut(ctx context.Context) error {
	ev, err := w.auth.SignOut(ctx)
	if err != nil {
		return common.E(common.CodeBackend, "session.sign_out", err)
	}
	w.Apply(ctx, ev)
	return nil
}
