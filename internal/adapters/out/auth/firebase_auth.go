// internal/adapters/out/auth/firebase_auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"ayyooya/internal/domain/localstate"
	sessiondom "ayyooya/internal/domain/session"
)

// TokenVerifier is the part of the Firebase Admin auth client used here.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// RoleClaim is the custom claim carrying the shopper's role.
const RoleClaim = "role"

// storedSession is the value under localstate.KeyAuthSession.
type storedSession struct {
	Tokens
	Role sessiondom.Role `json:"role"`
}

// FirebaseAuth implements session.AuthPort. The session survives restarts
// through the local store; Watch keeps the id token fresh and reports
// expiry as a sign-out.
type FirebaseAuth struct {
	password PasswordBackend
	verifier TokenVerifier
	local    localstate.Store
	log      *zap.Logger
	now      func() time.Time

	seq    atomic.Uint64
	events chan sessiondom.Event

	// serialises token refresh and persistence
	mu sync.Mutex

	RefreshLead time.Duration
	CheckEvery  time.Duration
}

func NewFirebaseAuth(password PasswordBackend, verifier TokenVerifier, local localstate.Store, log *zap.Logger) *FirebaseAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &FirebaseAuth{
		password:    password,
		verifier:    verifier,
		local:       local,
		log:         log.Named("firebase_auth"),
		now:         time.Now,
		events:      make(chan sessiondom.Event, 16),
		RefreshLead: 2 * time.Minute,
		CheckEvery:  30 * time.Second,
	}
}

func (a *FirebaseAuth) Events() <-chan sessiondom.Event { return a.events }

// CurrentUser returns the persisted session, refreshing the id token when
// it is about to expire. A session the backend no longer accepts is erased
// and reported as anonymous.
func (a *FirebaseAuth) CurrentUser(ctx context.Context) (sessiondom.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok, err := a.load(ctx)
	if err != nil || !ok {
		return sessiondom.Anonymous(), err
	}
	if a.expiring(st) {
		st, err = a.refreshLocked(ctx, st)
		if err != nil {
			if errors.Is(err, ErrSessionRevoked) {
				return sessiondom.Anonymous(), nil
			}
			return sessiondom.Anonymous(), err
		}
	}
	s, err := a.verify(ctx, st.Tokens)
	if err != nil {
		a.log.Warn("persisted session rejected", zap.Error(err))
		a.eraseLocked(ctx)
		return sessiondom.Anonymous(), nil
	}
	return s, nil
}

func (a *FirebaseAuth) SignIn(ctx context.Context, c sessiondom.Credentials) (sessiondom.Event, error) {
	t, err := a.password.SignInWithPassword(ctx, c.Email, c.Password)
	if err != nil {
		return sessiondom.Event{}, err
	}
	return a.establish(ctx, t, sessiondom.EventSignedIn)
}

// SignUp creates an account with role user and signs it in.
func (a *FirebaseAuth) SignUp(ctx context.Context, c sessiondom.Credentials) (sessiondom.Event, error) {
	t, err := a.password.SignUpWithPassword(ctx, c.Email, c.Password)
	if err != nil {
		return sessiondom.Event{}, err
	}
	return a.establish(ctx, t, sessiondom.EventSignedIn)
}

// SignOut revokes refresh tokens best-effort and always erases the local
// session.
func (a *FirebaseAuth) SignOut(ctx context.Context) (sessiondom.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok, err := a.load(ctx)
	if err != nil {
		a.log.Warn("load session on sign-out", zap.Error(err))
	}
	if ok && a.verifier != nil {
		if err := a.verifier.RevokeRefreshTokens(ctx, st.UserID); err != nil {
			a.log.Warn("revoke refresh tokens", zap.String("uid", st.UserID), zap.Error(err))
		}
	}
	a.eraseLocked(ctx)
	return a.event(sessiondom.EventSignedOut, sessiondom.Anonymous()), nil
}

// Watch refreshes the id token ahead of expiry until ctx is done. A failed
// refresh ends the session.
func (a *FirebaseAuth) Watch(ctx context.Context) error {
	every := a.CheckEvery
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ev, ok := a.checkExpiry(ctx); ok {
				select {
				case a.events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// checkExpiry refreshes a session close to expiry and returns the event to
// publish, if any.
func (a *FirebaseAuth) checkExpiry(ctx context.Context) (sessiondom.Event, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok, err := a.load(ctx)
	if err != nil || !ok || !a.expiring(st) {
		return sessiondom.Event{}, false
	}
	prevRole := st.Role
	st, err = a.refreshLocked(ctx, st)
	if err != nil {
		if !errors.Is(err, ErrSessionRevoked) {
			// transient; the next tick retries
			a.log.Warn("token refresh failed", zap.Error(err))
			if st.ExpiresAt.After(a.now()) {
				return sessiondom.Event{}, false
			}
			a.eraseLocked(ctx)
		}
		return a.event(sessiondom.EventSignedOut, sessiondom.Anonymous()), true
	}
	s := sessiondom.SignedIn(st.UserID, st.Email, st.Role)
	if st.Role != prevRole {
		return a.event(sessiondom.EventUserUpdated, s), true
	}
	return a.event(sessiondom.EventTokenRefreshed, s), true
}

// ---- helpers ----

func (a *FirebaseAuth) establish(ctx context.Context, t Tokens, kind sessiondom.EventKind) (sessiondom.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.verify(ctx, t)
	if err != nil {
		return sessiondom.Event{}, err
	}
	if s.Email == "" {
		s.Email = t.Email
	}
	t.Email = s.Email
	if err := a.save(ctx, storedSession{Tokens: t, Role: s.Role}); err != nil {
		return sessiondom.Event{}, err
	}
	return a.event(kind, s), nil
}

func (a *FirebaseAuth) verify(ctx context.Context, t Tokens) (sessiondom.Session, error) {
	if a.verifier == nil {
		return sessiondom.SignedIn(t.UserID, t.Email, sessiondom.RoleUser), nil
	}
	tok, err := a.verifier.VerifyIDToken(ctx, t.IDToken)
	if err != nil {
		return sessiondom.Anonymous(), err
	}
	return sessionFromToken(tok, t.Email), nil
}

func sessionFromToken(tok *fbauth.Token, fallbackEmail string) sessiondom.Session {
	if tok == nil {
		return sessiondom.Anonymous()
	}
	email := fallbackEmail
	if raw, ok := tok.Claims["email"]; ok {
		if e, ok2 := raw.(string); ok2 && strings.TrimSpace(e) != "" {
			email = e
		}
	}
	return sessiondom.SignedIn(tok.UID, email, sessiondom.ParseRole(tok.Claims[RoleClaim]))
}

func (a *FirebaseAuth) refreshLocked(ctx context.Context, st storedSession) (storedSession, error) {
	t, err := a.password.Refresh(ctx, st.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionRevoked) {
			a.eraseLocked(ctx)
		}
		return st, err
	}
	if t.Email == "" {
		t.Email = st.Email
	}
	next := storedSession{Tokens: t, Role: st.Role}
	if s, err := a.verify(ctx, t); err == nil {
		next.Role = s.Role
	}
	if err := a.save(ctx, next); err != nil {
		return st, err
	}
	return next, nil
}

func (a *FirebaseAuth) expiring(st storedSession) bool {
	return !st.ExpiresAt.After(a.now().Add(a.RefreshLead))
}

func (a *FirebaseAuth) event(kind sessiondom.EventKind, s sessiondom.Session) sessiondom.Event {
	return sessiondom.Event{
		Seq:     a.seq.Add(1),
		Kind:    kind,
		Session: s,
		At:      a.now().UTC(),
	}
}

func (a *FirebaseAuth) load(ctx context.Context) (storedSession, bool, error) {
	if a.local == nil {
		return storedSession{}, false, nil
	}
	raw, ok, err := a.local.Get(ctx, localstate.KeyAuthSession)
	if err != nil || !ok {
		return storedSession{}, false, err
	}
	var st storedSession
	if err := json.Unmarshal(raw, &st); err != nil || !st.valid() {
		a.log.Warn("discard malformed persisted session", zap.Error(err))
		a.eraseLocked(ctx)
		return storedSession{}, false, nil
	}
	return st, true, nil
}

func (a *FirebaseAuth) save(ctx context.Context, st storedSession) error {
	if a.local == nil {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return a.local.Set(ctx, localstate.KeyAuthSession, raw)
}

func (a *FirebaseAuth) eraseLocked(ctx context.Context) {
	if a.local == nil {
		return
	}
	if err := a.local.Delete(ctx, localstate.KeyAuthSession); err != nil {
		a.log.Warn("erase persisted session", zap.Error(err))
	}
}
