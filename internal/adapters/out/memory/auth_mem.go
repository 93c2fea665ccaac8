package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	sessiondom "ayyooya/internal/domain/session"
)

var (
	ErrInvalidLogin = errors.New("memory: invalid email or password")
	ErrEmailExists  = errors.New("memory: email already registered")
)

type account struct {
	uid      string
	password string
	role     sessiondom.Role
}

// Auth is an in-process account store implementing session.AuthPort.
type Auth struct {
	mu       sync.Mutex
	accounts map[string]account // by email
	current  sessiondom.Session

	seq    atomic.Uint64
	events chan sessiondom.Event
}

func NewAuth() *Auth {
	return &Auth{
		accounts: map[string]account{},
		current:  sessiondom.Anonymous(),
		events:   make(chan sessiondom.Event, 8),
	}
}

// AddAccount registers an account directly, e.g. an admin for a demo.
func (a *Auth) AddAccount(email, password string, role sessiondom.Role) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	uid := uuid.NewString()
	a.accounts[strings.ToLower(strings.TrimSpace(email))] = account{uid: uid, password: password, role: role}
	return uid
}

func (a *Auth) CurrentUser(context.Context) (sessiondom.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, nil
}

func (a *Auth) SignIn(_ context.Context, c sessiondom.Credentials) (sessiondom.Event, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[email]
	if !ok || acc.password != c.Password {
		return sessiondom.Event{}, ErrInvalidLogin
	}
	a.current = sessiondom.SignedIn(acc.uid, email, acc.role)
	return a.event(sessiondom.EventSignedIn), nil
}

func (a *Auth) SignUp(_ context.Context, c sessiondom.Credentials) (sessiondom.Event, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.accounts[email]; ok {
		return sessiondom.Event{}, ErrEmailExists
	}
	acc := account{uid: uuid.NewString(), password: c.Password, role: sessiondom.RoleUser}
	a.accounts[email] = acc
	a.current = sessiondom.SignedIn(acc.uid, email, acc.role)
	return a.event(sessiondom.EventSignedIn), nil
}

func (a *Auth) SignOut(context.Context) (sessiondom.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = sessiondom.Anonymous()
	return a.event(sessiondom.EventSignedOut), nil
}

// Expire ends the session from the backend side, as a token expiry would.
func (a *Auth) Expire() {
	a.mu.Lock()
	a.current = sessiondom.Anonymous()
	ev := a.event(sessiondom.EventSignedOut)
	a.mu.Unlock()
	a.events <- ev
}

func (a *Auth) Events() <-chan sessiondom.Event { return a.events }

// EmailOf resolves a user id for the tracking mailer.
func (a *Auth) EmailOf(_ context.Context, uid string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for email, acc := range a.accounts {
		if acc.uid == uid {
			return email, nil
		}
	}
	return "", ErrInvalidLogin
}

func (a *Auth) event(kind sessiondom.EventKind) sessiondom.Event {
	return sessiondom.Event{Seq: a.seq.Add(1), Kind: kind, Session: a.current, At: time.Now().UTC()}
}
