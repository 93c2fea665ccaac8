// internal/domain/session/entity.go
package session

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("session: email and password are required")
	ErrPasswordMismatch   = errors.New("session: passwords do not match")
	ErrNotSignedIn        = errors.New("session: not signed in")
	ErrNotAdmin           = errors.New("session: admin role required")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a claim value to a Role. Anything that is not "admin"
// is treated as a regular user.
func ParseRole(v any) Role {
	s, _ := v.(string)
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// Session is the signed-in state of the shopper.
type Session struct {
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       Role   `json:"role"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}

// Anonymous is the "no session" value.
func Anonymous() Session {
	return Session{Role: RoleUser}
}

// SignedIn builds a session for uid. Role defaults to user.
func SignedIn(uid, email string, role Role) Session {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return Anonymous()
	}
	if role == "" {
		role = RoleUser
	}
	return Session{
		UserID:     uid,
		Email:      strings.TrimSpace(email),
		Role:       role,
		IsLoggedIn: true,
	}
}

func (s Session) IsAdmin() bool {
	return s.IsLoggedIn && s.Role == RoleAdmin
}

// Normalize enforces the invariants of Session: an empty user id means
// no session, and role always has a value.
func (s Session) Normalize() Session {
	if !s.IsLoggedIn || strings.TrimSpace(s.UserID) == "" {
		return Anonymous()
	}
	return SignedIn(s.UserID, s.Email, s.Role)
}

type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventUserUpdated    EventKind = "user_updated"
)

// Event is a session change pushed by the auth backend. Seq increases
// monotonically per process; consumers drop events that are not newer
// than the last one applied.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    EventKind `json:"kind"`
	Session Session   `json:"session"`
	At      time.Time `json:"at"`
}

type Credentials struct {
	Email    string
	Password string
}

// NewCredentials trims the email and checks both fields are present.
func NewCredentials(email, password string) (Credentials, error) {
	c := Credentials{Email: strings.TrimSpace(email), Password: password}
	if c.Email == "" || c.Password == "" {
		return Credentials{}, ErrInvalidCredentials
	}
	return c, nil
}

// Registration is a sign-up request with password confirmation.
type Registration struct {
	Credentials
	ConfirmPassword string
}

func NewRegistration(email, password, confirm string) (Registration, error) {
	c, err := NewCredentials(email, password)
	if err != nil {
		return Registration{}, err
	}
	if password != confirm {
		return Registration{}, ErrPasswordMismatch
	}
	return Registration{Credentials: c, ConfirmPassword: confirm}, nil
}
