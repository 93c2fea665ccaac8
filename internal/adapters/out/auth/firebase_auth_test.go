package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ayyooya/internal/adapters/out/localstore"
	"ayyooya/internal/domain/localstate"
	sessiondom "ayyooya/internal/domain/session"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

type fakePassword struct {
	users      map[string]string // email -> password
	refreshErr error
	refreshes  int
	issued     int
	now        func() time.Time
	emailOf    map[string]string // id token -> email
}

func (f *fakePassword) tokens(email string) Tokens {
	f.issued++
	id := fmt.Sprintf("id-%d", f.issued)
	f.emailOf[id] = email
	return Tokens{
		IDToken:      id,
		RefreshToken: "rt-" + email,
		UserID:       "uid-" + email,
		Email:        email,
		ExpiresAt:    f.now().Add(time.Hour),
	}
}

func (f *fakePassword) SignInWithPassword(_ context.Context, email, pw string) (Tokens, error) {
	if f.users[email] != pw {
		return Tokens{}, ErrInvalidLogin
	}
	return f.tokens(email), nil
}

func (f *fakePassword) SignUpWithPassword(_ context.Context, email, pw string) (Tokens, error) {
	if _, ok := f.users[email]; ok {
		return Tokens{}, ErrEmailExists
	}
	f.users[email] = pw
	return f.tokens(email), nil
}

func (f *fakePassword) Refresh(_ context.Context, rt string) (Tokens, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return Tokens{}, f.refreshErr
	}
	return f.tokens(rt[len("rt-"):]), nil
}

type fakeVerifier struct {
	emailOf map[string]string
	roles   map[string]string // uid -> role claim
	reject  bool
	revoked []string
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if f.reject {
		return nil, errors.New("id token has been revoked")
	}
	email, ok := f.emailOf[idToken]
	if !ok {
		return nil, errors.New("unknown id token")
	}
	uid := "uid-" + email
	claims := map[string]interface{}{"email": email}
	if r, ok := f.roles[uid]; ok && r != "" {
		claims[RoleClaim] = r
	}
	return &fbauth.Token{UID: uid, Claims: claims}, nil
}

func (f *fakeVerifier) RevokeRefreshTokens(_ context.Context, uid string) error {
	f.revoked = append(f.revoked, uid)
	return nil
}

type fixture struct {
	auth  *FirebaseAuth
	pw    *fakePassword
	ver   *fakeVerifier
	local *localstore.MemoryStore
	now   time.Time
}

func newFixture() *fixture {
	f := &fixture{now: t0, local: localstore.NewMemoryStore()}
	clock := func() time.Time { return f.now }
	issued := map[string]string{}
	f.pw = &fakePassword{users: map[string]string{"ann@example.com": "secret", "boss@example.com": "pw"}, now: clock, emailOf: issued}
	f.ver = &fakeVerifier{emailOf: issued, roles: map[string]string{"uid-ann@example.com": "", "uid-boss@example.com": "admin"}}
	f.auth = NewFirebaseAuth(f.pw, f.ver, f.local, nil)
	f.auth.now = clock
	return f
}

func creds(email, pw string) sessiondom.Credentials {
	return sessiondom.Credentials{Email: email, Password: pw}
}

func TestSignInPersistsSessionWithRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ev, err := f.auth.SignIn(ctx, creds("boss@example.com", "pw"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, sessiondom.EventSignedIn, ev.Kind)
	assert.True(t, ev.Session.IsAdmin())
	assert.Equal(t, "boss@example.com", ev.Session.Email)

	raw, ok, err := f.local.Get(ctx, localstate.KeyAuthSession)
	require.NoError(t, err)
	require.True(t, ok)
	var st storedSession
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, sessiondom.RoleAdmin, st.Role)
	assert.Equal(t, "uid-boss@example.com", st.UserID)

	// a new process sees the same session
	again := NewFirebaseAuth(f.pw, f.ver, f.local, nil)
	again.now = f.auth.now
	s, err := again.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, ev.Session, s)
}

func TestSignInWrongPassword(t *testing.T) {
	f := newFixture()
	_, err := f.auth.SignIn(context.Background(), creds("ann@example.com", "nope"))
	assert.ErrorIs(t, err, ErrInvalidLogin)

	_, ok, _ := f.local.Get(context.Background(), localstate.KeyAuthSession)
	assert.False(t, ok)
}

func TestSignUpDefaultsToUserRole(t *testing.T) {
	f := newFixture()
	f.ver.roles["uid-new@example.com"] = ""

	ev, err := f.auth.SignUp(context.Background(), creds("new@example.com", "pw1234"))
	require.NoError(t, err)
	assert.Equal(t, sessiondom.RoleUser, ev.Session.Role)
	assert.True(t, ev.Session.IsLoggedIn)

	_, err = f.auth.SignUp(context.Background(), creds("new@example.com", "pw1234"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCurrentUserWithoutSession(t *testing.T) {
	f := newFixture()
	s, err := f.auth.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sessiondom.Anonymous(), s)
}

func TestCurrentUserDropsRejectedOrMalformedSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.SignIn(ctx, creds("ann@example.com", "secret"))
	require.NoError(t, err)

	f.ver.reject = true
	s, err := f.auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsLoggedIn)
	_, ok, _ := f.local.Get(ctx, localstate.KeyAuthSession)
	assert.False(t, ok)

	require.NoError(t, f.local.Set(ctx, localstate.KeyAuthSession, []byte("{broken")))
	s, err = f.auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsLoggedIn)
}

func TestSignOutRevokesAndErases(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	in, err := f.auth.SignIn(ctx, creds("ann@example.com", "secret"))
	require.NoError(t, err)

	out, err := f.auth.SignOut(ctx)
	require.NoError(t, err)
	assert.Greater(t, out.Seq, in.Seq)
	assert.Equal(t, sessiondom.EventSignedOut, out.Kind)
	assert.False(t, out.Session.IsLoggedIn)
	assert.Equal(t, []string{"uid-ann@example.com"}, f.ver.revoked)

	_, ok, _ := f.local.Get(ctx, localstate.KeyAuthSession)
	assert.False(t, ok)
}

func TestCheckExpiryRefreshesAheadOfExpiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.SignIn(ctx, creds("ann@example.com", "secret"))
	require.NoError(t, err)

	_, ok := f.auth.checkExpiry(ctx)
	assert.False(t, ok, "fresh token needs no refresh")

	f.now = t0.Add(59 * time.Minute)
	ev, ok := f.auth.checkExpiry(ctx)
	require.True(t, ok)
	assert.Equal(t, sessiondom.EventTokenRefreshed, ev.Kind)
	assert.Equal(t, 1, f.pw.refreshes)

	// role granted meanwhile
	f.ver.roles["uid-ann@example.com"] = "admin"
	f.now = f.now.Add(59 * time.Minute)
	ev, ok = f.auth.checkExpiry(ctx)
	require.True(t, ok)
	assert.Equal(t, sessiondom.EventUserUpdated, ev.Kind)
	assert.True(t, ev.Session.IsAdmin())
}

func TestCheckExpirySignsOutWhenRefreshRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.SignIn(ctx, creds("ann@example.com", "secret"))
	require.NoError(t, err)

	f.pw.refreshErr = ErrSessionRevoked
	f.now = t0.Add(2 * time.Hour)
	ev, ok := f.auth.checkExpiry(ctx)
	require.True(t, ok)
	assert.Equal(t, sessiondom.EventSignedOut, ev.Kind)
	_, stored, _ := f.local.Get(ctx, localstate.KeyAuthSession)
	assert.False(t, stored)
}

func TestCheckExpiryKeepsSessionOnTransientFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.SignIn(ctx, creds("ann@example.com", "secret"))
	require.NoError(t, err)

	f.pw.refreshErr = errors.New("connection reset")
	f.now = t0.Add(59 * time.Minute)
	_, ok := f.auth.checkExpiry(ctx)
	assert.False(t, ok)
	_, stored, _ := f.local.Get(ctx, localstate.KeyAuthSession)
	assert.True(t, stored)

	f.now = t0.Add(61 * time.Minute)
	ev, ok := f.auth.checkExpiry(ctx)
	require.True(t, ok)
	assert.Equal(t, sessiondom.EventSignedOut, ev.Kind)
}

func TestWatchPublishesEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.auth.SignIn(ctx, creds("ann@example.com", "secret"))
	require.NoError(t, err)

	f.pw.refreshErr = ErrSessionRevoked
	f.now = t0.Add(2 * time.Hour)
	f.auth.CheckEvery = 5 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- f.auth.Watch(ctx) }()

	select {
	case ev := <-f.auth.Events():
		assert.Equal(t, sessiondom.EventSignedOut, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
