package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleDefaultsToUser(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleUser, ParseRole(nil))
	assert.Equal(t, RoleUser, ParseRole("staff"))
	assert.Equal(t, RoleUser, ParseRole(42))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Anonymous(), Session{IsLoggedIn: true}.Normalize())
	assert.Equal(t, Anonymous(), Session{UserID: "u1"}.Normalize())

	s := Session{UserID: "u1", IsLoggedIn: true}.Normalize()
	assert.Equal(t, RoleUser, s.Role)
	assert.False(t, s.IsAdmin())
	assert.True(t, SignedIn("u1", "", RoleAdmin).IsAdmin())
}

func TestNewRegistration(t *testing.T) {
	_, err := NewRegistration("a@b.c", "pw1", "pw2")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = NewRegistration(" ", "pw", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	r, err := NewRegistration(" a@b.c ", "pw", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", r.Email)
}
