package localstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayyooya/internal/domain/localstate"
)

// storeContract runs the behaviour every local store must share.
func storeContract(t *testing.T, s localstate.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, localstate.KeyCart)
	require.NoError(t, err)
	assert.False(t, ok, "absent key reports ok=false")

	require.NoError(t, s.Set(ctx, localstate.KeyCart, []byte(`[1]`)))
	v, ok, err := s.Get(ctx, localstate.KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1]`, string(v))

	require.NoError(t, s.Set(ctx, localstate.KeyCart, []byte(`[2]`)))
	v, _, err = s.Get(ctx, localstate.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(v))

	require.NoError(t, s.Delete(ctx, localstate.KeyCart))
	_, ok, err = s.Get(ctx, localstate.KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting twice is fine
	require.NoError(t, s.Delete(ctx, localstate.KeyCart))

	assert.ErrorIs(t, s.Set(ctx, " ", nil), localstate.ErrEmptyKey)
	_, _, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, localstate.ErrEmptyKey)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/profile.db"

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, localstate.KeyViewedTrackingIDs, []byte(`["7"]`)))
	require.NoError(t, s.Close())

	again, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer again.Close()

	v, ok, err := again.Get(ctx, localstate.KeyViewedTrackingIDs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["7"]`, string(v))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'x'

	v, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), mr.Addr())
	require.NoError(t, err)

	s := NewRedisStore(client, "kiosk-1")
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	storeContract(t, s)

	require.NoError(t, s.Set(context.Background(), localstate.KeyCart, []byte(`[]`)))
	assert.True(t, mr.Exists("kiosk-1:cart"), "keys are namespaced")
}
