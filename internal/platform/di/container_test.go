package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ayyooya/internal/infra/config"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Backend.Driver = config.DriverMemory
	cfg.Local.Driver = config.LocalMemory
	return cfg
}

func TestNewContainerMemory(t *testing.T) {
	c, err := NewContainer(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Roles)
	assert.False(t, c.Sessions.Current().IsLoggedIn)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewContainerRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Backend.Driver = "mysql"
	_, err := NewContainer(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRunBackgroundStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, err := NewContainer(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.RunBackground(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("background loops did not stop")
	}
}
