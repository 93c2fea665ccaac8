package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayyooya/internal/domain/common"
)

func TestInFlightRejectsDuplicate(t *testing.T) {
	g := NewInFlight(time.Second)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- g.Do(context.Background(), "checkout", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := g.Do(context.Background(), "checkout", func(context.Context) error { return nil })
	assert.Equal(t, common.CodeBusy, common.CodeOf(err))

	// other actions are independent
	require.NoError(t, g.Do(context.Background(), "confirm:o1", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, g.Busy("checkout"))
}

func TestInFlightClearsAfterTimeout(t *testing.T) {
	g := NewInFlight(10 * time.Millisecond)

	err := g.Do(context.Background(), "checkout", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, g.Busy("checkout"))
}
