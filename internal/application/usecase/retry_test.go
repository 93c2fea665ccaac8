package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ayyooya/internal/domain/common"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := RetryPolicy{Attempts: 5}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := RetryPolicy{Attempts: 2}.Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	calls := 0
	err := RetryPolicy{Attempts: 5}.Do(context.Background(), func(context.Context) error {
		calls++
		return common.E(common.CodeValidation, "x", errors.New("bad"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPacesAttempts(t *testing.T) {
	start := time.Now()
	_ = RetryPolicy{Attempts: 3, Interval: 20 * time.Millisecond}.Do(context.Background(), func(context.Context) error {
		return errBoom
	})
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryPolicy{Attempts: 5, Interval: time.Hour}.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}
