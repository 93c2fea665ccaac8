package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"ayyooya/internal/domain/common"
)

// RetryPolicy retries idempotent backend calls, pacing attempts with a
// token bucket so a burst of failures does not hammer the backend.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultRetryPolicy is used for marking products sold.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Interval: 300 * time.Millisecond}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	limit := rate.Inf
	if p.Interval > 0 {
		limit = rate.Every(p.Interval)
	}
	lim := rate.NewLimiter(limit, 1)

	var err error
	for i := 0; i < attempts; i++ {
		if werr := lim.Wait(ctx); werr != nil {
			if err == nil {
				err = werr
			}
			return err
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	switch common.CodeOf(err) {
	case common.CodeValidation, common.CodeNotFound, common.CodeConflict,
		common.CodeForbidden, common.CodeUnauthenticated:
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
