package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ayyooya/internal/domain/common"
)

var ErrBusy = errors.New("usecase: action already in progress")

// DefaultCallTimeout bounds one guarded action.
const DefaultCallTimeout = 20 * time.Second

// InFlight rejects a second concurrent run of the same action. Every run
// gets a deadline so the in-progress mark always clears.
type InFlight struct {
	mu      sync.Mutex
	active  map[string]struct{}
	timeout time.Duration
}

func NewInFlight(timeout time.Duration) *InFlight {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &InFlight{active: map[string]struct{}{}, timeout: timeout}
}

func (g *InFlight) Do(ctx context.Context, action string, fn func(context.Context) error) error {
	g.mu.Lock()
	if _, busy := g.active[action]; busy {
		g.mu.Unlock()
		return common.E(common.CodeBusy, action, ErrBusy)
	}
	g.active[action] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.active, action)
		g.mu.Unlock()
	}()

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(cctx)
}

// Busy reports whether action is running.
func (g *InFlight) Busy(action string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[action]
	return ok
}
