package order

import (
	"context"
	"errors"
	"strings"
)

// Filter selects orders. Zero values match everything.
type Filter struct {
	UserID   string
	Statuses []Status

	// nil = all, true = only orders with a tracking number
	HasTracking *bool
}

// Match reports whether o satisfies f. Adapters that cannot push a
// condition down to the backend filter with it in memory.
func (f Filter) Match(o Order) bool {
	if uid := strings.TrimSpace(f.UserID); uid != "" && o.UserID != uid {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if o.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.HasTracking != nil && o.HasTracking() != *f.HasTracking {
		return false
	}
	return true
}

// Repository is the orders table.
type Repository interface {
	GetByID(ctx context.Context, id string) (Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	Create(ctx context.Context, o Order) (Order, error)
	// Save persists the mutable fields (status, tracking number, updatedAt)
	// only while the stored status is still from. A row that moved on
	// returns ErrConflict.
	Save(ctx context.Context, o Order, from Status) (Order, error)
	Delete(ctx context.Context, id string) error
}

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
	// ChangeResync means the feed may have missed events.
	ChangeResync ChangeKind = "resync"
)

// Change is a push notification from the orders table. It carries no
// payload worth trusting; consumers re-fetch.
type Change struct {
	Kind    ChangeKind
	OrderID string
}

// ChangeFeed streams changes to one user's orders. The channel is closed
// when ctx is done or the underlying subscription ends.
type ChangeFeed interface {
	Subscribe(ctx context.Context, userID string) (<-chan Change, error)
}

var (
	ErrNotFound = errors.New("order: not found")
	ErrConflict = errors.New("order: conflict")
)
