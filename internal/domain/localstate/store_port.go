// Package localstate describes the shopper's on-device persistent state.
package localstate

import (
	"context"
	"errors"
)

// Keys of the persisted layout.
const (
	KeyCart              = "cart"
	KeyViewedTrackingIDs = "viewed_tracking_ids"
	KeyAuthSession       = "auth_session"
)

// Store is a durable key-value store scoped to one device profile.
// Get of an absent key returns ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrEmptyKey = errors.New("localstate: empty key")
