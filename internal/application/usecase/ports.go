// internal/application/usecase/ports.go
package usecase

import (
	"context"

	"ayyooya/internal/domain/common"
	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
	sessiondom "ayyooya/internal/domain/session"
)

// SessionSource is the read side of the session watcher.
type SessionSource interface {
	Current() sessiondom.Session
	OnChange(cb func(sessiondom.Session)) (cancel func())
}

// CartClearer is what sign-out needs from the cart.
type CartClearer interface {
	Clear(ctx context.Context) error
}

// TrackingMailer tells the customer that a tracking number was attached.
type TrackingMailer interface {
	NotifyTrackingAttached(ctx context.Context, o orderdom.Order) error
}

// ProductMarker marks a product as sold. Must be idempotent.
type ProductMarker interface {
	MarkSold(ctx context.Context, productID string) error
}

// ProductLookup reads one product.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (productdom.Product, error)
}

func requireSession(src SessionSource, op string) (sessiondom.Session, error) {
	s := src.Current()
	if !s.IsLoggedIn {
		return s, common.E(common.CodeUnauthenticated, op, sessiondom.ErrNotSignedIn)
	}
	return s, nil
}

func requireAdmin(src SessionSource, op string) (sessiondom.Session, error) {
	s, err := requireSession(src, op)
	if err != nil {
		return s, err
	}
	if !s.IsAdmin() {
		return s, common.E(common.CodeForbidden, op, sessiondom.ErrNotAdmin)
	}
	return s, nil
}
