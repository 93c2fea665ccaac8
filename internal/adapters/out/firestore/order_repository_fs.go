// internal/adapters/out/firestore/order_repository_fs.go
package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	orderdom "ayyooya/internal/domain/order"
)

const ordersCollection = "orders"

// OrderRepositoryFS is the Firestore implementation of order.Repository.
type OrderRepositoryFS struct {
	Client *firestore.Client
}

func NewOrderRepositoryFS(client *firestore.Client) *OrderRepositoryFS {
	return &OrderRepositoryFS{Client: client}
}

func (r *OrderRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(ordersCollection)
}

func (r *OrderRepositoryFS) GetByID(ctx context.Context, id string) (orderdom.Order, error) {
	if r == nil || r.Client == nil {
		return orderdom.Order{}, errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return orderdom.Order{}, orderdom.ErrNotFound
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return orderdom.Order{}, orderdom.ErrNotFound
		}
		return orderdom.Order{}, err
	}
	return docToOrder(snap)
}

// List pushes the user filter down and applies the rest in memory.
func (r *OrderRepositoryFS) List(ctx context.Context, f orderdom.Filter) ([]orderdom.Order, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}

	q := r.col().Query
	if uid := strings.TrimSpace(f.UserID); uid != "" {
		q = q.Where("userId", "==", uid)
	}

	it := q.Documents(ctx)
	defer it.Stop()

	out := []orderdom.Order{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		o, err := docToOrder(doc)
		if err != nil {
			return nil, err
		}
		if f.Match(o) {
			out = append(out, o)
		}
	}
	orderdom.SortNewestFirst(out)
	return out, nil
}

func (r *OrderRepositoryFS) Create(ctx context.Context, o orderdom.Order) (orderdom.Order, error) {
	if r == nil || r.Client == nil {
		return orderdom.Order{}, errNilClient
	}
	if strings.TrimSpace(o.ID) == "" {
		return orderdom.Order{}, orderdom.ErrInvalidID
	}
	if _, err := r.col().Doc(o.ID).Create(ctx, orderToDoc(o)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return orderdom.Order{}, orderdom.ErrConflict
		}
		return orderdom.Order{}, err
	}
	return o, nil
}

func (r *OrderRepositoryFS) Save(ctx context.Context, o orderdom.Order, from orderdom.Status) (orderdom.Order, error) {
	if r == nil || r.Client == nil {
		return orderdom.Order{}, errNilClient
	}
	if strings.TrimSpace(o.ID) == "" {
		return orderdom.Order{}, orderdom.ErrNotFound
	}

	var tracking any
	if o.TrackingNumber != nil {
		tracking = *o.TrackingNumber
	}
	ref := r.col().Doc(o.ID)
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return orderdom.ErrNotFound
			}
			return err
		}
		if snap == nil || !snap.Exists() {
			return orderdom.ErrNotFound
		}
		if err := checkStoredStatus(snap.Data(), from); err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(o.Status)},
			{Path: "trackingNumber", Value: tracking},
			{Path: "updatedAt", Value: o.UpdatedAt},
		})
	})
	if err != nil {
		return orderdom.Order{}, err
	}
	return o, nil
}

// checkStoredStatus returns ErrConflict unless the document's status is from.
func checkStoredStatus(data map[string]any, from orderdom.Status) error {
	if got := orderdom.ParseStatus(asString(data["status"])); got != from {
		return fmt.Errorf("%w: order is %s", orderdom.ErrConflict, got)
	}
	return nil
}

func (r *OrderRepositoryFS) Delete(ctx context.Context, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return orderdom.ErrNotFound
	}
	if _, err := r.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return orderdom.ErrNotFound
		}
		return err
	}
	return nil
}
