package firestore

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	orderdom "ayyooya/internal/domain/order"
)

// OrderChangeFeedFS streams changes to a user's orders from Firestore query
// snapshots.
type OrderChangeFeedFS struct {
	Client *firestore.Client
	Log    *zap.Logger
}

func NewOrderChangeFeedFS(client *firestore.Client, log *zap.Logger) *OrderChangeFeedFS {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderChangeFeedFS{Client: client, Log: log.Named("order_feed_fs")}
}

func (f *OrderChangeFeedFS) Subscribe(ctx context.Context, userID string) (<-chan orderdom.Change, error) {
	if f == nil || f.Client == nil {
		return nil, errNilClient
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, orderdom.ErrInvalidUserID
	}

	it := f.Client.Collection(ordersCollection).Where("userId", "==", uid).Snapshots(ctx)
	out := make(chan orderdom.Change, 16)

	go func() {
		defer close(out)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					f.Log.Warn("snapshot stream ended", zap.String("user_id", uid), zap.Error(err))
				}
				return
			}
			for _, ch := range snap.Changes {
				c := orderdom.Change{Kind: changeKind(ch.Kind), OrderID: ch.Doc.Ref.ID}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func changeKind(k firestore.DocumentChangeKind) orderdom.ChangeKind {
	switch k {
	case firestore.DocumentAdded:
		return orderdom.ChangeInsert
	case firestore.DocumentRemoved:
		return orderdom.ChangeDelete
	default:
		return orderdom.ChangeUpdate
	}
}
