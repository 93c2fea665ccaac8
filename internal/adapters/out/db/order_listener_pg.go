package db

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	orderdom "ayyooya/internal/domain/order"
)

// OrderChangesChannel is the NOTIFY channel fed by the orders trigger.
const OrderChangesChannel = "order_changes"

// OrderChangeFeedPG streams order changes through LISTEN/NOTIFY. Every
// subscription owns one listener connection.
type OrderChangeFeedPG struct {
	DSN  string
	Log  *zap.Logger
	Ping time.Duration
}

func NewOrderChangeFeedPG(dsn string, log *zap.Logger) *OrderChangeFeedPG {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderChangeFeedPG{DSN: dsn, Log: log.Named("order_feed_pg"), Ping: 90 * time.Second}
}

type notifyPayload struct {
	Op     string `json:"op"`
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

func (f *OrderChangeFeedPG) Subscribe(ctx context.Context, userID string) (<-chan orderdom.Change, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, orderdom.ErrInvalidUserID
	}

	log := f.Log.With(zap.String("user_id", uid))
	listener := pq.NewListener(f.DSN, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(OrderChangesChannel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	out := make(chan orderdom.Change, 16)
	go func() {
		defer close(out)
		defer listener.Close()

		ping := time.NewTicker(f.Ping)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				go func() { _ = listener.Ping() }()
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				c, mine := decodeNotification(n, uid)
				if !mine {
					continue
				}
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

// decodeNotification maps a NOTIFY payload to a Change for uid. A nil
// notification means the connection was re-established and events may
// have been missed.
func decodeNotification(n *pq.Notification, uid string) (orderdom.Change, bool) {
	if n == nil {
		return orderdom.Change{Kind: orderdom.ChangeResync}, true
	}
	var p notifyPayload
	if err := json.Unmarshal([]byte(n.Extra), &p); err != nil {
		return orderdom.Change{Kind: orderdom.ChangeResync}, true
	}
	if p.UserID != uid {
		return orderdom.Change{}, false
	}
	kind := orderdom.ChangeUpdate
	switch strings.ToLower(p.Op) {
	case "insert":
		kind = orderdom.ChangeInsert
	case "delete":
		kind = orderdom.ChangeDelete
	}
	return orderdom.Change{Kind: kind, OrderID: p.ID}, true
}
