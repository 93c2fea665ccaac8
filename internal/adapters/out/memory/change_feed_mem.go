package memory

import (
	"context"
	"strings"
	"sync"

	orderdom "ayyooya/internal/domain/order"
)

// ChangeFeed fans order changes out to per-user subscribers. Slow
// subscribers miss changes; they only trigger re-fetches.
type ChangeFeed struct {
	mu     sync.Mutex
	subs   map[int]subscriber
	nextID int
}

type subscriber struct {
	userID string
	ch     chan orderdom.Change
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: map[int]subscriber{}}
}

func (f *ChangeFeed) Subscribe(ctx context.Context, userID string) (<-chan orderdom.Change, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, orderdom.ErrInvalidUserID
	}
	ch := make(chan orderdom.Change, 8)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = subscriber{userID: uid, ch: ch}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

func (f *ChangeFeed) publish(userID string, c orderdom.Change) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.userID != userID {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
}
