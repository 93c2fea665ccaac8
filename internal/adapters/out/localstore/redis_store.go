package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"ayyooya/internal/domain/localstate"
)

// RedisStore keeps a device profile in Redis under "<namespace>:<key>",
// for kiosks that share one profile across processes.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// ConnectRedis accepts either a redis:// URL or host:port.
func ConnectRedis(_ context.Context, redisURL string) (*redis.Client, error) {
	u := strings.TrimSpace(redisURL)
	if strings.HasPrefix(u, "redis://") || strings.HasPrefix(u, "rediss://") {
		opt, err := redis.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: u}), nil
}

func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	ns := strings.TrimSpace(namespace)
	if ns == "" {
		ns = "ayyooya:default"
	}
	return &RedisStore{client: client, namespace: ns}
}

func (r *RedisStore) k(key string) string { return r.namespace + ":" + key }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, localstate.ErrEmptyKey
	}
	v, err := r.client.Get(ctx, r.k(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return localstate.ErrEmptyKey
	}
	return r.client.Set(ctx, r.k(key), value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return localstate.ErrEmptyKey
	}
	return r.client.Del(ctx, r.k(key)).Err()
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
