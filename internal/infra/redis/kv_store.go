package redis

import (
	"context"
	"errors"
	"time"

	"study-session/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// KVStore keeps values as plain Redis strings under a key prefix.
// Concurrent reads of the same key share one round trip.
type KVStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
}

// NewKVStore builds a store; a zero ttl keeps values until they are deleted.
func NewKVStore(client *redis.Client, prefix string, ttl time.Duration) *KVStore {
	return &KVStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	full := s.key(key)
	// The shared fetch is detached from any single caller's cancellation; each caller
	// stops waiting on its own context instead.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(full, func() (interface{}, error) {
		return s.client.Get(fetchCtx, full).Bytes()
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	result, err := res.Val, res.Err
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// Callers may share the slice returned by singleflight.
	return append([]byte(nil), result.([]byte)...), nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *KVStore) key(key string) string {
	return s.prefix + key
}
