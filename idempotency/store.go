package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store maps client-supplied idempotency keys to created order ids, so a
// blind retry of POST /orders cannot create a duplicate.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a Store. Keys expire after ttl.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// NewRedisClient initializes a Redis client from a URL and verifies
// connectivity.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// Lookup returns the order id previously stored under key.
func (s *Store) Lookup(ctx context.Context, key string) (orderID string, found bool, err error) {
	val, err := s.rdb.Get(ctx, keyName(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Save records the order id for key. SETNX keeps the first writer's order id
// if two retries race.
func (s *Store) Save(ctx context.Context, key, orderID string) error {
	return s.rdb.SetNX(ctx, keyName(key), orderID, s.ttl).Err()
}

func keyName(key string) string {
	return "orders:idempotency:" + key
}
