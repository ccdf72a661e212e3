package occupancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking/internal/slots"
)

const (
	redisKeyPrefix = "occupied:"
	scanBatch      = 100
)

// RedisStore shares cached occupancy across instances. Entries live until
// invalidated unless a TTL is configured.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore panics on a nil client. ttl <= 0 means no expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("occupancy: redis client cannot be nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]slots.TimeSlot, bool, error) {
	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("occupancy: redis get: %w", err)
	}
	var out []slots.TimeSlot
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("occupancy: decode cached entry: %w", err)
	}
	if out == nil {
		out = []slots.TimeSlot{}
	}
	return out, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []slots.TimeSlot) error {
	if value == nil {
		value = []slots.TimeSlot{}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("occupancy: encode entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("occupancy: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("occupancy: redis del: %w", err)
	}
	return nil
}

// Clear removes every key under the occupancy prefix using SCAN so it never
// blocks the server with KEYS.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.scan(ctx, func(keys []string) error {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("occupancy: redis clear: %w", err)
		}
		return nil
	})
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (s *RedisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("occupancy: redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
