package pairstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each pair's turns in a Redis list. RPUSH preserves append
// order, so the last element is always the most recent turn.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection. ttl bounds
// how long an idle pair survives; zero means no expiry.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func pairKey(pairID string) string {
	return fmt.Sprintf("pair:%s", pairID)
}

func (r *RedisStore) Append(ctx context.Context, turn Turn) error {
	if turn.PairID == "" {
		return fmt.Errorf("pairstore: empty pair id")
	}
	if turn.RecordedAt.IsZero() {
		turn.RecordedAt = time.Now().UTC()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := pairKey(turn.PairID)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("redis RPUSH failed: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis EXPIRE failed: %w", err)
		}
	}
	return nil
}

func (r *RedisStore) Latest(ctx context.Context, pairID string) (*Turn, error) {
	items, err := r.client.LRange(ctx, pairKey(pairID), -1, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE failed: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	var turn Turn
	if err := json.Unmarshal([]byte(items[0]), &turn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
	}
	return &turn, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
