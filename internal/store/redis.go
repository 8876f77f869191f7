package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "stylist:history:"

// RedisStore shares conversation windows between gateway processes. Each
// address is a Redis list of JSON-encoded turns, oldest first.
type RedisStore struct {
	client *redis.Client
	window int
}

func NewRedisStore(ctx context.Context, opts *redis.Options, window int) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client, window: normalizeWindow(window)}, nil
}

func (s *RedisStore) key(addr string) string {
	return redisKeyPrefix + addr
}

func (s *RedisStore) WindowSize() int { return s.window }

// Append pushes and trims inside MULTI/EXEC so readers never see an untrimmed list.
func (s *RedisStore) Append(ctx context.Context, addr string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		values = append(values, b)
	}

	key := s.key(addr)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.window), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turns: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, addr string, n int) ([]Turn, error) {
	if n <= 0 {
		return []Turn{}, nil
	}
	raw, err := s.client.LRange(ctx, s.key(addr), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
