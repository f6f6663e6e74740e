package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckpointStore persists the index of the last fully processed scan
// segment, keyed by a caller-supplied checkpoint key. A resumed run reads
// the index back and skips every segment at or below it.
type CheckpointStore struct {
	client *Client
	ttl    time.Duration
}

// NewCheckpointStore creates a checkpoint store. ttl bounds how long a stale
// checkpoint can linger after an interrupted run.
func NewCheckpointStore(client *Client, ttl time.Duration) *CheckpointStore {
	return &CheckpointStore{client: client, ttl: ttl}
}

func (s *CheckpointStore) redisKey(key string) string {
	return fmt.Sprintf("sieve:scan:checkpoint:%s", key)
}

// Get returns the last completed segment index for key, or -1 when no
// checkpoint exists (including when Redis is disabled).
func (s *CheckpointStore) Get(ctx context.Context, key string) (int, error) {
	if !s.client.Enabled() {
		return -1, nil
	}

	val, err := s.client.Redis().Get(ctx, s.redisKey(key)).Int()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("get checkpoint %s: %w", key, err)
	}
	return val, nil
}

// Set records segment as the last fully processed segment for key.
func (s *CheckpointStore) Set(ctx context.Context, key string, segment int) error {
	if !s.client.Enabled() {
		return nil
	}

	if err := s.client.Redis().Set(ctx, s.redisKey(key), segment, s.ttl).Err(); err != nil {
		return fmt.Errorf("set checkpoint %s: %w", key, err)
	}
	return nil
}

// Clear removes the checkpoint for key. Called after a run completes so the
// next invocation starts from the first segment.
func (s *CheckpointStore) Clear(ctx context.Context, key string) error {
	if !s.client.Enabled() {
		return nil
	}

	if err := s.client.Redis().Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("clear checkpoint %s: %w", key, err)
	}
	return nil
}
