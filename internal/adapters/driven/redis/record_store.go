package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/userstore/internal/core/domain"
	"github.com/custodia-labs/userstore/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.RecordStore = (*RecordStore)(nil)

// scanBatchSize bounds how many keys a single SCAN round trip returns,
// so the store is never blocked by one huge listing call.
const scanBatchSize = 100

// Config holds Redis connection settings
type Config struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for url
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Connect creates a Redis client with bounded timeouts and verifies
// connectivity. A call that exceeds a timeout surfaces as a store
// failure to the caller; nothing blocks indefinitely.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// RecordStore implements driven.RecordStore on a Redis key space.
// No operation retries internally; transient backend errors propagate.
type RecordStore struct {
	client *redis.Client
}

// NewRecordStore creates a new Redis-backed RecordStore
func NewRecordStore(client *redis.Client) *RecordStore {
	return &RecordStore{client: client}
}

// Get retrieves the raw value at key
func (s *RecordStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Set writes value at key, overwriting any existing value
func (s *RecordStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present
func (s *RecordStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes key, reporting whether a key was actually removed
func (s *RecordStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return n > 0, nil
}

// Increment atomically increments the counter at key and returns the
// post-increment value. Redis initializes a missing key to 0 first.
func (s *RecordStore) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return n, nil
}

// Scan streams keys matching the glob pattern to fn using a SCAN
// cursor, batch by batch
func (s *RecordStore) Scan(ctx context.Context, match string, fn func(key string) error) error {
	iter := s.client.Scan(ctx, 0, match, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", match, err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
