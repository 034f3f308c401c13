// Package redis provides a Redis-based implementation of the storage.Storage
// interface. Each item is stored as a JSON envelope under
// <prefix><namespace>:<key>, with native key expiry for TTLs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ggoodman/mcp-stdio-go/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is applied when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "mcp:kv:"

// Config contains configuration options for the Redis storage
type Config struct {
	// Client is the Redis client instance
	Client redis.UniversalClient

	// KeyPrefix is the prefix for all Redis keys
	// Default: "mcp:kv:"
	KeyPrefix string
}

// Storage implements the storage.Storage interface using Redis
type Storage struct {
	client    redis.UniversalClient
	keyPrefix string
}

// storedItem represents the structure stored in Redis
type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a new Redis-based storage instance.
func New(config Config) (*Storage, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	return &Storage{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Dial connects to the Redis server at addr and verifies the connection.
func Dial(ctx context.Context, addr string, db int, keyPrefix string) (*Storage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return New(Config{Client: client, KeyPrefix: keyPrefix})
}

// Get retrieves the item stored under key within the namespace.
func (s *Storage) Get(ctx context.Context, key string, opts ...storage.Option) (*storage.Item, error) {
	options := storage.Apply(opts...)
	if err := storage.Validate(key, options); err != nil {
		return nil, err
	}
	redisKey := s.buildKey(options.Namespace, key)

	raw, err := s.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get key %s: %w", redisKey, wrapClosed(err))
	}

	var item storedItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored data: %w", err)
	}

	out := &storage.Item{
		Data:      item.Data,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}

	// Redis expiry is authoritative; this covers clock skew between writers.
	if out.IsExpired() {
		s.client.Del(ctx, redisKey)
		return nil, nil
	}

	return out, nil
}

// Set stores data under key within the namespace.
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	options := storage.Apply(opts...)
	if err := storage.Validate(key, options); err != nil {
		return err
	}
	redisKey := s.buildKey(options.Namespace, key)

	now := time.Now()
	item := storedItem{
		Data:      data,
		CreatedAt: now,
	}

	var redisTTL time.Duration
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
		redisTTL = *options.TTL
	}

	itemData, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal storage item: %w", err)
	}

	if err := s.client.Set(ctx, redisKey, itemData, redisTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", redisKey, wrapClosed(err))
	}
	return nil
}

// Delete removes key from the namespace.
func (s *Storage) Delete(ctx context.Context, key string, opts ...storage.Option) (bool, error) {
	options := storage.Apply(opts...)
	if err := storage.Validate(key, options); err != nil {
		return false, err
	}
	redisKey := s.buildKey(options.Namespace, key)

	n, err := s.client.Del(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", redisKey, wrapClosed(err))
	}
	return n > 0, nil
}

// Keys lists the keys of the namespace using SCAN.
func (s *Storage) Keys(ctx context.Context, opts ...storage.Option) ([]string, error) {
	options := storage.Apply(opts...)
	if err := storage.ValidateNamespace(options.Namespace); err != nil {
		return nil, err
	}
	prefix := s.buildKey(options.Namespace, "")

	found, err := s.scanKeys(ctx, escapeGlob(prefix)+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan keys for namespace %s: %w", options.Namespace, wrapClosed(err))
	}

	keys := make([]string, 0, len(found))
	for _, k := range found {
		keys = append(keys, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

// Client returns the underlying client so other Redis-backed components can
// share the connection pool.
func (s *Storage) Client() redis.UniversalClient {
	return s.client
}

// Close closes the storage backend and releases resources
func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) buildKey(namespace, key string) string {
	return s.keyPrefix + namespace + storage.Separator + key
}

// scanKeys uses Redis SCAN to find all keys matching a pattern
func (s *Storage) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func wrapClosed(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %w", storage.ErrClosed, err)
	}
	return err
}

// Compile-time interface check
var _ storage.Storage = (*Storage)(nil)
