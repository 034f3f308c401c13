// Package memory provides an in-memory implementation of the storage interface
// using github.com/hashicorp/golang-lru/v2 for bounded caching with TTL support.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ggoodman/mcp-stdio-go/storage"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSweepInterval = time.Minute

// Option configures a memory Storage.
type Option func(*Storage)

// WithSweepInterval sets how often expired items are evicted in the
// background. Expired items are never returned regardless of the interval.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Storage) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// Storage implements the storage.Storage interface using in-memory storage.
// When more than maxItems keys are stored, the least recently used is evicted.
type Storage struct {
	mu            sync.RWMutex
	cache         *lru.Cache[string, *storage.Item]
	sweepInterval time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    bool
}

// New creates a new in-memory storage implementation
func New(maxItems int, opts ...Option) (*Storage, error) {
	cache, err := lru.New[string, *storage.Item](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Storage{
		cache:         cache,
		sweepInterval: defaultSweepInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Start background cleanup of expired items
	go s.cleanupExpired()

	return s, nil
}

// Get retrieves the item stored under key within the namespace.
func (s *Storage) Get(ctx context.Context, key string, opts ...storage.Option) (*storage.Item, error) {
	options := storage.Apply(opts...)
	if err := storage.Validate(key, options); err != nil {
		return nil, err
	}
	storageKey := buildKey(options.Namespace, key)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrClosed
	}
	item, exists := s.cache.Get(storageKey)
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if item.IsExpired() {
		s.mu.Lock()
		s.cache.Remove(storageKey)
		s.mu.Unlock()
		return nil, nil
	}

	out := *item
	out.Data = append([]byte(nil), item.Data...)
	return &out, nil
}

// Set stores data under key within the namespace.
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	options := storage.Apply(opts...)
	if err := storage.Validate(key, options); err != nil {
		return err
	}
	storageKey := buildKey(options.Namespace, key)

	now := time.Now()
	item := &storage.Item{
		Data:      make([]byte, len(data)),
		CreatedAt: now,
	}
	copy(item.Data, data)

	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.cache.Add(storageKey, item)
	return nil
}

// Delete removes key from the namespace.
func (s *Storage) Delete(ctx context.Context, key string, opts ...storage.Option) (bool, error) {
	options := storage.Apply(opts...)
	if err := storage.Validate(key, options); err != nil {
		return false, err
	}
	storageKey := buildKey(options.Namespace, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, storage.ErrClosed
	}
	item, ok := s.cache.Peek(storageKey)
	if !ok {
		return false, nil
	}
	s.cache.Remove(storageKey)
	return !item.IsExpired(), nil
}

// Keys lists the live keys of the namespace.
func (s *Storage) Keys(ctx context.Context, opts ...storage.Option) ([]string, error) {
	options := storage.Apply(opts...)
	if err := storage.ValidateNamespace(options.Namespace); err != nil {
		return nil, err
	}
	prefix := buildKey(options.Namespace, "")

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	keys := []string{}
	for _, k := range s.cache.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if item, ok := s.cache.Peek(k); ok && !item.IsExpired() {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close stops the background sweep and drops all items.
func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.mu.Lock()
		s.closed = true
		s.cache.Purge()
		s.mu.Unlock()
	})
	return nil
}

// Len reports the number of stored items, including expired ones not yet
// swept.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Len()
}

func buildKey(namespace, key string) string {
	return "ns" + storage.Separator + namespace + storage.Separator + key
}

// cleanupExpired periodically evicts expired items until Close is called.
func (s *Storage) cleanupExpired() {
	defer close(s.done)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Storage) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, key := range s.cache.Keys() {
		if item, exists := s.cache.Peek(key); exists {
			if item.ExpiresAt != nil && now.After(*item.ExpiresAt) {
				s.cache.Remove(key)
			}
		}
	}
}

// Compile-time interface check
var _ storage.Storage = (*Storage)(nil)
