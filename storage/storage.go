// Package storage defines the namespaced key/value store used by the
// collaborator tools. Keys live inside a namespace; a session selects its
// namespace at runtime and every read and write is scoped to it.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultNamespace is used when no namespace option is supplied.
const DefaultNamespace = "default"

// Storage is implemented by every backend.
type Storage interface {
	// Get retrieves the item stored under key.
	// Returns a nil Item if the key doesn't exist or has expired.
	// Returns error only for legitimate storage system failures.
	Get(ctx context.Context, key string, opts ...Option) (*Item, error)

	// Set stores data under key, replacing any previous value.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key string, opts ...Option) (bool, error)

	// Keys lists the live keys of the namespace in lexical order.
	Keys(ctx context.Context, opts ...Option) ([]string, error)

	// Close closes the storage backend and releases resources
	Close() error
}

// Item represents a stored piece of data with metadata
type Item struct {
	Data      []byte     // The stored data
	CreatedAt time.Time  // When the item was created
	ExpiresAt *time.Time // When the item expires (nil = no expiration)
}

// IsExpired checks if the item has expired
func (it *Item) IsExpired() bool {
	return it.ExpiresAt != nil && time.Now().After(*it.ExpiresAt)
}

// Option configures storage operations
type Option func(*Options)

// Options contains configuration for storage operations
type Options struct {
	Namespace string         // Defaults to DefaultNamespace
	TTL       *time.Duration // Optional: time-to-live for Set
}

// Apply folds opts into an Options value with defaults filled in.
func Apply(opts ...Option) Options {
	o := Options{Namespace: DefaultNamespace}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	return o
}

// WithNamespace scopes an operation to ns.
func WithNamespace(ns string) Option {
	return func(opts *Options) {
		opts.Namespace = ns
	}
}

// WithTTL sets a time-to-live for the stored data
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}

var (
	// ErrInvalidKey is returned for empty keys and for namespaces containing
	// the separator.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrInvalidTTL is returned for a non-positive TTL.
	ErrInvalidTTL = errors.New("storage: ttl must be positive")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage: closed")
)

// Separator joins namespace and key in backend keys.
const Separator = ":"

// Validate checks key and the resolved options.
func Validate(key string, o Options) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := ValidateNamespace(o.Namespace); err != nil {
		return err
	}
	if o.TTL != nil && *o.TTL <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

// ValidateNamespace rejects namespaces that would be ambiguous in backend keys.
func ValidateNamespace(ns string) error {
	if ns == "" || strings.Contains(ns, Separator) {
		return ErrInvalidKey
	}
	return nil
}
