// Package kv is the ordered key/value substrate behind the memory, LevelDB and
// Fabric deployments of the registry. Domain repositories encode their entities
// as JSON under prefixed keys and run inside overlay transactions.
package kv

import (
	"context"
	"net/url"
	"strings"
)

// Write is one buffered mutation.
type Write struct {
	Key    string
	Value  []byte
	Delete bool
}

// Store is an ordered key/value store.
type Store interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Scan visits keys with the given prefix in ascending order.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
	// Apply writes the batch atomically.
	Apply(ctx context.Context, writes []Write) error
}

// Put is a convenience for a single-key Apply.
func Put(ctx context.Context, s Store, key string, value []byte) error {
	return s.Apply(ctx, []Write{{Key: key, Value: value}})
}

// Key joins path-escaped parts with "/", so a principal containing "/" cannot
// collide with another principal's key range.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}

// Prefix returns the scan prefix covering every key built from parts plus at
// least one more component.
func Prefix(parts ...string) string {
	return Key(parts...) + "/"
}
