// Package kv provides the atomic key-value store used for ephemeral
// cross-process state: pending-response markers, processing locks, daily
// rate-limit counters and the response cache.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the atomic contract the coalescing and locking logic depends on.
// Every operation must be safe under concurrent access from multiple
// processes; SetNX and Incr must be atomic, and CompareAndDelete must only
// delete when the stored value still equals the expected one.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value only if key is absent. Returns true when the value
	// was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndDelete removes key only if its value equals expected.
	// Returns true when the key was deleted.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)

	// Incr atomically increments the integer at key and returns the new
	// value. The TTL is applied when the increment creates the key.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
