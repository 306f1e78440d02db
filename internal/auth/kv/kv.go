// Package kv abstracts the shared key-value store the auth service keeps its
// cross-instance state in: token blacklist, active refresh tokens,
// verification/reset fingerprints and rate-limit counters. Any backend with
// get/set-with-ttl/increment/delete/expire semantics satisfies the contract;
// the production driver is Redis.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing key. Drivers translate their own "nil reply"
// sentinel into this so callers never import driver packages.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value capability used by the revocation store and the
// rate limiter. All operations go to the shared external store; nothing is
// cached in process, so state is visible across service replicas.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value under key with a TTL, unconditionally overwriting any
	// prior value. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Incr atomically increments the counter at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// Expire sets the TTL on an existing key. Idempotent.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining lifetime of key, or zero when the key is
	// absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping verifies the store connection is alive.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}
