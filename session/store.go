package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable wraps every backend failure. Callers surface it as a
	// temporary server-side fault, never as an invalid credential.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrRecordCorrupt is returned when a stored record cannot be decoded.
	ErrRecordCorrupt = errors.New("session record corrupt")
	// ErrInvalidTTL is returned by Put for a non-positive ttl.
	ErrInvalidTTL = errors.New("session ttl must be > 0")
)

// Store persists session records under opaque keys with a mandatory per-entry
// TTL. Implementations must be safe for concurrent use.
//
// Get reports absence as (Record{}, false, nil). It never extends the TTL.
// Delete of an absent key succeeds. Put overwrites unconditionally.
type Store interface {
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, key string) (Record, bool, error)
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}
