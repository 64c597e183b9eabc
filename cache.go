package funkyorm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache is the optional interface for caching finalized-command results
// (SPEC_FULL.md §D.3), adapted from the teacher's cache.go. Caching is
// orthogonal to translation: the Query Facade never consults the cache while
// building SQL, only around the point it would otherwise call the driver for
// a read-only terminal call.
type Cache interface {
	// Get retrieves a value from the cache. Returns nil, nil if the key
	// doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL. If ttl is 0, the
	// value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a cached result by the finalized SQL text and
// parameter values that produced it.
type CacheKey struct {
	SQL    string
	Params []any
}

// String returns a stable string key, hashing the SQL text and parameter
// values together so distinct parameter bindings of the same statement
// shape never collide.
func (k CacheKey) String() string {
	h := sha256.New()
	h.Write([]byte(k.SQL))
	for _, p := range k.Params {
		fmt.Fprintf(h, "|%v", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
