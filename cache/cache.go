// Package cache provides the content-addressed, TTL-based store the query
// engine wraps around statement execution. Caching is a performance
// optimization only: every failure path falls through to direct execution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Store is the cache port. Keys are namespaced by report type so whole
// namespaces can be dropped when underlying data changes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	InvalidateType(ctx context.Context, reportType string) error
	InvalidateAll(ctx context.Context) error
}

// KeyFor derives the cache key for a normalized request payload:
// "<reportType>:<16 hex chars of sha256(payload)>".
func KeyFor(reportType string, normalized []byte) string {
	sum := sha256.Sum256(normalized)
	return reportType + ":" + hex.EncodeToString(sum[:])[:16]
}

// TypeOf extracts the report-type namespace from a derived key.
func TypeOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Loader computes a value on cache miss.
type Loader func(ctx context.Context) ([]byte, error)

type flightCall struct {
	done   chan struct{}
	value  []byte
	cached bool
	err    error
}

// Flights deduplicates concurrent computes of the same key. Each engine owns
// its own instance, so independent caches in one process never share slots.
type Flights struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

func NewFlights() *Flights {
	return &Flights{calls: map[string]*flightCall{}}
}

// GetOrCompute returns the cached value for key, or runs fn once and stores
// the result. Concurrent misses on the same key share a single computation,
// and every waiter gets the leader's cached flag, so a value computed fresh
// this round is reported as fresh to all of them. A failed or cancelled
// compute is never stored, so partial results cannot poison the cache.
func (f *Flights) GetOrCompute(ctx context.Context, s Store, key string, ttl time.Duration, fn Loader) ([]byte, bool, error) {
	if s == nil {
		v, err := fn(ctx)
		return v, false, err
	}
	if v, ok := s.Get(ctx, key); ok {
		return v, true, nil
	}

	f.mu.Lock()
	if call, ok := f.calls[key]; ok {
		f.mu.Unlock()
		select {
		case <-call.done:
			return call.value, call.cached, call.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	call := &flightCall{done: make(chan struct{})}
	f.calls[key] = call
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.calls, key)
		f.mu.Unlock()
		close(call.done)
	}()

	// Another goroutine may have filled the entry between Get and flight
	// registration.
	if v, ok := s.Get(ctx, key); ok {
		call.value, call.cached = v, true
		return v, true, nil
	}

	v, err := fn(ctx)
	if err != nil {
		call.err = err
		return nil, false, err
	}
	call.value = v
	// Best effort: a store failure must not fail the request.
	_ = s.Set(ctx, key, v, ttl)
	return v, false, nil
}
