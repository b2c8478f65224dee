// Package memo holds a periodically refreshed value shared by concurrent readers.
package memo

import (
	"context"
	"sync"
	"time"
)

type Loader[T any] func(ctx context.Context) (T, error)

type Value[T any] struct {
	load Loader[T]
	ttl  time.Duration
	now  func() time.Time

	mu          sync.Mutex
	value       T
	lastRefresh time.Time
	loaded      bool
}

func New[T any](ttl time.Duration, load Loader[T]) *Value[T] {
	return &Value[T]{
		load: load,
		ttl:  ttl,
		now:  time.Now,
	}
}

// WithClock replaces the time source.
func (v *Value[T]) WithClock(now func() time.Time) *Value[T] {
	v.now = now

	return v
}

// Get returns the cached value, refreshing it first when it is older than the
// TTL. Refreshes are serialized. A failed refresh keeps serving the previous
// value and reports the error alongside it.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.loaded && v.now().Sub(v.lastRefresh) < v.ttl {
		return v.value, nil
	}

	value, err := v.load(ctx)
	if err != nil {
		return v.value, err
	}

	v.value = value
	v.lastRefresh = v.now()
	v.loaded = true

	return v.value, nil
}

func (v *Value[T]) LastRefresh() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lastRefresh
}
