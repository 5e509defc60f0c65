// Package session keeps short-lived server-side objects, such as edit
// sessions and video walls, keyed by id and expired after a period of
// inactivity.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Closer is implemented by values that hold timers or goroutines.
type Closer interface {
	Close()
}

type item[T any] struct {
	value    T
	lastUsed time.Time
}

type Registry[T any] struct {
	name   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	items map[string]*item[T]
}

func NewRegistry[T any](name string, ttl time.Duration, logger *slog.Logger) *Registry[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry[T]{
		name:   name,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		items:  make(map[string]*item[T]),
	}
}

func (r *Registry[T]) Put(id string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = &item[T]{value: v, lastUsed: r.now()}
}

// Get returns the value and marks it as used.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	it.lastUsed = r.now()
	return it.value, true
}

// Remove deletes and closes the value.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	it, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()

	if ok {
		closeValue(it.value)
	}
	return ok
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep removes every value idle for longer than the TTL.
func (r *Registry[T]) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []T
	for id, it := range r.items {
		if it.lastUsed.Before(cutoff) {
			expired = append(expired, it.value)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		closeValue(v)
	}
	if len(expired) > 0 {
		r.logger.Info("expired idle entries", "registry", r.name, "count", len(expired))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every value.
func (r *Registry[T]) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry[T]) closeAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*item[T])
	r.mu.Unlock()

	for _, it := range items {
		closeValue(it.value)
	}
}

func closeValue[T any](v T) {
	if c, ok := any(v).(Closer); ok {
		c.Close()
	}
}
