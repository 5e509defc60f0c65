package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reconciler runs a refetch some time after a save, never in the same
// call. While a media player bound to the scene is active the refetch is
// held back until the player goes idle.
type Reconciler struct {
	delay   time.Duration
	timeout time.Duration
	refetch func(ctx context.Context) error
	logger  *slog.Logger

	mu           sync.Mutex
	timer        *time.Timer
	gen          uint64
	playerActive bool
	deferred     bool
	closed       bool
	inflight     sync.WaitGroup
}

func NewReconciler(delay time.Duration, refetch func(ctx context.Context) error, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		delay:   delay,
		timeout: 30 * time.Second,
		refetch: refetch,
		logger:  logger,
	}
}

// Schedule arms the refetch timer. Repeated calls within the delay
// collapse into one refetch.
func (r *Reconciler) Schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.playerActive {
		r.deferred = true
		return
	}
	r.armLocked()
}

func (r *Reconciler) armLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(r.delay, func() { r.fire(gen) })
}

// fire runs the refetch armed as generation gen. A timer that was
// replaced after it started firing finds a newer generation and does
// nothing.
func (r *Reconciler) fire(gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.playerActive {
		r.deferred = true
		r.mu.Unlock()
		return
	}
	r.inflight.Add(1)
	r.mu.Unlock()
	defer r.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.refetch(ctx); err != nil {
		r.logger.Error("marker refetch failed", "error", err)
	}
}

// SetPlayerActive reports whether the bound media player is playing. A
// refetch requested while it played is armed once it stops.
func (r *Reconciler) SetPlayerActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.playerActive = active
	if r.closed {
		return
	}
	if active {
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
			r.deferred = true
		}
		return
	}
	if r.deferred {
		r.deferred = false
		r.armLocked()
	}
}

// Pending reports whether a refetch is armed or deferred.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil || r.deferred
}

func (r *Reconciler) PlayerActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerActive
}

// Close cancels any armed refetch and waits for a running one.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.deferred = false
	r.mu.Unlock()
	r.inflight.Wait()
}
