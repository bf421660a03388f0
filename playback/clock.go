// Package playback supplies the time source that animates time-varying
// renderables between feed updates. Trajectories are sampled once per
// snapshot; the playback clock is what moves the rendered positions along
// them in between.
package playback

import (
	"context"
	"sync"
	"time"
)

// Clock provides the current playback instant. Components that evaluate
// trajectories depend on this abstraction rather than on a concrete ticker,
// which keeps them testable.
type Clock interface {
	// Now returns the current playback instant.
	Now() time.Time
}

// FixedClock always reports the same instant. Useful in tests and for a
// paused playback state.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant. Implements Clock.
func (c FixedClock) Now() time.Time { return c.At }

// Ticker drives real-time playback and notifies registered listeners on
// every tick. It implements Clock for components that only need Now.
type Ticker struct {
	mu       sync.RWMutex
	interval time.Duration
	current  time.Time

	listeners []func(time.Time)
}

// NewTicker constructs a ticker with the given interval. Intervals below
// 1 ms are clamped to 1 s.
func NewTicker(interval time.Duration) *Ticker {
	if interval < time.Millisecond {
		interval = time.Second
	}
	return &Ticker{
		interval: interval,
		current:  time.Now().UTC(),
	}
}

// Now returns the instant of the most recent tick. Implements Clock.
func (t *Ticker) Now() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// AddListener registers a callback invoked on every tick. Listeners must be
// registered before Start; they run on the ticker's goroutine.
func (t *Ticker) AddListener(fn func(time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Start runs the ticker until ctx is cancelled. It returns a channel that is
// closed when the loop has exited.
func (t *Ticker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				now = now.UTC()
				t.mu.Lock()
				t.current = now
				listeners := t.listeners
				t.mu.Unlock()

				for _, fn := range listeners {
					fn(now)
				}
			}
		}
	}()
	return done
}
