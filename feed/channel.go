// Package feed owns the live connection to the world-state broadcast
// endpoint: one websocket at a time, an exponential reconnect policy, and
// the decode step that turns raw broadcasts into typed snapshots.
package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/orbitalview/internal/logging"
	"github.com/signalsfoundry/orbitalview/model"
)

// Reconnect policy: geometric backoff from a 3 s floor, multiplied by 1.5
// per consecutive closure, capped at 30 s. The attempt count is unbounded;
// the channel never gives up. A fully successful open resets the delay to
// its floor.
const (
	DefaultReconnectFloor   = 3 * time.Second
	DefaultReconnectCeiling = 30 * time.Second
	DefaultReconnectGrowth  = 1.5
)

// SnapshotHandler receives every accepted snapshot, in arrival order.
type SnapshotHandler func(ctx context.Context, snap *model.Snapshot)

// Metrics receives channel-level observability events. Implementations must
// be safe for concurrent use.
type Metrics interface {
	SnapshotAccepted()
	SnapshotRejected()
	ReconnectScheduled(delay time.Duration)
	StatusChanged(status Status)
}

type noopMetrics struct{}

func (noopMetrics) SnapshotAccepted()                {}
func (noopMetrics) SnapshotRejected()                {}
func (noopMetrics) ReconnectScheduled(time.Duration) {}
func (noopMetrics) StatusChanged(Status)             {}

// Dialer abstracts the websocket dial so tests can substitute transports.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Channel owns one live feed connection plus its reconnect timer. Status
// changes and decoded snapshots are its only observable outputs; transport
// failures are never surfaced to callers.
type Channel struct {
	url     string
	dialer  Dialer
	handler SnapshotHandler
	log     logging.Logger
	metrics Metrics

	policy *backoff.ExponentialBackOff

	mu     sync.RWMutex
	status Status
	latest *model.Snapshot
	conn   *websocket.Conn
	closed bool

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Option customises channel construction.
type Option func(*Channel)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.log = logging.WithComponent(l, "feed")
		}
	}
}

// WithMetrics attaches an observability recorder.
func WithMetrics(m Metrics) Option {
	return func(c *Channel) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithHandler registers the snapshot consumer. The handler runs on the
// channel's read goroutine, so snapshots are delivered strictly in arrival
// order.
func WithHandler(h SnapshotHandler) Option {
	return func(c *Channel) { c.handler = h }
}

// WithDialer substitutes the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Channel) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithBackoff overrides the reconnect delay policy.
func WithBackoff(floor, ceiling time.Duration, growth float64) Option {
	return func(c *Channel) {
		c.policy = newReconnectPolicy(floor, ceiling, growth)
	}
}

// NewChannel constructs a channel for the given endpoint. Nothing happens
// until Connect is called.
func NewChannel(url string, opts ...Option) *Channel {
	c := &Channel{
		url:     url,
		dialer:  websocket.DefaultDialer,
		log:     logging.Noop(),
		metrics: noopMetrics{},
		policy:  newReconnectPolicy(DefaultReconnectFloor, DefaultReconnectCeiling, DefaultReconnectGrowth),
		status:  StatusDisconnected,
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// newReconnectPolicy builds the deterministic geometric backoff. Jitter is
// disabled so the delay sequence is exactly min(floor*growth^n, ceiling).
func newReconnectPolicy(floor, ceiling time.Duration, growth float64) *backoff.ExponentialBackOff {
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = floor
	p.MaxInterval = ceiling
	p.Multiplier = growth
	p.RandomizationFactor = 0
	p.Reset()
	return p
}

// Connect starts the managed connection loop and returns immediately. All
// progress is observable through Status, Latest, and the handler.
func (c *Channel) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.run(ctx)
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	for {
		c.setStatus(ctx, StatusConnecting)
		conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				c.setStatus(ctx, StatusDisconnected)
				return
			}
			c.log.Warn(ctx, "feed dial failed", logging.String("url", c.url), logging.Err(err))
			c.setStatus(ctx, StatusError)
			c.setStatus(ctx, StatusDisconnected)
			if !c.waitReconnect(ctx) {
				return
			}
			continue
		}

		// Close may have run while the dial was in flight, in which case it
		// had no conn to close; the flag check and the store share one lock,
		// so exactly one side closes the socket.
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			c.setStatus(ctx, StatusDisconnected)
			return
		}
		c.conn = conn
		c.mu.Unlock()

		// Only a fully successful open resets the delay; consecutive
		// closures keep compounding it.
		c.policy.Reset()
		c.setStatus(ctx, StatusConnected)
		c.log.Info(ctx, "feed connected", logging.String("url", c.url))

		readErr := c.readLoop(ctx, conn)
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			c.setStatus(ctx, StatusDisconnected)
			return
		}
		if websocket.IsUnexpectedCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.log.Warn(ctx, "feed connection lost", logging.Err(readErr))
			c.setStatus(ctx, StatusError)
		}
		c.setStatus(ctx, StatusDisconnected)
		if !c.waitReconnect(ctx) {
			return
		}
	}
}

// readLoop consumes broadcasts until the connection fails. Malformed
// messages are discarded without touching the previously accepted snapshot.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		snap, err := DecodeSnapshot(raw)
		if err != nil {
			c.metrics.SnapshotRejected()
			c.log.Warn(ctx, "rejected feed message", logging.Int("bytes", len(raw)), logging.Err(err))
			continue
		}

		c.mu.Lock()
		c.latest = snap
		c.mu.Unlock()
		c.metrics.SnapshotAccepted()

		if c.handler != nil {
			c.handler(ctx, snap)
		}
	}
}

// waitReconnect blocks for the next backoff delay. It returns false when the
// channel is being torn down, guaranteeing no further reconnect fires.
func (c *Channel) waitReconnect(ctx context.Context) bool {
	delay := c.policy.NextBackOff()
	c.metrics.ReconnectScheduled(delay)
	c.log.Info(ctx, "reconnect scheduled", logging.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Channel) setStatus(ctx context.Context, s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if changed {
		c.metrics.StatusChanged(s)
		c.log.Debug(ctx, "status changed", logging.String("status", s.String()))
	}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Latest returns the most recent successfully decoded snapshot, or nil if
// none has been accepted yet.
func (c *Channel) Latest() *model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Close tears the channel down. The pending reconnect timer is cancelled and
// the run loop detached before the socket closes, so teardown never triggers
// another reconnect. Close blocks until the loop has exited and is safe to
// call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()

		if c.cancel != nil {
			c.cancel()
		}
		if conn != nil {
			conn.Close()
		}
	})
	if c.cancel != nil {
		<-c.done
	}
}
