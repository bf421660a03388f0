package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/orbitalview/feed"
)

// FeedCollector bundles Prometheus metrics for the feed client and the
// scene, and satisfies the recorder interfaces of both packages so neither
// depends on Prometheus directly.
type FeedCollector struct {
	gatherer prometheus.Gatherer

	SnapshotsAccepted prometheus.Counter
	SnapshotsRejected prometheus.Counter
	Reconnects        prometheus.Counter
	PropagationDrops  prometheus.Counter

	ConnectionState  *prometheus.GaugeVec
	RenderedEntities *prometheus.GaugeVec

	ApplyDuration prometheus.Histogram
}

// NewFeedCollector registers the client metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewFeedCollector(reg prometheus.Registerer) (*FeedCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	accepted, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_snapshots_accepted_total",
		Help: "Total number of inbound broadcasts decoded into snapshots.",
	}), "feed_snapshots_accepted_total")
	if err != nil {
		return nil, err
	}
	rejected, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_snapshots_rejected_total",
		Help: "Total number of malformed inbound broadcasts discarded.",
	}), "feed_snapshots_rejected_total")
	if err != nil {
		return nil, err
	}
	reconnects, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_reconnects_scheduled_total",
		Help: "Total number of reconnect attempts scheduled after closures.",
	}), "feed_reconnects_scheduled_total")
	if err != nil {
		return nil, err
	}
	drops, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbit_propagation_drops_total",
		Help: "Total number of orbital objects excluded due to invalid propagation.",
	}), "orbit_propagation_drops_total")
	if err != nil {
		return nil, err
	}

	connState, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feed_connection_state",
		Help: "Current transport channel state; exactly one series holds 1.",
	}, []string{"state"}), "feed_connection_state")
	if err != nil {
		return nil, err
	}
	rendered, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scene_rendered_entities",
		Help: "Current number of rendered entities per category.",
	}, []string{"category"}), "scene_rendered_entities")
	if err != nil {
		return nil, err
	}

	apply, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scene_apply_duration_seconds",
		Help:    "Snapshot reconciliation latency in seconds, including trajectory sampling.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}), "scene_apply_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &FeedCollector{
		gatherer:          gatherer,
		SnapshotsAccepted: accepted,
		SnapshotsRejected: rejected,
		Reconnects:        reconnects,
		PropagationDrops:  drops,
		ConnectionState:   connState,
		RenderedEntities:  rendered,
		ApplyDuration:     apply,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FeedCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SnapshotAccepted satisfies feed.Metrics.
func (c *FeedCollector) SnapshotAccepted() {
	if c == nil || c.SnapshotsAccepted == nil {
		return
	}
	c.SnapshotsAccepted.Inc()
}

// SnapshotRejected satisfies feed.Metrics.
func (c *FeedCollector) SnapshotRejected() {
	if c == nil || c.SnapshotsRejected == nil {
		return
	}
	c.SnapshotsRejected.Inc()
}

// ReconnectScheduled satisfies feed.Metrics.
func (c *FeedCollector) ReconnectScheduled(time.Duration) {
	if c == nil || c.Reconnects == nil {
		return
	}
	c.Reconnects.Inc()
}

// StatusChanged satisfies feed.Metrics: the current state's series is set to
// 1 and every other state's to 0.
func (c *FeedCollector) StatusChanged(status feed.Status) {
	if c == nil || c.ConnectionState == nil {
		return
	}
	for _, s := range feed.Statuses {
		v := 0.0
		if s == status {
			v = 1.0
		}
		c.ConnectionState.WithLabelValues(s.String()).Set(v)
	}
}

// SetRenderedCount satisfies scene.MetricsRecorder.
func (c *FeedCollector) SetRenderedCount(category string, n int) {
	if c == nil || c.RenderedEntities == nil {
		return
	}
	c.RenderedEntities.WithLabelValues(category).Set(float64(n))
}

// PropagationDropped satisfies scene.MetricsRecorder.
func (c *FeedCollector) PropagationDropped(n int) {
	if c == nil || c.PropagationDrops == nil {
		return
	}
	c.PropagationDrops.Add(float64(n))
}

// ObserveApplyDuration satisfies scene.MetricsRecorder.
func (c *FeedCollector) ObserveApplyDuration(d time.Duration) {
	if c == nil || c.ApplyDuration == nil {
		return
	}
	c.ApplyDuration.Observe(d.Seconds())
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
