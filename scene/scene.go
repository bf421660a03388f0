// Package scene owns the currently rendered entity sets and reconciles them
// against incoming snapshots. Reconciliation is replace-all per category:
// upstream sources do not promise stable identity for point records, so the
// previous set is discarded wholesale rather than diffed.
package scene

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orbitalview/internal/logging"
	"github.com/signalsfoundry/orbitalview/model"
	"github.com/signalsfoundry/orbitalview/orbit"
)

// Renderable is one drawable object plus its attached selection payload.
type Renderable struct {
	Category model.Category

	// Position is the fixed position for point categories; orbital
	// renderables derive theirs from Trajectory instead.
	Position   model.GeoPosition
	Trajectory *orbit.Trajectory

	Appearance Appearance
	Selection  *model.SelectionRecord
}

// PositionAt resolves the renderable's position at the given playback
// instant. Point renderables are time-invariant; orbital ones evaluate their
// trajectory, and ok is false when the query falls outside its window.
func (r *Renderable) PositionAt(at time.Time) (model.GeoPosition, bool) {
	if r.Trajectory == nil {
		return r.Position, true
	}
	pos, err := r.Trajectory.PositionAt(at)
	if err != nil {
		return model.GeoPosition{}, false
	}
	return pos, true
}

// TrajectoryBuilder produces a bounded trajectory for one element record.
// It is a seam so tests can substitute propagation.
type TrajectoryBuilder func(rec model.OrbitalElementRecord, t0 time.Time) (*orbit.Trajectory, error)

// MetricsRecorder receives rendered-set updates from reconciliation passes.
type MetricsRecorder interface {
	SetRenderedCount(category string, n int)
	PropagationDropped(n int)
	ObserveApplyDuration(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) SetRenderedCount(string, int)       {}
func (noopMetrics) PropagationDropped(int)             {}
func (noopMetrics) ObserveApplyDuration(time.Duration) {}

// DrawOrder lists categories back to front. Within a category, later
// entries draw on top.
var DrawOrder = []model.Category{
	model.CategorySeismic,
	model.CategoryAircraft,
	model.CategoryMilitary,
	model.CategorySatellite,
}

// SceneState exclusively owns the rendered set for every category behind one
// coarse lock. The render surface only reads; all mutation happens inside
// ApplySnapshot.
type SceneState struct {
	mu         sync.RWMutex
	byCategory map[model.Category][]*Renderable
	generation uint64

	build   TrajectoryBuilder
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// Option customises SceneState construction.
type Option func(*SceneState)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *SceneState) {
		if l != nil {
			s.log = logging.WithComponent(l, "scene")
		}
	}
}

// WithMetrics attaches an observability recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *SceneState) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTrajectoryBuilder substitutes the orbital sampling function.
func WithTrajectoryBuilder(b TrajectoryBuilder) Option {
	return func(s *SceneState) {
		if b != nil {
			s.build = b
		}
	}
}

// NewSceneState constructs an empty scene.
func NewSceneState(opts ...Option) *SceneState {
	s := &SceneState{
		byCategory: make(map[model.Category][]*Renderable),
		build:      orbit.BuildTrajectory,
		log:        logging.Noop(),
		metrics:    noopMetrics{},
		tracer:     otel.Tracer("orbitalview/scene"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ApplyResult summarises one reconciliation pass.
type ApplyResult struct {
	Rendered          map[model.Category]int
	DroppedSatellites int
}

// Total returns the number of renderables across all categories.
func (r ApplyResult) Total() int {
	n := 0
	for _, c := range r.Rendered {
		n += c
	}
	return n
}

// ApplySnapshot rebuilds every category from snap. All new sets, including
// every orbital trajectory, are constructed off-lock, then swapped in for
// all categories under a single write lock: concurrent readers observe the
// previous snapshot's sets or the new ones, never a mixture or an empty
// intermediate state. Snapshots must be applied in arrival order.
func (s *SceneState) ApplySnapshot(ctx context.Context, snap *model.Snapshot) ApplyResult {
	ctx, span := s.tracer.Start(ctx, "scene.ApplySnapshot")
	defer span.End()
	started := time.Now()

	next := make(map[model.Category][]*Renderable, len(DrawOrder))
	for _, cat := range model.PointCategories {
		next[cat] = buildPointSet(snap.Points(cat), cat)
	}
	sats, dropped := s.buildSatelliteSet(ctx, snap)
	next[model.CategorySatellite] = sats

	s.mu.Lock()
	s.byCategory = next
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	res := ApplyResult{
		Rendered:          make(map[model.Category]int, len(next)),
		DroppedSatellites: dropped,
	}
	for cat, rs := range next {
		res.Rendered[cat] = len(rs)
		s.metrics.SetRenderedCount(string(cat), len(rs))
	}
	if dropped > 0 {
		s.metrics.PropagationDropped(dropped)
	}
	s.metrics.ObserveApplyDuration(time.Since(started))

	span.SetAttributes(
		attribute.Int64("scene.generation", int64(gen)),
		attribute.Int("scene.rendered", res.Total()),
		attribute.Int("scene.dropped_satellites", dropped),
	)
	s.log.Info(ctx, "applied snapshot",
		logging.Int("aircraft", res.Rendered[model.CategoryAircraft]),
		logging.Int("military", res.Rendered[model.CategoryMilitary]),
		logging.Int("earthquakes", res.Rendered[model.CategorySeismic]),
		logging.Int("satellites", res.Rendered[model.CategorySatellite]),
		logging.Int("dropped_satellites", dropped),
	)
	return res
}

func buildPointSet(recs []model.PointRecord, cat model.Category) []*Renderable {
	out := make([]*Renderable, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &Renderable{
			Category:   cat,
			Position:   rec.Position,
			Appearance: AppearanceFor(rec),
			Selection: &model.SelectionRecord{
				Kind:       model.SelectionKindForCategory(cat),
				Attributes: rec.Attributes,
			},
		})
	}
	return out
}

// buildSatelliteSet samples a trajectory per object. A failed object is
// excluded from the rebuilt set without blocking the rest of the pass.
func (s *SceneState) buildSatelliteSet(ctx context.Context, snap *model.Snapshot) ([]*Renderable, int) {
	ctx, span := s.tracer.Start(ctx, "scene.SampleTrajectories",
		trace.WithAttributes(attribute.Int("scene.satellites", len(snap.Satellites))))
	defer span.End()

	out := make([]*Renderable, 0, len(snap.Satellites))
	dropped := 0
	for _, rec := range snap.Satellites {
		traj, err := s.build(rec, snap.CapturedAt)
		if err != nil {
			dropped++
			s.log.Warn(ctx, "dropped satellite",
				logging.String("catalog_id", rec.CatalogID),
				logging.String("name", rec.Name),
				logging.Err(err),
			)
			continue
		}
		out = append(out, &Renderable{
			Category:   model.CategorySatellite,
			Trajectory: traj,
			Appearance: satelliteAppearance(rec.Name),
			Selection: &model.SelectionRecord{
				Kind: model.SelectionSatellite,
				Attributes: map[string]any{
					"catalogId": rec.CatalogID,
					"name":      rec.Name,
					"line1":     rec.Line1,
					"line2":     rec.Line2,
				},
			},
		})
	}
	return out, dropped
}

// Renderables returns a copy of the current set for one category.
func (s *SceneState) Renderables(cat model.Category) []*Renderable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.byCategory[cat]
	out := make([]*Renderable, len(rs))
	copy(out, rs)
	return out
}

// Counts returns the rendered count per category.
func (s *SceneState) Counts() map[model.Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Category]int, len(s.byCategory))
	for cat, rs := range s.byCategory {
		out[cat] = len(rs)
	}
	return out
}

// TotalRendered returns the number of renderables across all categories.
func (s *SceneState) TotalRendered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rs := range s.byCategory {
		n += len(rs)
	}
	return n
}

// Generation returns the number of snapshots applied so far.
func (s *SceneState) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
