package scene

import (
	"time"

	"github.com/signalsfoundry/orbitalview/model"
)

// ScreenPoint is a 2D query point in render-surface coordinates.
type ScreenPoint struct {
	X, Y float64
}

// Projector maps a geodetic position onto the render surface. ok reports
// whether the position is currently visible. The render surface supplies the
// real projection; EquirectangularProjector exists for headless use.
type Projector interface {
	Project(pos model.GeoPosition) (pt ScreenPoint, ok bool)
}

// PickAt resolves the frontmost renderable under pt and returns its attached
// selection record. Orbital renderables are positioned by evaluating their
// trajectory at the playback instant; an unevaluable position is simply not
// pickable. A miss, or a hit with no resolvable record, yields ok=false —
// never an error.
func (s *SceneState) PickAt(pt ScreenPoint, proj Projector, at time.Time) (model.SelectionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hit *Renderable
	for _, cat := range DrawOrder {
		for _, r := range s.byCategory[cat] {
			pos, ok := r.PositionAt(at)
			if !ok {
				continue
			}
			center, ok := proj.Project(pos)
			if !ok {
				continue
			}
			radius := r.Appearance.Size / 2
			if radius < 1 {
				radius = 1
			}
			dx, dy := pt.X-center.X, pt.Y-center.Y
			if dx*dx+dy*dy <= radius*radius {
				// Later categories and later entries draw on top, so the
				// last match is the frontmost.
				hit = r
			}
		}
	}

	if hit == nil || hit.Selection == nil {
		return model.SelectionRecord{}, false
	}
	return *hit.Selection, true
}

// EquirectangularProjector is a minimal plate carrée projection used by the
// headless driver and tests.
type EquirectangularProjector struct {
	// PixelsPerDegree scales degrees to screen units; zero means 1.
	PixelsPerDegree float64
}

// Project maps longitude/latitude onto a [0,360)x[0,180) plane scaled by
// PixelsPerDegree. Altitude is ignored.
func (p EquirectangularProjector) Project(pos model.GeoPosition) (ScreenPoint, bool) {
	s := p.PixelsPerDegree
	if s == 0 {
		s = 1
	}
	return ScreenPoint{
		X: (pos.Longitude + 180) * s,
		Y: (90 - pos.Latitude) * s,
	}, true
}
