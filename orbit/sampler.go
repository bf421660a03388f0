// Package orbit turns raw two-line element sets into bounded, time-queryable
// trajectories. Sampling is all-or-nothing per object: a trajectory with a
// gap is worse than no trajectory, so a single invalid propagation step
// rejects the whole object for that snapshot.
package orbit

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/orbitalview/model"
)

// Sampling policy: a fixed 120 s step across a symmetric ±45 min window
// around the snapshot capture instant. The window deliberately exceeds the
// feed's broadcast interval by a wide margin so a trajectory never expires
// before the next rebuild replaces it.
const (
	SampleStep      = 120 * time.Second
	WindowHalfWidth = 2700 * time.Second
)

var (
	// ErrInvalidElements indicates a two-line element set could not be parsed.
	ErrInvalidElements = errors.New("invalid orbital element set")
	// ErrInvalidPropagation indicates propagation produced an unusable state
	// at a sampled instant.
	ErrInvalidPropagation = errors.New("invalid propagation")
	// ErrOutsideWindow indicates a position query outside the sampled window.
	ErrOutsideWindow = errors.New("query outside sampled window")
)

// Propagator produces a geodetic position for one tracked object at a given
// instant. It exists as an interface so windowing and rejection policy can be
// exercised without crafting pathological element sets.
type Propagator interface {
	PositionAt(t time.Time) (model.GeoPosition, error)
}

// Sample is one stored (instant, position) pair.
type Sample struct {
	At       time.Time
	Position model.GeoPosition
}

// Trajectory is a bounded, time-queryable position function derived from one
// element record for one snapshot. It is owned by the reconciler for that
// snapshot's lifetime and rebuilt from scratch on the next one.
type Trajectory struct {
	samples []Sample
	start   time.Time
	end     time.Time
}

// BuildTrajectory samples rec across the window centred on t0 using SGP4
// propagation. It returns a valid trajectory or an error for this object
// alone; callers drop failed objects individually.
func BuildTrajectory(rec model.OrbitalElementRecord, t0 time.Time) (*Trajectory, error) {
	prop, err := NewSGP4Propagator(rec.Line1, rec.Line2)
	if err != nil {
		return nil, err
	}
	return SampleWindow(prop, t0)
}

// SampleWindow drives the propagator across [t0-W, t0+W] at the fixed step.
// Any invalid step rejects the whole object; no partial trajectory is ever
// returned.
func SampleWindow(prop Propagator, t0 time.Time) (*Trajectory, error) {
	start := t0.Add(-WindowHalfWidth)
	end := t0.Add(WindowHalfWidth)
	n := int(end.Sub(start)/SampleStep) + 1

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(i) * SampleStep)
		pos, err := prop.PositionAt(at)
		if err != nil {
			return nil, fmt.Errorf("sample at %s: %w", at.UTC().Format(time.RFC3339), err)
		}
		samples = append(samples, Sample{At: at, Position: pos})
	}
	return &Trajectory{samples: samples, start: start, end: end}, nil
}

// Window returns the inclusive time bounds answered by PositionAt.
func (t *Trajectory) Window() (start, end time.Time) {
	return t.start, t.end
}

// Len returns the number of stored samples.
func (t *Trajectory) Len() int {
	return len(t.samples)
}

// Samples returns the stored samples. Callers must treat the slice as
// read-only.
func (t *Trajectory) Samples() []Sample {
	return t.samples
}

// interpolationPoints is the support size for degree-5 Lagrange
// interpolation.
const interpolationPoints = 6

// PositionAt answers an arbitrary-time position query within the window
// using degree-5 Lagrange interpolation over the six samples nearest the
// query instant. Queries outside the window are out of contract: the window
// is refreshed by the next snapshot long before it can be exhausted.
func (t *Trajectory) PositionAt(at time.Time) (model.GeoPosition, error) {
	if at.Before(t.start) || at.After(t.end) {
		return model.GeoPosition{}, fmt.Errorf("%w: %s", ErrOutsideWindow, at.UTC().Format(time.RFC3339))
	}

	x := at.Sub(t.start).Seconds()
	step := SampleStep.Seconds()

	lo := int(x/step) - interpolationPoints/2 + 1
	if lo < 0 {
		lo = 0
	}
	if lo+interpolationPoints > len(t.samples) {
		lo = len(t.samples) - interpolationPoints
		if lo < 0 {
			lo = 0
		}
	}
	pts := t.samples[lo:min(lo+interpolationPoints, len(t.samples))]

	xs := make([]float64, len(pts))
	for j, p := range pts {
		xs[j] = p.At.Sub(t.start).Seconds()
	}
	w := lagrangeWeights(xs, x)

	// Longitude is interpolated on an unwrapped copy so the antimeridian
	// crossing does not manufacture a spurious sweep across the map.
	lons := unwrapLongitudes(pts)

	var lon, lat, alt float64
	for j, p := range pts {
		lon += w[j] * lons[j]
		lat += w[j] * p.Position.Latitude
		alt += w[j] * p.Position.Altitude
	}

	return model.GeoPosition{
		Longitude:   normalizeLongitude(lon),
		Latitude:    lat,
		Altitude:    alt,
		HasAltitude: true,
	}, nil
}

// lagrangeWeights computes the Lagrange basis values at x for the given
// abscissas.
func lagrangeWeights(xs []float64, x float64) []float64 {
	w := make([]float64, len(xs))
	for j := range xs {
		l := 1.0
		for m := range xs {
			if m == j {
				continue
			}
			l *= (x - xs[m]) / (xs[j] - xs[m])
		}
		w[j] = l
	}
	return w
}

func unwrapLongitudes(pts []Sample) []float64 {
	out := make([]float64, len(pts))
	for j, p := range pts {
		l := p.Position.Longitude
		if j > 0 {
			for l-out[j-1] > 180 {
				l -= 360
			}
			for l-out[j-1] < -180 {
				l += 360
			}
		}
		out[j] = l
	}
	return out
}

func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
