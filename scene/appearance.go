package scene

import (
	"math"
	"time"

	"github.com/signalsfoundry/orbitalview/model"
)

// Color is an RGBA color with channels in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Appearance is the deterministic visual encoding attached to a renderable.
// Encoding depends only on the record's category and attributes, so the same
// record always renders the same way.
type Appearance struct {
	Size         float64
	Color        Color
	OutlineColor Color
	OutlineWidth float64
	Label        string

	// TrailWindow is the trailing path duration rendered behind orbital
	// objects; zero for point categories.
	TrailWindow time.Duration
}

// Altitude bands for non-military tracked objects (metres).
const (
	bandAAltitude = 9000.0
	bandBAltitude = 4000.0

	aircraftSize = 6.0
)

// Seismic encoding: marker size scales with magnitude above a floor; hue
// runs from yellow toward red as magnitude grows, clamped at a hue floor.
const (
	seismicSizeFloor = 6.0
	seismicSizeScale = 2.5

	seismicBaseHue  = 60.0
	seismicHueScale = 10.0
	seismicHueFloor = 0.0
)

// SatelliteTrailWindow is the rendered trailing path duration for orbital
// objects.
const SatelliteTrailWindow = 45 * time.Minute

const satelliteSize = 8.0

var (
	colorNeutral = Color{R: 1, G: 1, B: 1, A: 1}
	colorBandA   = Color{R: 1, G: 0.55, B: 0, A: 1}
	colorBandB   = Color{R: 1, G: 0.9, B: 0.2, A: 1}

	colorMilitary        = Color{R: 1, G: 0.15, B: 0.15, A: 1}
	colorMilitaryOutline = Color{R: 0, G: 0, B: 0, A: 1}

	colorSatellite = Color{R: 0.6, G: 0.85, B: 1, A: 1}
)

// AppearanceFor returns the deterministic encoding for a point record.
func AppearanceFor(rec model.PointRecord) Appearance {
	switch rec.Category {
	case model.CategoryMilitary:
		return militaryAppearance()
	case model.CategorySeismic:
		return seismicAppearance(attrFloat(rec.Attributes, "magnitude"))
	default:
		return aircraftAppearance(rec)
	}
}

// aircraftAppearance bands color by altitude. The feed reports aircraft
// altitude in the feature's properties with two-element coordinates, so the
// geometry altitude is only preferred when present.
func aircraftAppearance(rec model.PointRecord) Appearance {
	alt, ok := rec.Position.Altitude, rec.Position.HasAltitude
	if !ok {
		alt, ok = attrFloatOK(rec.Attributes, "altitude")
	}

	c := colorNeutral
	if ok {
		switch {
		case alt >= bandAAltitude:
			c = colorBandA
		case alt >= bandBAltitude:
			c = colorBandB
		}
	}
	return Appearance{Size: aircraftSize, Color: c}
}

func militaryAppearance() Appearance {
	return Appearance{
		Size:         aircraftSize * 1.5,
		Color:        colorMilitary,
		OutlineColor: colorMilitaryOutline,
		OutlineWidth: 2,
	}
}

func seismicAppearance(magnitude float64) Appearance {
	size := magnitude * seismicSizeScale
	if size < seismicSizeFloor {
		size = seismicSizeFloor
	}
	hue := seismicBaseHue - magnitude*seismicHueScale
	if hue < seismicHueFloor {
		hue = seismicHueFloor
	}
	return Appearance{Size: size, Color: hslColor(hue, 1, 0.5, 0.85)}
}

func satelliteAppearance(name string) Appearance {
	return Appearance{
		Size:        satelliteSize,
		Color:       colorSatellite,
		Label:       name,
		TrailWindow: SatelliteTrailWindow,
	}
}

// hslColor converts hue (degrees), saturation, and lightness to RGBA.
func hslColor(h, s, l, a float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return Color{R: r + m, G: g + m, B: b + m, A: a}
}

func attrFloat(attrs map[string]any, key string) float64 {
	v, _ := attrFloatOK(attrs, key)
	return v
}

// attrFloatOK reads a numeric attribute, reporting whether it was present.
// JSON decoding yields float64 for all numbers; the other cases cover records
// built in code.
func attrFloatOK(attrs map[string]any, key string) (float64, bool) {
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
