package orbit

import "math"

// WGS84 constants for the geodetic conversion (kilometres).
const (
	equatorialRadiusKm = 6378.137
	flattening         = 1.0 / 298.257223563
)

// EarthRadiusKm is the mean Earth radius. Propagated positions whose radius
// falls below it are treated as decayed.
const EarthRadiusKm = 6371.0

// vec3 is an ECI/ECEF-style vector in kilometres.
type vec3 struct {
	X, Y, Z float64
}

func (v vec3) norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v vec3) finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ecefToGeodetic converts an ECEF position to geodetic longitude/latitude in
// degrees and altitude in metres, using Bowring's closed-form approximation.
// Accuracy is well below the feed's positional noise for orbital altitudes.
func ecefToGeodetic(p vec3) (lonDeg, latDeg, altM float64) {
	a := equatorialRadiusKm
	b := a * (1 - flattening)
	e2 := flattening * (2 - flattening)
	ep2 := (a*a - b*b) / (b * b)

	lon := math.Atan2(p.Y, p.X)
	r := math.Hypot(p.X, p.Y)

	theta := math.Atan2(p.Z*a, r*b)
	st, ct := math.Sin(theta), math.Cos(theta)
	lat := math.Atan2(p.Z+ep2*b*st*st*st, r-e2*a*ct*ct*ct)

	sl := math.Sin(lat)
	n := a / math.Sqrt(1-e2*sl*sl)

	// r/cos(lat) degenerates near the poles; switch to the Z-based form there.
	var altKm float64
	if math.Abs(lat) < 89.0*math.Pi/180.0 {
		altKm = r/math.Cos(lat) - n
	} else {
		altKm = p.Z/sl - n*(1-e2)
	}

	const kmToM = 1000.0
	return lon * 180.0 / math.Pi, lat * 180.0 / math.Pi, altKm * kmToM
}
