package orbit

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orbitalview/model"
)

// SGP4Propagator propagates one object's two-line element set.
type SGP4Propagator struct {
	sat satellite.Satellite
}

// NewSGP4Propagator parses the element lines into an SGP4 state. The lines
// are validated structurally first: go-satellite terminates the process on a
// field it cannot parse, so every column it reads must be known-numeric
// before TLEToSat runs. The recover fence stays for slice panics on inputs
// the validation cannot anticipate.
func NewSGP4Propagator(line1, line2 string) (p *SGP4Propagator, err error) {
	if err := validateElementLines(line1, line2); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("%w: %v", ErrInvalidElements, r)
		}
	}()
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &SGP4Propagator{sat: sat}, nil
}

const elementLineLength = 69

// validateElementLines checks both lines against the fixed-column element
// format: exact length, line designators, a valid mod-10 checksum, and
// numeric content in every column range the propagator parses. A line that
// passes cannot drive the parser into a non-numeric field.
func validateElementLines(line1, line2 string) error {
	if strings.TrimSpace(line1) == "" || strings.TrimSpace(line2) == "" {
		return fmt.Errorf("%w: empty element line", ErrInvalidElements)
	}
	if len(line1) != elementLineLength || len(line2) != elementLineLength {
		return fmt.Errorf("%w: line length %d/%d, want %d", ErrInvalidElements, len(line1), len(line2), elementLineLength)
	}
	if line1[0] != '1' || line2[0] != '2' || line1[1] != ' ' || line2[1] != ' ' {
		return fmt.Errorf("%w: bad line designator", ErrInvalidElements)
	}
	if !checksumValid(line1) || !checksumValid(line2) {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidElements)
	}

	fields := []struct {
		name  string
		field string
		check func(string) bool
	}{
		{"catalog number", line1[2:7], digitsField},
		{"epoch", line1[18:32], decimalField},
		{"first derivative", line1[33:43], decimalField},
		{"second derivative", line1[44:50], mantissaField},
		{"second derivative exponent", line1[50:52], exponentField},
		{"bstar", line1[53:59], mantissaField},
		{"bstar exponent", line1[59:61], exponentField},
		{"ephemeris type", line1[62:63], digitsField},
		{"element number", line1[64:68], digitsField},
		{"catalog number", line2[2:7], digitsField},
		{"inclination", line2[8:16], decimalField},
		{"right ascension", line2[17:25], decimalField},
		{"eccentricity", line2[26:33], digitsField},
		{"argument of perigee", line2[34:42], decimalField},
		{"mean anomaly", line2[43:51], decimalField},
		{"mean motion", line2[52:63], decimalField},
		{"revolution number", line2[63:68], digitsField},
	}
	for _, f := range fields {
		if !f.check(f.field) {
			return fmt.Errorf("%w: non-numeric %s field %q", ErrInvalidElements, f.name, f.field)
		}
	}
	return nil
}

// checksumValid verifies the trailing mod-10 checksum: digits count as their
// value, a minus sign as 1, everything else as 0.
func checksumValid(line string) bool {
	last := line[len(line)-1]
	if last < '0' || last > '9' {
		return false
	}
	sum := 0
	for i := 0; i < len(line)-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum%10 == int(last-'0')
}

// digitsField allows digits padded with spaces.
func digitsField(s string) bool {
	seen := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			seen = true
		case c == ' ':
		default:
			return false
		}
	}
	return seen
}

// decimalField allows a space-padded decimal number: an optional leading
// sign, digits, and at most one decimal point.
func decimalField(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if t[0] == '+' || t[0] == '-' {
		t = t[1:]
	}
	digits, dots := 0, 0
	for i := 0; i < len(t); i++ {
		switch c := t[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// mantissaField allows the implicit-decimal mantissa of the derivative and
// drag fields: an optional leading sign followed by digits and spaces.
func mantissaField(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if t[0] == '+' || t[0] == '-' {
		t = t[1:]
	}
	return digitsField(t)
}

// exponentField allows a signed single-digit exponent, e.g. "-4" or " 0".
func exponentField(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if t[0] == '+' || t[0] == '-' {
		t = t[1:]
	}
	if len(t) == 0 {
		return false
	}
	for i := 0; i < len(t); i++ {
		if t[i] < '0' || t[i] > '9' {
			return false
		}
	}
	return true
}

// PositionAt propagates to t and converts the resulting inertial-frame
// position to geodetic coordinates. go-satellite works in kilometres; the
// returned altitude is metres.
func (p *SGP4Propagator) PositionAt(t time.Time) (model.GeoPosition, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)

	eci := vec3{X: posECI.X, Y: posECI.Y, Z: posECI.Z}
	if !eci.finite() {
		return model.GeoPosition{}, fmt.Errorf("%w: non-numeric position", ErrInvalidPropagation)
	}
	if r := eci.norm(); r <= EarthRadiusKm {
		return model.GeoPosition{}, fmt.Errorf("%w: radius %.1f km is at or below the surface", ErrInvalidPropagation, r)
	}

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	lon, lat, alt := ecefToGeodetic(vec3{X: posECEF.X, Y: posECEF.Y, Z: posECEF.Z})
	return model.GeoPosition{
		Longitude:   lon,
		Latitude:    lat,
		Altitude:    alt,
		HasAltitude: true,
	}, nil
}
