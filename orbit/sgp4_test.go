package orbit

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/orbitalview/model"
)

// ISS sample element set, epoch 2021-10-02.
const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9993"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257767"
)

func issRecord() model.OrbitalElementRecord {
	return model.OrbitalElementRecord{
		CatalogID: "25544",
		Name:      "ISS (ZARYA)",
		Line1:     issLine1,
		Line2:     issLine2,
	}
}

// We don't assert exact orbital values (those belong to go-satellite); we
// check that the geodetic output is physically plausible for the ISS and
// that positions differ at distinct times.
func TestSGP4Propagator_PlausibleGeodeticOutput(t *testing.T) {
	prop, err := NewSGP4Propagator(issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewSGP4Propagator: %v", err)
	}

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	pos, err := prop.PositionAt(t1)
	if err != nil {
		t.Fatalf("PositionAt: %v", err)
	}

	if pos.Longitude < -180 || pos.Longitude > 180 {
		t.Fatalf("longitude %v out of range", pos.Longitude)
	}
	// Inclination bounds latitude.
	if pos.Latitude < -52 || pos.Latitude > 52 {
		t.Fatalf("latitude %v outside ISS inclination band", pos.Latitude)
	}
	// LEO altitude in metres.
	if pos.Altitude < 300_000 || pos.Altitude > 500_000 {
		t.Fatalf("altitude %v m implausible for the ISS", pos.Altitude)
	}
	if !pos.HasAltitude {
		t.Fatalf("expected HasAltitude to be set")
	}

	pos2, err := prop.PositionAt(t1.Add(5 * time.Minute))
	if err != nil {
		t.Fatalf("PositionAt(+5m): %v", err)
	}
	if pos2 == pos {
		t.Fatalf("expected position to change over time, got %+v at both instants", pos)
	}
}

func TestBuildTrajectory_FullWindowFromElements(t *testing.T) {
	rec := issRecord()
	t0 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)

	traj, err := BuildTrajectory(rec, t0)
	if err != nil {
		t.Fatalf("BuildTrajectory: %v", err)
	}
	if got, want := traj.Len(), 46; got != want {
		t.Fatalf("sample count = %d, want %d", got, want)
	}

	if _, err := traj.PositionAt(t0.Add(90 * time.Second)); err != nil {
		t.Fatalf("PositionAt inside window: %v", err)
	}
}

// withChecksum replaces a line's trailing checksum with the correct mod-10
// value, so a rejection is attributable to the corrupted field rather than
// the checksum.
func withChecksum(line string) string {
	sum := 0
	for i := 0; i < len(line)-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return line[:len(line)-1] + string(rune('0'+sum%10))
}

// Malformed element sets of every shape must come back as ErrInvalidElements.
// In particular, lines long enough to reach field parsing must be rejected by
// structural validation: the underlying parser exits the process on a field
// it cannot read, so these inputs must never get that far.
func TestNewSGP4Propagator_RejectsMalformedElements(t *testing.T) {
	garbage69 := "not an element set, padded out to the width of a real element line..."
	if len(garbage69) != elementLineLength {
		t.Fatalf("fixture length = %d, want %d", len(garbage69), elementLineLength)
	}
	letterEpoch := withChecksum(issLine1[:18] + "2127A.5909722Z" + issLine1[32:])
	letterMeanMotion := withChecksum(issLine2[:52] + "15.493709AB" + issLine2[63:])

	cases := []struct {
		name         string
		line1, line2 string
	}{
		{"empty lines", "", ""},
		{"garbage", "not an element set", "also not an element set"},
		{"truncated", issLine1[:20], issLine2[:20]},
		{"full-width garbage", garbage69, garbage69},
		{"corrupted checksum", issLine1[:68] + "1", issLine2},
		{"letters in epoch field", letterEpoch, issLine2},
		{"letters in mean motion field", issLine1, letterMeanMotion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSGP4Propagator(tc.line1, tc.line2); !errors.Is(err, ErrInvalidElements) {
				t.Fatalf("error = %v, want ErrInvalidElements", err)
			}
		})
	}
}

func TestValidateElementLines_AcceptsRealElements(t *testing.T) {
	if err := validateElementLines(issLine1, issLine2); err != nil {
		t.Fatalf("validateElementLines on real elements: %v", err)
	}
}
