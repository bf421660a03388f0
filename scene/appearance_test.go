package scene

import (
	"testing"

	"github.com/signalsfoundry/orbitalview/model"
)

func TestAircraftAppearance_AltitudeBands(t *testing.T) {
	cases := []struct {
		name string
		alt  float64
		has  bool
		want Color
	}{
		{"high band", 9000, true, colorBandA},
		{"above high band", 11500, true, colorBandA},
		{"mid band", 4000, true, colorBandB},
		{"below mid band", 3999, true, colorNeutral},
		{"ground", 0, true, colorNeutral},
		{"no altitude", 0, false, colorNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := model.PointRecord{
				Category: model.CategoryAircraft,
				Position: model.GeoPosition{Altitude: tc.alt, HasAltitude: tc.has},
			}
			got := AppearanceFor(rec)
			if got.Color != tc.want {
				t.Fatalf("color = %+v, want %+v", got.Color, tc.want)
			}
			if got.Size != aircraftSize {
				t.Fatalf("size = %v, want constant %v", got.Size, aircraftSize)
			}
		})
	}
}

// The feed delivers aircraft with two-element coordinates and the altitude
// in the feature's properties; banding must work from that shape too.
func TestAircraftAppearance_AltitudeFromAttributes(t *testing.T) {
	cases := []struct {
		name  string
		attrs map[string]any
		want  Color
	}{
		{"high band", map[string]any{"altitude": 10500.0, "callsign": "UAL123"}, colorBandA},
		{"mid band", map[string]any{"altitude": 4500.0}, colorBandB},
		{"low", map[string]any{"altitude": 900.0}, colorNeutral},
		{"null altitude", map[string]any{"altitude": nil}, colorNeutral},
		{"absent altitude", map[string]any{"callsign": "AFR456"}, colorNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := model.PointRecord{
				Category:   model.CategoryAircraft,
				Position:   model.GeoPosition{Longitude: -122.3, Latitude: 47.6},
				Attributes: tc.attrs,
			}
			if got := AppearanceFor(rec); got.Color != tc.want {
				t.Fatalf("color = %+v, want %+v", got.Color, tc.want)
			}
		})
	}
}

func TestAircraftAppearance_GeometryAltitudePreferred(t *testing.T) {
	rec := model.PointRecord{
		Category:   model.CategoryAircraft,
		Position:   model.GeoPosition{Altitude: 11000, HasAltitude: true},
		Attributes: map[string]any{"altitude": 100.0},
	}
	if got := AppearanceFor(rec); got.Color != colorBandA {
		t.Fatalf("color = %+v, want band A from geometry altitude", got.Color)
	}
}

func TestMilitaryAppearance_HighSalience(t *testing.T) {
	rec := model.PointRecord{Category: model.CategoryMilitary}
	got := AppearanceFor(rec)

	if got.Color != colorMilitary {
		t.Fatalf("color = %+v, want fixed military color", got.Color)
	}
	if got.Size <= aircraftSize {
		t.Fatalf("military size %v must exceed aircraft size %v", got.Size, aircraftSize)
	}
	if got.OutlineWidth == 0 {
		t.Fatalf("military encoding must carry a distinct outline")
	}
}

func TestSeismicAppearance_SizeAndHue(t *testing.T) {
	small := seismicAppearance(1.0)
	if small.Size != seismicSizeFloor {
		t.Fatalf("small quake size = %v, want floor %v", small.Size, seismicSizeFloor)
	}

	big := seismicAppearance(7.2)
	if want := 7.2 * seismicSizeScale; big.Size != want {
		t.Fatalf("big quake size = %v, want %v", big.Size, want)
	}

	// Hotter hue for bigger magnitude: red channel dominance grows.
	if !(big.Color.R >= small.Color.R && big.Color.G < small.Color.G) {
		t.Fatalf("hue should run hotter with magnitude: small=%+v big=%+v", small.Color, big.Color)
	}

	// Hue clamps at the floor: beyond that, encoding saturates.
	extreme := seismicAppearance(9.9)
	clamped := seismicAppearance(6.0) // 60 - 6*10 = 0, exactly at floor
	if extreme.Color != clamped.Color {
		t.Fatalf("hue must clamp at floor: %+v vs %+v", extreme.Color, clamped.Color)
	}
}

func TestSeismicAppearance_MissingMagnitude(t *testing.T) {
	rec := model.PointRecord{Category: model.CategorySeismic, Attributes: map[string]any{}}
	got := AppearanceFor(rec)
	if got.Size != seismicSizeFloor {
		t.Fatalf("size without magnitude = %v, want floor", got.Size)
	}
}
