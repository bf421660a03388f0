package model

import "time"

// Category identifies one feed category.
type Category string

const (
	CategoryAircraft  Category = "aircraft"
	CategoryMilitary  Category = "military"
	CategorySatellite Category = "satellites"
	CategorySeismic   Category = "earthquakes"
)

// PointCategories lists the categories delivered as GeoJSON point features.
var PointCategories = []Category{CategorySeismic, CategoryAircraft, CategoryMilitary}

// GeoPosition is a geodetic position. Longitude and latitude are degrees,
// altitude is metres. HasAltitude distinguishes surface categories from
// airborne and orbital ones.
type GeoPosition struct {
	Longitude   float64
	Latitude    float64
	Altitude    float64
	HasAltitude bool
}

// PointRecord is one point feature from a snapshot. Identity is not stable
// across snapshots for point categories, so the reconciler treats every
// snapshot as a full replacement rather than a diff.
type PointRecord struct {
	Position   GeoPosition
	Category   Category
	Attributes map[string]any
}

// OrbitalElementRecord carries one tracked object's two-line element set
// plus metadata. CatalogID is stable across snapshots when the source
// reuses it.
type OrbitalElementRecord struct {
	CatalogID string
	Name      string
	Line1     string
	Line2     string
}

// Snapshot is one complete, internally consistent broadcast of world state.
// It is immutable once constructed and superseded wholesale by the next
// accepted broadcast.
type Snapshot struct {
	Aircraft    []PointRecord
	Military    []PointRecord
	Earthquakes []PointRecord
	Satellites  []OrbitalElementRecord

	// Counts are the per-category totals as reported by the feed itself.
	Counts map[Category]int

	// CapturedAt is the feed's capture timestamp. It is the reference
	// instant for trajectory sampling.
	CapturedAt time.Time
}

// Points returns the point records for the given category. The orbital
// category has no point records and yields nil.
func (s *Snapshot) Points(c Category) []PointRecord {
	switch c {
	case CategoryAircraft:
		return s.Aircraft
	case CategoryMilitary:
		return s.Military
	case CategorySeismic:
		return s.Earthquakes
	default:
		return nil
	}
}
