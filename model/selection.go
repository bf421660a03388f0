package model

// SelectionKind discriminates the typed domain payload attached to a
// renderable. Exactly one kind applies per renderable; pick resolution
// performs a single discriminant check instead of runtime type inspection.
type SelectionKind int

const (
	SelectionUnknown SelectionKind = iota
	SelectionAircraft
	SelectionMilitary
	SelectionSatellite
	SelectionSeismic
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionAircraft:
		return "aircraft"
	case SelectionMilitary:
		return "military"
	case SelectionSatellite:
		return "satellite"
	case SelectionSeismic:
		return "seismic"
	default:
		return "unknown"
	}
}

// SelectionRecord is the tagged variant returned by a pick query. It is the
// sole pick payload; callers never reach into renderables directly.
type SelectionRecord struct {
	Kind       SelectionKind
	Attributes map[string]any
}

// SelectionKindForCategory maps a feed category onto its selection kind.
func SelectionKindForCategory(c Category) SelectionKind {
	switch c {
	case CategoryAircraft:
		return SelectionAircraft
	case CategoryMilitary:
		return SelectionMilitary
	case CategorySatellite:
		return SelectionSatellite
	case CategorySeismic:
		return SelectionSeismic
	default:
		return SelectionUnknown
	}
}
