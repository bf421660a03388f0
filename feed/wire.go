package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/signalsfoundry/orbitalview/model"
)

// ErrMalformedMessage indicates an inbound message could not be decoded into
// a snapshot. The previously accepted snapshot stays authoritative.
var ErrMalformedMessage = errors.New("malformed feed message")

// Wire types mirror the origin service's broadcast payload: GeoJSON
// FeatureCollections per point category, a raw element-set list for the
// orbital category, per-category counts, and a unix-seconds capture
// timestamp.
type wireMessage struct {
	Aircraft    *wireFeatureCollection `json:"aircraft"`
	Military    *wireFeatureCollection `json:"military"`
	Earthquakes *wireFeatureCollection `json:"earthquakes"`
	TLEs        []wireElementSet       `json:"tles" validate:"dive"`
	Counts      map[string]int         `json:"counts"`
	Timestamp   float64                `json:"timestamp" validate:"required,gt=0"`
}

type wireFeatureCollection struct {
	Type     string        `json:"type" validate:"eq=FeatureCollection"`
	Features []wireFeature `json:"features" validate:"dive"`
}

type wireFeature struct {
	Type       string         `json:"type" validate:"eq=Feature"`
	Geometry   wireGeometry   `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type wireGeometry struct {
	Type        string    `json:"type" validate:"eq=Point"`
	Coordinates []float64 `json:"coordinates" validate:"min=2,max=3"`
}

type wireElementSet struct {
	CatalogID string `json:"catalogId"`
	Name      string `json:"name"`
	Line1     string `json:"line1" validate:"required"`
	Line2     string `json:"line2" validate:"required"`
}

var validate = validator.New()

// DecodeSnapshot parses one inbound broadcast into an immutable snapshot.
// Decode failure is isolated: the caller discards the message and keeps the
// previously accepted snapshot; no partial snapshot is ever produced.
func DecodeSnapshot(raw []byte) (*model.Snapshot, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	sec, frac := math.Modf(msg.Timestamp)
	snap := &model.Snapshot{
		Aircraft:    pointRecords(msg.Aircraft, model.CategoryAircraft),
		Military:    pointRecords(msg.Military, model.CategoryMilitary),
		Earthquakes: pointRecords(msg.Earthquakes, model.CategorySeismic),
		Satellites:  elementRecords(msg.TLEs),
		Counts:      make(map[model.Category]int, len(msg.Counts)),
		CapturedAt:  time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(),
	}
	for k, v := range msg.Counts {
		snap.Counts[model.Category(k)] = v
	}
	return snap, nil
}

func pointRecords(fc *wireFeatureCollection, cat model.Category) []model.PointRecord {
	if fc == nil {
		return nil
	}
	recs := make([]model.PointRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		pos := model.GeoPosition{
			Longitude: f.Geometry.Coordinates[0],
			Latitude:  f.Geometry.Coordinates[1],
		}
		if len(f.Geometry.Coordinates) > 2 {
			pos.Altitude = f.Geometry.Coordinates[2]
			pos.HasAltitude = true
		}
		recs = append(recs, model.PointRecord{
			Position:   pos,
			Category:   cat,
			Attributes: f.Properties,
		})
	}
	return recs
}

func elementRecords(sets []wireElementSet) []model.OrbitalElementRecord {
	if len(sets) == 0 {
		return nil
	}
	recs := make([]model.OrbitalElementRecord, 0, len(sets))
	for _, s := range sets {
		recs = append(recs, model.OrbitalElementRecord{
			CatalogID: s.CatalogID,
			Name:      s.Name,
			Line1:     s.Line1,
			Line2:     s.Line2,
		})
	}
	return recs
}
