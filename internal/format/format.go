// Package format renders resolved places as flat records or GeoJSON
// features. Every declared field is always present in the output; missing
// values are written as null. Inside hierarchy only the levels a place
// actually has are written.
package format

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geopack/internal/model"
)

// Record is the flat output shape. Fields deliberately carry no omitempty.
type Record struct {
	ID          int64             `json:"_id"`
	Score       float64           `json:"_score"`
	Place       string            `json:"place"`
	Name        string            `json:"name"`
	Placetype   model.Placetype   `json:"placetype"`
	Belongsto   []int64           `json:"belongsto"`
	Hierarchy   []model.Hierarchy `json:"hierarchy"`
	Location    model.Location    `json:"location"`
	Region      *string           `json:"region"`
	IsoCountry  *string           `json:"iso_country"`
	Country     *string           `json:"country"`
	Area        *float64          `json:"area"`
	AreaSquareM *float64          `json:"area_square_m"`
	Geomhash    *string           `json:"geomhash"`
	Timezone    *string           `json:"timezone"`
	Population  *int64            `json:"population"`
	Geometry    json.RawMessage   `json:"geometry"`
	Text        string            `json:"text"`
	StartChar   int               `json:"start_char"`
	EndChar     int               `json:"end_char"`
	Label       *string           `json:"label"`
}

// FromResolved maps a resolved place to its record.
func FromResolved(rp model.ResolvedPlace) Record {
	h := rp.Hit
	belongsto := h.Belongsto
	if belongsto == nil {
		belongsto = []int64{}
	}
	hierarchy := h.Hierarchy
	if hierarchy == nil {
		hierarchy = []model.Hierarchy{}
	}
	var geometry json.RawMessage
	if len(h.Geometry) > 0 {
		geometry = h.Geometry
	}
	return Record{
		ID:          h.ID,
		Score:       h.Score,
		Place:       rp.Source.Clean,
		Name:        h.Name,
		Placetype:   h.Placetype,
		Belongsto:   belongsto,
		Hierarchy:   hierarchy,
		Location:    h.Location,
		Region:      rp.Region,
		IsoCountry:  optional(h.IsoCountry),
		Country:     optional(h.Country),
		Area:        h.Area,
		AreaSquareM: h.AreaSquareM,
		Geomhash:    optional(h.Geomhash),
		Timezone:    optional(h.Timezone),
		Population:  h.Population,
		Geometry:    geometry,
		Text:        rp.Source.Raw,
		StartChar:   rp.Source.Start,
		EndChar:     rp.Source.End,
		Label:       optional(rp.Source.Label),
	}
}

// Records maps every resolved place, keeping order.
func Records(rps []model.ResolvedPlace) []Record {
	out := make([]Record, 0, len(rps))
	for _, rp := range rps {
		out = append(out, FromResolved(rp))
	}
	return out
}

// Feature wraps the record of rp in a GeoJSON feature. The place's stored
// geometry is used when it decodes; otherwise its location becomes a point.
func Feature(rp model.ResolvedPlace) (*geojson.Feature, error) {
	rec := FromResolved(rp)
	var g geom.T = point(rec.Location)
	if len(rec.Geometry) > 0 {
		var decoded geom.T
		if err := geojson.Unmarshal(rec.Geometry, &decoded); err == nil && decoded != nil {
			g = decoded
		}
	}
	rec.Geometry = nil

	props, err := properties(rec)
	if err != nil {
		return nil, err
	}
	delete(props, "geometry")

	f := &geojson.Feature{
		ID:         strconv.FormatInt(rec.ID, 10),
		Geometry:   g,
		Properties: props,
	}
	if len(rp.Hit.BBox) == 4 {
		b := rp.Hit.BBox
		f.BBox = geom.NewBounds(geom.XY).Set(b[0], b[1], b[2], b[3])
	}
	return f, nil
}

// FeatureCollection wraps every resolved place.
func FeatureCollection(rps []model.ResolvedPlace) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rps))}
	for _, rp := range rps {
		f, err := Feature(rp)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

func point(loc model.Location) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{loc.Lon, loc.Lat})
}

// properties round-trips through JSON so null fields survive as keys.
func properties(rec Record) (map[string]interface{}, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "format: marshal record")
	}
	var props map[string]interface{}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, eris.Wrap(err, "format: decode record")
	}
	return props, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
