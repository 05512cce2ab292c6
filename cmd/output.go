package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geopack/internal/format"
	"github.com/sells-group/geopack/internal/model"
)

// writeResults prints resolved places as indented JSON, either as flat
// records or as a GeoJSON FeatureCollection.
func writeResults(w io.Writer, rps []model.ResolvedPlace, asGeoJSON bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if asGeoJSON {
		fc, err := format.FeatureCollection(rps)
		if err != nil {
			return err
		}
		return eris.Wrap(enc.Encode(fc), "write geojson")
	}
	return eris.Wrap(enc.Encode(format.Records(rps)), "write records")
}
