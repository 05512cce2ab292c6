// Package gazetteer converts Who's On First GeoJSON records into places
// and bulk-loads them into a place index.
package gazetteer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/sells-group/geopack/internal/model"
)

// MissingDataError marks a record that cannot be indexed because it has
// no resolvable coordinates.
type MissingDataError struct {
	ID     int64
	Reason string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("gazetteer: record %d: %s", e.ID, e.Reason)
}

type feature struct {
	ID         json.Number     `json:"id"`
	BBox       []float64       `json:"bbox"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// ParseFeature converts one WOF GeoJSON feature into a place.
func ParseFeature(data []byte) (model.Place, error) {
	var f feature
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return model.Place{}, eris.Wrap(err, "gazetteer: decode feature")
	}
	props := f.Properties
	if props == nil {
		props = map[string]any{}
	}

	id, ok := asInt(props["wof:id"])
	if !ok {
		if id, ok = asInt(f.ID); !ok {
			return model.Place{}, eris.New("gazetteer: feature has no id")
		}
	}

	g := decodeGeometry(f.Geometry)
	loc, ok := location(props, g)
	if !ok {
		return model.Place{}, &MissingDataError{ID: id, Reason: "could not find latitude and longitude"}
	}

	p := model.Place{
		ID:          id,
		Name:        asString(props["wof:name"]),
		Placetype:   model.Placetype(asString(props["wof:placetype"])),
		Belongsto:   asInts(props["wof:belongsto"]),
		Hierarchy:   hierarchy(props["wof:hierarchy"]),
		Location:    loc,
		BBox:        bbox(f.BBox, props, g),
		Geomhash:    asString(props["wof:geomhash"]),
		IsoCountry:  strings.ToUpper(asString(props["iso:country"])),
		Country:     asString(props["wof:country"]),
		Area:        asFloatPtr(props["geom:area"]),
		AreaSquareM: asFloatPtr(props["geom:area_square_m"]),
		Timezone:    timezone(props),
		Population:  population(props),
		Tags:        asStrings(props["wof:tags"]),
	}
	if pid, ok := asInt(props["wof:parent_id"]); ok && pid > 0 {
		p.ParentID = &pid
	}
	if g != nil {
		p.Geometry = slices.Clone(f.Geometry)
	}
	p.Names, p.NamesLang = names(props)
	if p.Name == "" && len(p.Names) > 0 {
		p.Name = p.Names[0]
	}
	if p.Country == "" || strings.EqualFold(p.Country, p.IsoCountry) {
		p.Country = CountryName(p.IsoCountry)
	}
	return p, nil
}

// CountryName returns the English name for an ISO 3166 code, or the code
// itself when it is unknown.
func CountryName(iso string) string {
	if iso == "" {
		return ""
	}
	region, err := language.ParseRegion(iso)
	if err != nil {
		return iso
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return iso
}

// LangKey maps a WOF language tag ("fra", "eng_x") to the two-letter key
// used in names_lang. Unknown tags fall back to their first two letters.
func LangKey(tag string) string {
	tag = strings.ToLower(strings.SplitN(tag, "_", 2)[0])
	if base, err := language.ParseBase(tag); err == nil {
		if s := base.String(); len(s) == 2 {
			return s
		}
	}
	if len(tag) > 2 {
		return tag[:2]
	}
	return tag
}

func decodeGeometry(raw json.RawMessage) geom.T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil
	}
	return g
}

func location(props map[string]any, g geom.T) (model.Location, bool) {
	if lat, ok := asFloat(props["geom:latitude"]); ok {
		if lon, ok := asFloat(props["geom:longitude"]); ok {
			return model.Location{Lat: lat, Lon: lon}, true
		}
	}
	// Other schemas, always as a pair from the same prefix.
	for _, key := range sortedKeys(props) {
		schema, ok := strings.CutSuffix(key, ":latitude")
		if !ok {
			continue
		}
		lat, ok := asFloat(props[key])
		if !ok {
			continue
		}
		if lon, ok := asFloat(props[schema+":longitude"]); ok {
			return model.Location{Lat: lat, Lon: lon}, true
		}
	}
	if pt, ok := g.(*geom.Point); ok && len(pt.FlatCoords()) >= 2 {
		c := pt.FlatCoords()
		return model.Location{Lat: c[1], Lon: c[0]}, true
	}
	return model.Location{}, false
}

func bbox(top []float64, props map[string]any, g geom.T) []float64 {
	if len(top) == 4 {
		return top
	}
	if s := asString(props["geom:bbox"]); s != "" {
		parts := strings.Split(s, ",")
		out := make([]float64, 0, len(parts))
		for _, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				out = nil
				break
			}
			out = append(out, v)
		}
		if len(out) == 4 {
			return out
		}
	}
	if g != nil && !g.Bounds().IsEmpty() {
		b := g.Bounds()
		return []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	}
	return nil
}

// names collects every "*:name" value and the "name:<lang>_preferred" and
// "name:<lang>_variant" lists, the latter also grouped by language.
func names(props map[string]any) ([]string, map[string][]string) {
	var all []string
	byLang := map[string][]string{}
	seen := map[string]bool{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			all = append(all, v)
		}
	}

	for _, key := range sortedKeys(props) {
		vals := asStrings(props[key])
		if strings.HasSuffix(key, ":name") {
			for _, v := range vals {
				add(v)
			}
		}
		tag, ok := strings.CutPrefix(key, "name:")
		if !ok || !(strings.HasSuffix(tag, "_preferred") || strings.HasSuffix(tag, "_variant")) {
			continue
		}
		lang := LangKey(tag)
		for _, v := range vals {
			add(v)
			if !slices.Contains(byLang[lang], v) {
				byLang[lang] = append(byLang[lang], v)
			}
		}
	}
	if len(byLang) == 0 {
		byLang = nil
	}
	return all, byLang
}

func population(props map[string]any) *int64 {
	if n, ok := asInt(props["wof:population"]); ok {
		return &n
	}
	for _, key := range sortedKeys(props) {
		if strings.HasSuffix(key, ":population") {
			if n, ok := asInt(props[key]); ok {
				return &n
			}
		}
	}
	return nil
}

func timezone(props map[string]any) string {
	for _, key := range sortedKeys(props) {
		if _, field, ok := strings.Cut(key, ":"); ok && strings.EqualFold(field, "timezone") {
			if tz := asString(props[key]); tz != "" {
				return tz
			}
		}
	}
	return ""
}

var hierarchyLevels = []string{
	model.LevelNeighbourhood, model.LevelLocality, model.LevelMetro,
	model.LevelCounty, model.LevelRegion, model.LevelCountry, model.LevelContinent,
}

func hierarchy(v any) []model.Hierarchy {
	list, _ := v.([]any)
	out := make([]model.Hierarchy, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var h model.Hierarchy
		for _, level := range hierarchyLevels {
			id, ok := asInt(m[level+"_id"])
			if !ok || id <= 0 {
				continue
			}
			switch level {
			case model.LevelNeighbourhood:
				h.NeighbourhoodID = &id
			case model.LevelLocality:
				h.LocalityID = &id
			case model.LevelMetro:
				h.MetroID = &id
			case model.LevelCounty:
				h.CountyID = &id
			case model.LevelRegion:
				h.RegionID = &id
			case model.LevelCountry:
				h.CountryID = &id
			case model.LevelContinent:
				h.ContinentID = &id
			}
		}
		out = append(out, h)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	}
	return ""
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

func asInt(v any) (int64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

func asInts(v any) []int64 {
	list, _ := v.([]any)
	out := make([]int64, 0, len(list))
	for _, item := range list {
		if n, ok := asInt(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func asFloatPtr(v any) *float64 {
	if f, ok := asFloat(v); ok {
		return &f
	}
	return nil
}
