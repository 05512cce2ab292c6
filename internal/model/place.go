// Package model defines the place records exchanged between the index,
// the disambiguation core and the output formatter.
package model

import (
	"encoding/json"
	"strings"
)

// Placetype is the administrative or geographic category of a place.
type Placetype string

const (
	PlacetypeEmpire        Placetype = "empire"
	PlacetypeContinent     Placetype = "continent"
	PlacetypeCountry       Placetype = "country"
	PlacetypeMacroregion   Placetype = "macroregion"
	PlacetypeRegion        Placetype = "region"
	PlacetypeMacrocounty   Placetype = "macrocounty"
	PlacetypeCounty        Placetype = "county"
	PlacetypeMetroArea     Placetype = "metro area"
	PlacetypeLocalAdmin    Placetype = "localadmin"
	PlacetypeLocality      Placetype = "locality"
	PlacetypeBorough       Placetype = "borough"
	PlacetypeMacrohood     Placetype = "macrohood"
	PlacetypeNeighbourhood Placetype = "neighbourhood"
	PlacetypeMicrohood     Placetype = "microhood"
	PlacetypeCampus        Placetype = "campus"
	PlacetypeBuilding      Placetype = "building"
	PlacetypeAddress       Placetype = "address"
	PlacetypeVenue         Placetype = "venue"
)

// Hierarchy levels addressable through Hierarchy.ID.
const (
	LevelNeighbourhood = "neighbourhood"
	LevelLocality      = "locality"
	LevelMetro         = "metro"
	LevelCounty        = "county"
	LevelRegion        = "region"
	LevelCountry       = "country"
	LevelContinent     = "continent"
)

// Location is a WGS84 lat/lon pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Hierarchy holds ancestor ids by level. Any level may be absent.
type Hierarchy struct {
	NeighbourhoodID *int64 `json:"neighbourhood_id,omitempty"`
	LocalityID      *int64 `json:"locality_id,omitempty"`
	MetroID         *int64 `json:"metro_id,omitempty"`
	CountyID        *int64 `json:"county_id,omitempty"`
	RegionID        *int64 `json:"region_id,omitempty"`
	CountryID       *int64 `json:"country_id,omitempty"`
	ContinentID     *int64 `json:"continent_id,omitempty"`
}

// ID returns the ancestor id recorded for level (e.g. "county").
func (h Hierarchy) ID(level string) (int64, bool) {
	var p *int64
	switch strings.TrimSuffix(strings.ToLower(level), "_id") {
	case LevelNeighbourhood:
		p = h.NeighbourhoodID
	case LevelLocality:
		p = h.LocalityID
	case LevelMetro:
		p = h.MetroID
	case LevelCounty:
		p = h.CountyID
	case LevelRegion:
		p = h.RegionID
	case LevelCountry:
		p = h.CountryID
	case LevelContinent:
		p = h.ContinentID
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Place is a gazetteer record as stored in the place index.
type Place struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Names       []string            `json:"names,omitempty"`
	NamesLang   map[string][]string `json:"names_lang,omitempty"`
	Placetype   Placetype           `json:"placetype"`
	Belongsto   []int64             `json:"belongsto"`
	Hierarchy   []Hierarchy         `json:"hierarchy"`
	ParentID    *int64              `json:"parent_id,omitempty"`
	Location    Location            `json:"location"`
	Geometry    json.RawMessage     `json:"geometry,omitempty"`
	BBox        []float64           `json:"bbox,omitempty"`
	Geomhash    string              `json:"geomhash,omitempty"`
	IsoCountry  string              `json:"iso_country,omitempty"`
	Country     string              `json:"country,omitempty"`
	Area        *float64            `json:"area,omitempty"`
	AreaSquareM *float64            `json:"area_square_m,omitempty"`
	Timezone    string              `json:"timezone,omitempty"`
	Population  *int64              `json:"population,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

// PrimaryHierarchy returns the first hierarchy entry, if any.
func (p Place) PrimaryHierarchy() (Hierarchy, bool) {
	if len(p.Hierarchy) == 0 {
		return Hierarchy{}, false
	}
	return p.Hierarchy[0], true
}

// Hit is a candidate place returned by a single index query.
type Hit struct {
	Place
	Score float64 `json:"_score"`
}

// Project clears every optional field not listed in fields. Identity,
// score, name, placetype and location are always kept.
func (h *Hit) Project(fields []string) {
	if len(fields) == 0 {
		return
	}
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	if !keep["names"] {
		h.Names = nil
	}
	if !keep["names_lang"] {
		h.NamesLang = nil
	}
	if !keep["belongsto"] {
		h.Belongsto = []int64{}
	}
	if !keep["hierarchy"] {
		h.Hierarchy = nil
	}
	if !keep["geometry"] {
		h.Geometry = nil
	}
	if !keep["bbox"] {
		h.BBox = nil
	}
	if !keep["geomhash"] {
		h.Geomhash = ""
	}
	if !keep["iso_country"] {
		h.IsoCountry = ""
	}
	if !keep["country"] {
		h.Country = ""
	}
	if !keep["area"] {
		h.Area = nil
	}
	if !keep["area_square_m"] {
		h.AreaSquareM = nil
	}
	if !keep["timezone"] {
		h.Timezone = ""
	}
	if !keep["population"] {
		h.Population = nil
	}
	if !keep["tags"] {
		h.Tags = nil
	}
}

// PlaceString is a normalized place name extracted from text.
type PlaceString struct {
	Raw   string `json:"text"`
	Clean string `json:"place"`
	Start int    `json:"start_char"`
	End   int    `json:"end_char"`
	Label string `json:"label"`
}

// ResolvedPlace is a winning hit annotated with the mention that produced it.
type ResolvedPlace struct {
	Hit    Hit
	Source PlaceString
	Region *string
}

// AncestorName is a resolved {id, name} pair for a belongsto entry.
type AncestorName struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
