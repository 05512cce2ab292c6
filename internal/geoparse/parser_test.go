package geoparse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geopack/internal/extract"
	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/placeindex"
)

func canadaPlaces() []model.Place {
	return []model.Place{
		{
			ID: idCanada, Name: "Canada", Placetype: model.PlacetypeCountry,
			Location: model.Location{Lat: 61.36, Lon: -98.3}, IsoCountry: "CA",
			Hierarchy:  []model.Hierarchy{{CountryID: ptr(idCanada)}},
			Population: ptr(int64(38000000)),
		},
		{
			ID: idOntario, Name: "Ontario", Placetype: model.PlacetypeRegion,
			Belongsto: []int64{idCanada}, Location: model.Location{Lat: 50, Lon: -86},
			Hierarchy: []model.Hierarchy{{RegionID: ptr(idOntario), CountryID: ptr(idCanada)}},
		},
		{
			ID: idNunavut, Name: "Nunavut", Placetype: model.PlacetypeRegion,
			Belongsto: []int64{idCanada}, Location: model.Location{Lat: 70.3, Lon: -83.1},
			Hierarchy: []model.Hierarchy{{RegionID: ptr(idNunavut), CountryID: ptr(idCanada)}},
		},
		{
			ID: idOttawa, Name: "Ottawa", Placetype: model.PlacetypeLocality,
			Belongsto: []int64{idOntario, idCanada}, Location: model.Location{Lat: 45.42, Lon: -75.69},
			Population: ptr(int64(812129)),
			Hierarchy: []model.Hierarchy{{
				CountyID: ptr(idOttawaCounty), RegionID: ptr(idOntario), CountryID: ptr(idCanada),
			}},
		},
		{
			ID: idOttawaCounty, Name: "Ottawa", Placetype: model.PlacetypeCounty,
			Belongsto: []int64{idOntario, idCanada}, Location: model.Location{Lat: 45.3, Lon: -75.8},
			Hierarchy: []model.Hierarchy{{CountyID: ptr(idOttawaCounty), RegionID: ptr(idOntario)}},
		},
		{
			ID: idCambridgeBay, Name: "Cambridge Bay", Placetype: model.PlacetypeLocality,
			Belongsto: []int64{idNunavut, idCanada}, Location: model.Location{Lat: 69.1, Lon: -105.1},
			Population: ptr(int64(1766)),
			Hierarchy:  []model.Hierarchy{{RegionID: ptr(idNunavut), CountryID: ptr(idCanada)}},
		},
	}
}

func newCanadaParser(t *testing.T) *GeoParser {
	t.Helper()
	lex, err := extract.DefaultLexicon()
	require.NoError(t, err)
	return NewGeoParser(newCanadaSQLite(t), extract.NewRules(lex), Config{})
}

func newCanadaSQLite(t *testing.T) *placeindex.SQLite {
	t.Helper()
	idx, err := placeindex.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ctx := context.Background()
	require.NoError(t, idx.Migrate(ctx))
	_, err = idx.Upsert(ctx, canadaPlaces())
	require.NoError(t, err)
	return idx
}

func TestParse_EndToEnd(t *testing.T) {
	p := newCanadaParser(t)

	got, err := p.Parse(context.Background(), "Flooding near Ottawa and Cambridge Bay of Nunavut", ParseOptions{Lang: "en", IncludeRegion: true})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, idOttawa, got[0].Hit.ID)
	assert.Equal(t, model.PlaceString{Raw: "Ottawa", Clean: "Ottawa", Start: 14, End: 20, Label: "GPE"}, got[0].Source)
	require.NotNil(t, got[0].Region)
	assert.Equal(t, "Ottawa", *got[0].Region)

	assert.Equal(t, idCambridgeBay, got[1].Hit.ID)
	assert.Equal(t, "Cambridge Bay", got[1].Source.Raw)
	assert.Equal(t, 25, got[1].Source.Start)
	require.NotNil(t, got[1].Region)
	assert.Equal(t, "Nunavut", *got[1].Region)
}

func TestParse_NoRegionByDefault(t *testing.T) {
	p := newCanadaParser(t)

	got, err := p.Parse(context.Background(), "Flooding near Ottawa", ParseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Region)
}

type stubExtractor struct {
	spans []extract.Span
	err   error
	langs []string
}

func (s *stubExtractor) Extract(_ context.Context, _ string, lang string) ([]extract.Span, error) {
	s.langs = append(s.langs, lang)
	return s.spans, s.err
}

func TestParse_RepeatedMentions(t *testing.T) {
	f := canadaIndex().on("Ottawa", ottawaLocality())
	ex := &stubExtractor{spans: []extract.Span{
		{Text: "Ottawa", Label: extract.LabelGPE, StartChar: 0, EndChar: 6},
		{Text: "  ", Label: extract.LabelGPE, StartChar: 7, EndChar: 9},
		{Text: "Ottawa", Label: extract.LabelGPE, StartChar: 20, EndChar: 26},
	}}
	p := NewGeoParser(f, ex, Config{})

	got, err := p.Parse(context.Background(), "Ottawa;  and again Ottawa", ParseOptions{Lang: "xx"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Source.Start)
	assert.Equal(t, 20, got[1].Source.Start)
	assert.Equal(t, got[0].Hit, got[1].Hit)
	assert.Len(t, f.searches, 1)
	assert.Equal(t, placeindex.WildcardLang, f.searches[0].Lang)
	assert.Equal(t, []string{"xx"}, ex.langs)
}

func TestParse_IndexUnavailableIsFatal(t *testing.T) {
	f := canadaIndex()
	f.searchErr = placeindex.Unavailable("search", errors.New("dial tcp: connection refused"))
	ex := &stubExtractor{spans: []extract.Span{{Text: "Ottawa", Label: extract.LabelGPE, EndChar: 6}}}

	_, err := NewGeoParser(f, ex, Config{}).Parse(context.Background(), "Ottawa", ParseOptions{})
	assert.True(t, placeindex.IsUnavailable(err))
}

func TestParse_ExtractError(t *testing.T) {
	ex := &stubExtractor{err: errors.New("model overloaded")}

	_, err := NewGeoParser(canadaIndex(), ex, Config{}).Parse(context.Background(), "Ottawa", ParseOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geoparse: extract")
}

func TestParse_NoExtractor(t *testing.T) {
	_, err := NewGeoParser(canadaIndex(), nil, Config{}).Parse(context.Background(), "Ottawa", ParseOptions{})
	assert.Error(t, err)
}

func TestParsePlace_Candidates(t *testing.T) {
	p := newCanadaParser(t)

	got, err := p.ParsePlace(context.Background(), "Ottawa", ParseOptions{IncludeRegion: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, idOttawa, got[0].Hit.ID)
	assert.Equal(t, idOttawaCounty, got[1].Hit.ID)
	assert.Equal(t, 6, got[0].Source.End)
	require.NotNil(t, got[1].Region)
	assert.Equal(t, "Ottawa", *got[1].Region)

	got, err = p.ParsePlace(context.Background(), "Ottawa", ParseOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = p.ParsePlace(context.Background(), " , ", ParseOptions{})
	assert.ErrorIs(t, err, ErrEmptyPlace)
}

func TestParsePlaces(t *testing.T) {
	p := newCanadaParser(t)

	got, err := p.ParsePlaces(context.Background(), []string{"Ottawa", "", "Canada", "Cambridge Bay"}, ParseOptions{})
	require.NoError(t, err)

	var names []int64
	for _, rp := range got {
		names = append(names, rp.Hit.ID)
	}
	// Canada is an ancestor of both other places.
	assert.Equal(t, []int64{idOttawa, idCambridgeBay}, names)
}

func TestParsePlaces_WhitespaceInsideNames(t *testing.T) {
	p := newCanadaParser(t)

	got, err := p.ParsePlaces(context.Background(), []string{"Cambridge\nBay", "\tOttawa\r\n"}, ParseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, idCambridgeBay, got[0].Hit.ID)
	assert.Equal(t, "Cambridge Bay", got[0].Source.Clean)
	assert.Equal(t, idOttawa, got[1].Hit.ID)
}

func TestParse_MentionSpanningTab(t *testing.T) {
	idx := newCanadaSQLite(t)
	text := "Landed in Cambridge\tBay today"
	ex := &stubExtractor{spans: []extract.Span{
		{Text: "Cambridge\tBay", Label: extract.LabelGPE, StartChar: 10, EndChar: 23},
	}}

	got, err := NewGeoParser(idx, ex, Config{}).Parse(context.Background(), text, ParseOptions{IncludeRegion: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, idCambridgeBay, got[0].Hit.ID)
	assert.Equal(t, "Cambridge\tBay", got[0].Source.Raw)
	assert.Equal(t, "Cambridge Bay", got[0].Source.Clean)
	require.NotNil(t, got[0].Region)
	assert.Equal(t, "Nunavut", *got[0].Region)
}
