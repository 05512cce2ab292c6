package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geopack/internal/model"
)

var wofFixtures = map[string]string{
	"85633041.geojson": `{"properties": {"wof:id": 85633041, "wof:name": "Canada", "wof:placetype": "country",
		"iso:country": "CA", "geom:latitude": 61.36, "geom:longitude": -98.3, "wof:population": 38000000}}`,
	"85682057.geojson": `{"properties": {"wof:id": 85682057, "wof:name": "Ontario", "wof:placetype": "region",
		"wof:belongsto": [85633041], "iso:country": "CA", "geom:latitude": 50, "geom:longitude": -86}}`,
	"136251273.geojson": `{"properties": {"wof:id": 136251273, "wof:name": "Nunavut", "wof:placetype": "region",
		"wof:belongsto": [85633041], "iso:country": "CA", "geom:latitude": 70.3, "geom:longitude": -83.1}}`,
	"101735835.geojson": `{"properties": {"wof:id": 101735835, "wof:name": "Ottawa", "wof:placetype": "locality",
		"wof:belongsto": [85682057, 85633041], "wof:hierarchy": [{"region_id": 85682057, "country_id": 85633041}],
		"iso:country": "CA", "geom:latitude": 45.42, "geom:longitude": -75.69, "wof:population": 812129}}`,
	"101728795.geojson": `{"properties": {"wof:id": 101728795, "wof:name": "Cambridge Bay", "wof:placetype": "locality",
		"wof:belongsto": [136251273, 85633041], "wof:hierarchy": [{"region_id": 136251273, "country_id": 85633041}],
		"iso:country": "CA", "geom:latitude": 69.1, "geom:longitude": -105.1, "wof:population": 1766}}`,
	"0.geojson": `{"properties": {"wof:id": 1, "wof:name": "Nowhere"}}`,
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCLI_LoadAndResolve(t *testing.T) {
	dir := chdirTemp(t, `
index:
  driver: sqlite
  database_url: places.db
log:
  level: error
  format: console
`)
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	for name, body := range wofFixtures {
		require.NoError(t, os.WriteFile(filepath.Join(data, name), []byte(body), 0o644))
	}

	execute(t, "migrate")
	out := execute(t, "load", data, "--workers", "2", "--batch-size", "2")
	assert.Equal(t, "files=6 loaded=5 skipped=1 failed=0", strings.TrimSpace(out))

	out = execute(t, "geotag", "--region", "Flooding near Ottawa and Cambridge Bay of Nunavut")
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Ottawa", records[0]["name"])
	assert.Equal(t, "Ontario", records[0]["region"])
	assert.EqualValues(t, 14, records[0]["start_char"])
	assert.Equal(t, "Cambridge Bay", records[1]["name"])
	assert.Equal(t, "Nunavut", records[1]["region"])
	assert.Contains(t, records[1], "area")
	assert.Nil(t, records[1]["area"])

	out = execute(t, "geoplace", "--geojson", "Ottawa")
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "101735835", fc.Features[0].ID)
	assert.Equal(t, string(model.PlacetypeLocality), fc.Features[0].Properties["placetype"])
}

func TestReadText(t *testing.T) {
	text, err := readText(strings.NewReader("from stdin"), []string{"Ottawa", "and", "Paris"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Ottawa and Paris", text)

	text, err = readText(strings.NewReader("from stdin"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))
	text, err = readText(strings.NewReader(""), nil, path)
	require.NoError(t, err)
	assert.Equal(t, "from file", text)

	html := filepath.Join(t.TempDir(), "in.html")
	require.NoError(t, os.WriteFile(html, []byte("<body><p>Flooding near <b>Ottawa</b></p></body>"), 0o644))
	text, err = readText(strings.NewReader(""), nil, html)
	require.NoError(t, err)
	assert.Equal(t, "Flooding near Ottawa", text)

	_, err = readText(nil, nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, nil, false))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))

	buf.Reset()
	require.NoError(t, writeResults(&buf, nil, true))
	assert.Contains(t, buf.String(), `"FeatureCollection"`)
}
