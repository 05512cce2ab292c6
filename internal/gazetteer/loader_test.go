package gazetteer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geopack/internal/model"
)

type memWriter struct {
	mu      sync.Mutex
	batches [][]model.Place
	err     error
}

func (m *memWriter) Migrate(context.Context) error { return nil }

func (m *memWriter) Upsert(_ context.Context, places []model.Place) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.batches = append(m.batches, append([]model.Place(nil), places...))
	return int64(len(places)), nil
}

func (m *memWriter) ids() []int64 {
	var out []int64
	for _, b := range m.batches {
		for _, p := range b {
			out = append(out, p.ID)
		}
	}
	return out
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func wofDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "data/101/735/835/101735835.geojson", ottawaFeature)
	writeFile(t, dir, "data/101/728/795/101728795.geojson",
		`{"properties": {"wof:id": 101728795, "wof:name": "Cambridge Bay", "wof:placetype": "locality",
		"geom:latitude": 69.1, "geom:longitude": -105.1}}`)
	writeFile(t, dir, "data/136/251/273/136251273.geojson",
		`{"properties": {"wof:id": 136251273, "wof:name": "Nunavut", "wof:placetype": "region",
		"geom:latitude": 70.3, "geom:longitude": -83.1}}`)
	writeFile(t, dir, "data/101/735/835/101735835-alt-quattroshapes.geojson", ottawaFeature)
	writeFile(t, dir, "data/999/999.geojson", `{"properties": {"wof:id": 999, "wof:name": "Nowhere"}}`)
	writeFile(t, dir, "data/bad.geojson", `{not json`)
	writeFile(t, dir, "README.md", "# data")
	return dir
}

func TestLoadDir(t *testing.T) {
	w := &memWriter{}

	stats, err := LoadDir(context.Background(), w, wofDir(t), LoadOptions{Workers: 2, BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Files: 5, Loaded: 3, Skipped: 1, Failed: 1}, stats)
	assert.ElementsMatch(t, []int64{101735835, 101728795, 136251273}, w.ids())
	for _, b := range w.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
}

func TestLoadDir_IncludeAlt(t *testing.T) {
	w := &memWriter{}

	stats, err := LoadDir(context.Background(), w, wofDir(t), LoadOptions{IncludeAlt: true})
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Files)
	assert.Equal(t, int64(4), stats.Loaded)
}

func TestLoadDir_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ottawa.geojson", ottawaFeature)
	w := &memWriter{}

	stats, err := LoadDir(context.Background(), w, filepath.Join(dir, "ottawa.geojson"), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Loaded)
}

func TestLoadDir_WriteError(t *testing.T) {
	w := &memWriter{err: errors.New("disk full")}

	_, err := LoadDir(context.Background(), w, wofDir(t), LoadOptions{BatchSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestLoadDir_MissingRoot(t *testing.T) {
	_, err := LoadDir(context.Background(), &memWriter{}, filepath.Join(t.TempDir(), "nope"), LoadOptions{})
	assert.Error(t, err)
}
