package geoparse

import (
	"context"
	"slices"

	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/placeindex"
)

// fakeIndex answers searches from a fixed table keyed by query text.
type fakeIndex struct {
	results   map[string][]model.Hit
	places    map[int64]model.Hit
	searchErr error
	lookupErr error

	searches []placeindex.Query
	lookups  [][]int64
}

func newFakeIndex(places ...model.Hit) *fakeIndex {
	f := &fakeIndex{results: map[string][]model.Hit{}, places: map[int64]model.Hit{}}
	for _, p := range places {
		f.places[p.ID] = p
	}
	return f
}

func (f *fakeIndex) on(text string, hits ...model.Hit) *fakeIndex {
	f.results[text] = hits
	return f
}

func (f *fakeIndex) Search(_ context.Context, q placeindex.Query) ([]model.Hit, error) {
	f.searches = append(f.searches, q)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits := slices.Clone(f.results[q.Text])
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (f *fakeIndex) Lookup(_ context.Context, ids []int64, _ []string) ([]model.Hit, error) {
	f.lookups = append(f.lookups, slices.Clone(ids))
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []model.Hit
	for _, id := range ids {
		if p, ok := f.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }

func hit(id int64, name string, pt model.Placetype, score float64, belongsto ...int64) model.Hit {
	if belongsto == nil {
		belongsto = []int64{}
	}
	return model.Hit{
		Place: model.Place{ID: id, Name: name, Placetype: pt, Belongsto: belongsto},
		Score: score,
	}
}

func ids(winners []Winner) []int64 {
	out := make([]int64, 0, len(winners))
	for _, w := range winners {
		out = append(out, w.Hit.ID)
	}
	return out
}
