// Package placeindex is the boundary to the gazetteer search index. The
// disambiguation core only depends on the Index interface; Postgres and
// SQLite backends, a Redis read-through cache and a retrying decorator
// implement or wrap it.
package placeindex

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geopack/internal/model"
)

// WildcardLang is the "unknown language" code; it never narrows a search.
const WildcardLang = "xx"

// DefaultLimit is the per-query hit cap.
const DefaultLimit = 10

// DefaultSortKeys orders by descending population, then relevance.
var DefaultSortKeys = []string{"-population", "-_score"}

// DefaultSourceFields is the projection requested from the index.
var DefaultSourceFields = []string{
	"name", "placetype", "belongsto", "hierarchy", "location",
	"iso_country", "country", "area", "area_square_m", "geomhash",
	"timezone", "population", "geometry",
}

// Query is a multi-field place-name search.
type Query struct {
	Text         string
	Lang         string
	Limit        int
	SortKeys     []string
	SourceFields []string
}

// UsesLang reports whether the language-specific names field is searched.
func (q Query) UsesLang() bool {
	return q.Lang != "" && q.Lang != WildcardLang
}

// Normalized fills defaults for zero-valued options.
func (q Query) Normalized() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if len(q.SortKeys) == 0 {
		q.SortKeys = DefaultSortKeys
	}
	if len(q.SourceFields) == 0 {
		q.SourceFields = DefaultSourceFields
	}
	q.Lang = strings.ToLower(strings.TrimSpace(q.Lang))
	return q
}

// Index is a read-only place search backend.
type Index interface {
	// Search matches q.Text against name, names and, when q.UsesLang,
	// names_lang.<lang>. At most q.Limit hits, ordered by q.SortKeys.
	Search(ctx context.Context, q Query) ([]model.Hit, error)

	// Lookup fetches records by exact id with the given projection. Missing
	// ids are silently absent from the result.
	Lookup(ctx context.Context, ids []int64, fields []string) ([]model.Hit, error)
}

// Writer loads gazetteer records into a backend.
type Writer interface {
	Migrate(ctx context.Context) error
	Upsert(ctx context.Context, places []model.Place) (int64, error)
}

// Store is a backend that can be both searched and loaded.
type Store interface {
	Index
	Writer
	Close() error
}

// Names resolves display names for ids with a single batched lookup.
func Names(ctx context.Context, idx Index, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	hits, err := idx.Lookup(ctx, ids, []string{"name"})
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		if h.Name != "" {
			out[h.ID] = h.Name
		}
	}
	return out, nil
}

type sortKey struct {
	field string
	desc  bool
}

var sortable = map[string]bool{
	"population": true,
	"_score":     true,
	"name":       true,
	"area":       true,
}

func parseSortKeys(keys []string) ([]sortKey, error) {
	out := make([]sortKey, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		desc := strings.HasPrefix(k, "-")
		field := strings.TrimPrefix(k, "-")
		if !sortable[field] {
			return nil, eris.Errorf("placeindex: unsupported sort key %q", k)
		}
		out = append(out, sortKey{field: field, desc: desc})
	}
	return out, nil
}

func wants(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
