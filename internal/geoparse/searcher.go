package geoparse

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/placeindex"
	"github.com/sells-group/geopack/internal/textclean"
)

type memoKey struct {
	place string
	lang  string
}

// Searcher issues one index query per distinct place string. It memoizes
// results, empty ones included, for its own lifetime, so build one per
// text-processing call.
type Searcher struct {
	idx  placeindex.Index
	opts SearchOptions
	memo map[memoKey][]model.Hit
}

// NewSearcher returns a request-scoped searcher over idx.
func NewSearcher(idx placeindex.Index, opts SearchOptions) *Searcher {
	return &Searcher{idx: idx, opts: opts.Merge(), memo: map[memoKey][]model.Hit{}}
}

// Search returns at most Limit hits for place, ordered by the sort keys
// (population, then relevance, by default). lang narrows the search to
// that language's names unless it is empty or the wildcard code. A failed
// index round-trip surfaces as placeindex.IndexUnavailableError; zero
// hits is an empty, non-nil slice.
func (s *Searcher) Search(ctx context.Context, place, lang string) ([]model.Hit, error) {
	clean := textclean.Clean(place)
	if clean == "" {
		return nil, ErrEmptyPlace
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = placeindex.WildcardLang
	}

	key := memoKey{place: clean, lang: lang}
	if hits, ok := s.memo[key]; ok {
		return hits, nil
	}

	hits, err := s.idx.Search(ctx, placeindex.Query{
		Text:         clean,
		Lang:         lang,
		Limit:        s.opts.Limit,
		SortKeys:     s.opts.SortKeys,
		SourceFields: s.opts.SourceFields,
	})
	if placeindex.IsUnavailable(err) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrapf(err, "geoparse: search %q", clean)
	}

	hits = slices.Clone(hits)
	sortHits(hits, s.opts.SortKeys)
	if len(hits) > s.opts.Limit {
		hits = hits[:s.opts.Limit]
	}
	if hits == nil {
		hits = []model.Hit{}
	}
	s.memo[key] = hits

	zap.L().Debug("geoparse: search",
		zap.String("place", clean),
		zap.String("lang", lang),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// Len reports how many distinct queries were issued.
func (s *Searcher) Len() int { return len(s.memo) }

// sortHits stable-sorts by the given keys; absent values sort last and
// ties keep index order.
func sortHits(hits []model.Hit, keys []string) {
	slices.SortStableFunc(hits, func(a, b model.Hit) int {
		for _, k := range keys {
			desc := strings.HasPrefix(k, "-")
			var c int
			switch strings.TrimPrefix(k, "-") {
			case "population":
				c = compareOptional(a.Population, b.Population, desc)
			case "area":
				c = compareOptional(a.Area, b.Area, desc)
			case "_score":
				c = directed(cmp.Compare(a.Score, b.Score), desc)
			case "name":
				c = directed(strings.Compare(a.Name, b.Name), desc)
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareOptional[T cmp.Ordered](a, b *T, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return directed(cmp.Compare(*a, *b), desc)
}

func directed(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}
