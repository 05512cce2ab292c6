package geoparse

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/geopack/internal/model"
)

// Winner is the hit chosen for one place string.
type Winner struct {
	Place string
	Hit   model.Hit
	// Score is the hit's relevance after similarity boosting.
	Score     float64
	Ancestors []model.AncestorName
}

// Disambiguator picks one hit per place string using the other place
// strings of the same text as context.
type Disambiguator struct {
	resolver *Resolver
	opts     DisambiguateOptions
}

// NewDisambiguator returns a disambiguator that resolves ancestor names
// through resolver.
func NewDisambiguator(resolver *Resolver, opts DisambiguateOptions) *Disambiguator {
	return &Disambiguator{resolver: resolver, opts: opts.Merge()}
}

type candidate struct {
	key    HitKey
	hit    model.Hit
	seq    int
	tokens []string
}

type pair struct {
	a, b HitKey
	sim  float64
}

// Disambiguate returns the winners in place-string discovery order. A place
// string whose hits were all excluded has no winner. It fails only when an
// id listed for a place string is absent from the set.
func (d *Disambiguator) Disambiguate(ctx context.Context, set *HitSet) ([]Winner, error) {
	for _, place := range set.Order {
		for _, id := range set.IDs[place] {
			if _, ok := set.Get(place, id); !ok {
				return nil, &InternalConsistencyError{Place: place, ID: id}
			}
		}
	}

	if set.Len() == 1 {
		for _, place := range set.Order {
			for _, id := range set.IDs[place] {
				h, _ := set.Get(place, id)
				return []Winner{{Place: place, Hit: h, Score: h.Score}}, nil
			}
		}
	}

	surviving := d.dropContained(set)

	var ancestors []int64
	for _, place := range surviving {
		for _, id := range set.IDs[place] {
			h, _ := set.Get(place, id)
			ancestors = append(ancestors, h.Belongsto...)
		}
	}
	if err := d.resolver.Prefetch(ctx, ancestors); err != nil {
		return nil, err
	}

	var cands []candidate
	for _, place := range surviving {
		for _, id := range set.IDs[place] {
			h, _ := set.Get(place, id)
			cands = append(cands, candidate{
				key:    HitKey{Place: place, ID: id},
				hit:    h,
				seq:    len(cands),
				tokens: contextTokens(d.contextString(h), d.opts.Delimiter),
			})
		}
	}
	scores := d.boostedScores(cands)

	winners := make([]Winner, 0, len(surviving))
	for _, place := range surviving {
		var own []candidate
		for _, c := range cands {
			if c.key.Place == place {
				own = append(own, c)
			}
		}
		if len(own) == 0 {
			continue
		}
		best := slices.MinFunc(own, func(a, b candidate) int {
			if c := cmp.Compare(scores[b.key], scores[a.key]); c != 0 {
				return c
			}
			return cmp.Compare(a.seq, b.seq)
		})
		winners = append(winners, Winner{
			Place:     place,
			Hit:       best.hit,
			Score:     scores[best.key],
			Ancestors: d.resolver.BelongsToNames(best.hit),
		})
	}
	return winners, nil
}

// dropContained removes every place string that has a hit which is an
// ancestor of some hit in the set.
func (d *Disambiguator) dropContained(set *HitSet) []string {
	contained := map[int64]bool{}
	for _, id := range set.AncestorIDs() {
		contained[id] = true
	}
	out := make([]string, 0, len(set.Order))
	for _, place := range set.Order {
		high := slices.IndexFunc(set.IDs[place], func(id int64) bool { return contained[id] })
		if high >= 0 {
			zap.L().Debug("geoparse: dropped contained branch",
				zap.String("place", place),
				zap.Int64("ancestor_id", set.IDs[place][high]),
			)
			continue
		}
		out = append(out, place)
	}
	return out
}

func (d *Disambiguator) contextString(h model.Hit) string {
	var parts []string
	for _, a := range d.resolver.BelongsToNames(h) {
		parts = append(parts, a.Name)
	}
	parts = append(parts, h.Name)
	return strings.Join(parts, d.opts.Delimiter)
}

// boostedScores compares every pair of surviving hits, same place string
// included, and multiplies both hits of each of the most similar pairs by
// sim*Boost. A hit returned for two place strings is not paired with
// itself. The hits' own scores are not modified.
func (d *Disambiguator) boostedScores(cands []candidate) map[HitKey]float64 {
	scores := make(map[HitKey]float64, len(cands))
	for _, c := range cands {
		scores[c.key] = c.hit.Score
	}

	var pairs []pair
	for i, a := range cands {
		for _, b := range cands[i+1:] {
			if a.hit.ID == b.hit.ID {
				continue
			}
			if sim := TokenSimilarity(a.tokens, b.tokens, d.opts.Threshold); sim > 0 {
				pairs = append(pairs, pair{a: a.key, b: b.key, sim: sim})
			}
		}
	}
	slices.SortStableFunc(pairs, func(x, y pair) int { return cmp.Compare(y.sim, x.sim) })
	if len(pairs) > d.opts.PairLimit {
		pairs = pairs[:d.opts.PairLimit]
	}
	for i := 0; i < len(pairs) && i < d.opts.TopPairs; i++ {
		boost := pairs[i].sim * d.opts.Boost
		scores[pairs[i].a] *= boost
		scores[pairs[i].b] *= boost
	}
	return scores
}
