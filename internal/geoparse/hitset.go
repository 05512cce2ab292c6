package geoparse

import "github.com/sells-group/geopack/internal/model"

// HitKey identifies a hit within one text. The same index record found by
// two place strings is two entries.
type HitKey struct {
	Place string
	ID    int64
}

// HitSet is the working collection for one disambiguation: every hit by
// key, plus the ids each place string produced in discovery order.
type HitSet struct {
	Hits  map[HitKey]model.Hit
	Order []string
	IDs   map[string][]int64
}

// NewHitSet returns an empty set.
func NewHitSet() *HitSet {
	return &HitSet{
		Hits: map[HitKey]model.Hit{},
		IDs:  map[string][]int64{},
	}
}

// Add records the hits found for place. A place string seen before is
// ignored, so repeated mentions share one entry. A place with no hits is
// still recorded.
func (s *HitSet) Add(place string, hits []model.Hit) {
	if _, ok := s.IDs[place]; ok {
		return
	}
	s.Order = append(s.Order, place)
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		k := HitKey{Place: place, ID: h.ID}
		if _, dup := s.Hits[k]; dup {
			continue
		}
		s.Hits[k] = h
		ids = append(ids, h.ID)
	}
	s.IDs[place] = ids
}

// Get returns the hit with id found for place.
func (s *HitSet) Get(place string, id int64) (model.Hit, bool) {
	h, ok := s.Hits[HitKey{Place: place, ID: id}]
	return h, ok
}

// Len is the number of hits across all place strings.
func (s *HitSet) Len() int { return len(s.Hits) }

// AncestorIDs returns the distinct belongsto ids of every hit, in
// discovery order.
func (s *HitSet) AncestorIDs() []int64 {
	seen := map[int64]bool{}
	var out []int64
	for _, place := range s.Order {
		for _, id := range s.IDs[place] {
			for _, a := range s.Hits[HitKey{Place: place, ID: id}].Belongsto {
				if !seen[a] {
					seen[a] = true
					out = append(out, a)
				}
			}
		}
	}
	return out
}
