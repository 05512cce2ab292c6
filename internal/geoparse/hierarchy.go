package geoparse

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/placeindex"
)

var (
	countyFirst = []model.Placetype{
		model.PlacetypeCounty,
		model.PlacetypeMetroArea,
		model.PlacetypeLocality,
		model.PlacetypeMacrohood,
		model.PlacetypeNeighbourhood,
		model.PlacetypeMicrohood,
		model.PlacetypeCampus,
		model.PlacetypeBuilding,
		model.PlacetypeAddress,
		model.PlacetypeVenue,
	}
	countryLevel = []model.Placetype{
		model.PlacetypeEmpire,
		model.PlacetypeCountry,
		model.PlacetypeMacroregion,
	}
)

// Resolver turns ancestor ids into display names. It remembers every name
// it has fetched, so it is request-scoped like the Searcher.
type Resolver struct {
	idx   placeindex.Index
	names map[int64]string
}

// NewResolver returns a resolver backed by idx.
func NewResolver(idx placeindex.Index) *Resolver {
	return &Resolver{idx: idx, names: map[int64]string{}}
}

// Prefetch fetches the names of ids not yet known in one batched lookup.
func (r *Resolver) Prefetch(ctx context.Context, ids []int64) error {
	var missing []int64
	for _, id := range ids {
		if _, ok := r.names[id]; !ok && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	names, err := placeindex.Names(ctx, r.idx, missing)
	if err != nil {
		return err
	}
	for _, id := range missing {
		// Unknown ids are remembered as empty so they are not asked again.
		r.names[id] = names[id]
	}
	return nil
}

// BelongsToNames returns the known names of hit's ancestors in belongsto
// order. Ancestors without a name are skipped.
func (r *Resolver) BelongsToNames(hit model.Hit) []model.AncestorName {
	out := make([]model.AncestorName, 0, len(hit.Belongsto))
	for _, id := range hit.Belongsto {
		if name := r.names[id]; name != "" {
			out = append(out, model.AncestorName{ID: id, Name: name})
		}
	}
	return out
}

// HierarchyAncestor returns the name of hit's ancestor at level. belongsTo
// is consulted first; otherwise the ancestor is looked up by id. A missing
// level or a failed lookup yields false.
func (r *Resolver) HierarchyAncestor(ctx context.Context, hit model.Hit, level string, belongsTo []model.AncestorName) (string, bool) {
	h, ok := hit.PrimaryHierarchy()
	if !ok {
		return "", false
	}
	id, ok := h.ID(level)
	if !ok {
		return "", false
	}
	for _, a := range belongsTo {
		if a.ID == id && a.Name != "" {
			return a.Name, true
		}
	}
	if name, ok := r.names[id]; ok {
		return name, name != ""
	}

	hits, err := r.idx.Lookup(ctx, []int64{id}, []string{"name"})
	if err != nil {
		zap.L().Debug("geoparse: ancestor lookup failed",
			zap.Int64("id", id),
			zap.String("level", level),
			zap.Error(err),
		)
		return "", false
	}
	for _, a := range hits {
		if a.ID == id && a.Name != "" {
			r.names[id] = a.Name
			return a.Name, true
		}
	}
	return "", false
}

// ResolveRegion picks the display region for hit by placetype: the county
// for local places (region if there is none), the country for countries
// and larger, the region for everything else. A hit with no resolvable
// ancestor is its own region. Nil only when the hit has no name either.
func (r *Resolver) ResolveRegion(ctx context.Context, hit model.Hit, belongsTo []model.AncestorName) *string {
	var levels []string
	switch {
	case slices.Contains(countyFirst, hit.Placetype):
		levels = []string{model.LevelCounty, model.LevelRegion}
	case slices.Contains(countryLevel, hit.Placetype):
		levels = []string{model.LevelCountry}
	default:
		levels = []string{model.LevelRegion}
	}
	for _, level := range levels {
		if name, ok := r.HierarchyAncestor(ctx, hit, level, belongsTo); ok {
			return &name
		}
	}
	if hit.Name == "" {
		return nil
	}
	name := hit.Name
	return &name
}
