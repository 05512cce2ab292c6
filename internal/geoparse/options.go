package geoparse

import (
	"slices"

	"github.com/sells-group/geopack/internal/placeindex"
)

// SearchOptions configures the Candidate Searcher.
type SearchOptions struct {
	// Limit is the maximum number of hits per place string.
	Limit int
	// SortKeys are ordered tie-break fields, "-" for descending.
	SortKeys []string
	// SourceFields is the projection requested from the index.
	SourceFields []string
}

// DefaultSearchOptions returns the stock search settings.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit:        placeindex.DefaultLimit,
		SortKeys:     slices.Clone(placeindex.DefaultSortKeys),
		SourceFields: slices.Clone(placeindex.DefaultSourceFields),
	}
}

// Merge overrides the defaults with the non-zero fields of o.
func (o SearchOptions) Merge() SearchOptions {
	out := DefaultSearchOptions()
	if o.Limit > 0 {
		out.Limit = o.Limit
	}
	if len(o.SortKeys) > 0 {
		out.SortKeys = slices.Clone(o.SortKeys)
	}
	if len(o.SourceFields) > 0 {
		out.SourceFields = slices.Clone(o.SourceFields)
	}
	return out
}

// DisambiguateOptions tunes the similarity boost.
type DisambiguateOptions struct {
	// Threshold is the fuzzy similarity at which two context tokens match.
	Threshold float64
	// PairLimit caps the comparison pairs considered, most similar first.
	PairLimit int
	// TopPairs is how many of those pairs boost their hits.
	TopPairs int
	// Boost scales similarity into a score multiplier.
	Boost float64
	// Delimiter joins ancestor names into a context token string.
	Delimiter string
}

// DefaultDisambiguateOptions returns the stock disambiguation settings.
func DefaultDisambiguateOptions() DisambiguateOptions {
	return DisambiguateOptions{
		Threshold: 0.9,
		PairLimit: 10,
		TopPairs:  2,
		Boost:     10,
		Delimiter: ",",
	}
}

// Merge overrides the defaults with the non-zero fields of o.
func (o DisambiguateOptions) Merge() DisambiguateOptions {
	out := DefaultDisambiguateOptions()
	if o.Threshold > 0 {
		out.Threshold = o.Threshold
	}
	if o.PairLimit > 0 {
		out.PairLimit = o.PairLimit
	}
	if o.TopPairs > 0 {
		out.TopPairs = o.TopPairs
	}
	if o.Boost > 0 {
		out.Boost = o.Boost
	}
	if o.Delimiter != "" {
		out.Delimiter = o.Delimiter
	}
	return out
}
