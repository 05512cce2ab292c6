// Package geoparse resolves place mentions to gazetteer records. A
// GeoParser extracts candidate place strings from text, searches the place
// index for each, and keeps one hit per string using the other strings of
// the same text as context.
package geoparse

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geopack/internal/extract"
	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/placeindex"
	"github.com/sells-group/geopack/internal/textclean"
)

// Config holds the component options of a GeoParser.
type Config struct {
	Search       SearchOptions
	Disambiguate DisambiguateOptions
}

// ParseOptions are per-call settings.
type ParseOptions struct {
	// Lang is the declared language of the input; empty or "xx" for unknown.
	Lang string
	// IncludeRegion annotates each result with its display region.
	IncludeRegion bool
	// Limit overrides the configured hits per query when positive.
	Limit int
}

// GeoParser is safe for concurrent use; each call builds its own working
// state.
type GeoParser struct {
	idx       placeindex.Index
	extractor extract.Extractor
	cfg       Config
}

// NewGeoParser returns a parser over idx. extractor may be nil when only
// ParsePlace and ParsePlaces are used.
func NewGeoParser(idx placeindex.Index, extractor extract.Extractor, cfg Config) *GeoParser {
	cfg.Search = cfg.Search.Merge()
	cfg.Disambiguate = cfg.Disambiguate.Merge()
	return &GeoParser{idx: idx, extractor: extractor, cfg: cfg}
}

// Parse extracts place mentions from text and resolves each one. Every
// occurrence of a resolved place string yields its own result carrying its
// span. Index failures fail the call.
func (p *GeoParser) Parse(ctx context.Context, text string, opts ParseOptions) ([]model.ResolvedPlace, error) {
	if p.extractor == nil {
		return nil, eris.New("geoparse: no extractor configured")
	}
	log := zap.L().With(zap.String("request_id", uuid.NewString()))

	spans, err := p.extractor.Extract(ctx, text, opts.Lang)
	if err != nil {
		return nil, eris.Wrap(err, "geoparse: extract")
	}

	mentions := make([]model.PlaceString, 0, len(spans))
	for _, s := range spans {
		mentions = append(mentions, model.PlaceString{
			Raw:   s.Text,
			Clean: textclean.Clean(s.Text),
			Start: s.StartChar,
			End:   s.EndChar,
			Label: string(s.Label),
		})
	}

	out, err := p.resolve(ctx, log, mentions, opts)
	if err != nil {
		return nil, err
	}
	log.Info("geoparse: parsed text",
		zap.Int("spans", len(spans)),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// ParsePlaces resolves caller-provided place strings as if they had been
// found together in one text. Empty strings are skipped.
func (p *GeoParser) ParsePlaces(ctx context.Context, places []string, opts ParseOptions) ([]model.ResolvedPlace, error) {
	log := zap.L().With(zap.String("request_id", uuid.NewString()))

	mentions := make([]model.PlaceString, 0, len(places))
	for _, raw := range places {
		mentions = append(mentions, model.PlaceString{
			Raw:   raw,
			Clean: textclean.Clean(raw),
			End:   utf8.RuneCountInString(raw),
		})
	}
	out, err := p.resolve(ctx, log, mentions, opts)
	if err != nil {
		return nil, err
	}
	log.Info("geoparse: parsed places",
		zap.Int("places", len(places)),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// ParsePlace returns up to Limit candidates for a single place name, in
// search order, without disambiguation.
func (p *GeoParser) ParsePlace(ctx context.Context, query string, opts ParseOptions) ([]model.ResolvedPlace, error) {
	log := zap.L().With(zap.String("request_id", uuid.NewString()))

	searcher := NewSearcher(p.idx, p.searchOptions(opts))
	hits, err := searcher.Search(ctx, query, extract.NormalizeLang(opts.Lang))
	if err != nil {
		return nil, err
	}

	source := model.PlaceString{
		Raw:   query,
		Clean: textclean.Clean(query),
		End:   utf8.RuneCountInString(query),
	}
	resolver := NewResolver(p.idx)
	if opts.IncludeRegion {
		var ids []int64
		for _, h := range hits {
			ids = append(ids, h.Belongsto...)
		}
		if err := resolver.Prefetch(ctx, ids); err != nil {
			return nil, err
		}
	}

	out := make([]model.ResolvedPlace, 0, len(hits))
	for _, h := range hits {
		rp := model.ResolvedPlace{Hit: h, Source: source}
		if opts.IncludeRegion {
			rp.Region = resolver.ResolveRegion(ctx, h, resolver.BelongsToNames(h))
		}
		out = append(out, rp)
	}
	log.Info("geoparse: parsed place",
		zap.String("place", source.Clean),
		zap.Int("results", len(out)),
	)
	return out, nil
}

func (p *GeoParser) resolve(ctx context.Context, log *zap.Logger, mentions []model.PlaceString, opts ParseOptions) ([]model.ResolvedPlace, error) {
	searcher := NewSearcher(p.idx, p.searchOptions(opts))
	lang := extract.NormalizeLang(opts.Lang)

	set := NewHitSet()
	for _, m := range mentions {
		hits, err := searcher.Search(ctx, m.Clean, lang)
		if errors.Is(err, ErrEmptyPlace) {
			log.Debug("geoparse: skipped empty place string", zap.String("text", m.Raw))
			continue
		}
		if err != nil {
			return nil, err
		}
		set.Add(m.Clean, hits)
	}

	resolver := NewResolver(p.idx)
	winners, err := NewDisambiguator(resolver, p.cfg.Disambiguate).Disambiguate(ctx, set)
	if err != nil {
		return nil, err
	}
	log.Debug("geoparse: disambiguated",
		zap.Int("place_strings", len(set.Order)),
		zap.Int("queries", searcher.Len()),
		zap.Int("winners", len(winners)),
	)

	byPlace := make(map[string]Winner, len(winners))
	for _, w := range winners {
		byPlace[w.Place] = w
	}
	if opts.IncludeRegion {
		var ids []int64
		for _, w := range winners {
			ids = append(ids, w.Hit.Belongsto...)
		}
		if err := resolver.Prefetch(ctx, ids); err != nil {
			return nil, err
		}
	}

	out := make([]model.ResolvedPlace, 0, len(mentions))
	for _, m := range mentions {
		w, ok := byPlace[m.Clean]
		if !ok {
			continue
		}
		rp := model.ResolvedPlace{Hit: w.Hit, Source: m}
		if opts.IncludeRegion {
			ancestors := w.Ancestors
			if len(ancestors) == 0 {
				ancestors = resolver.BelongsToNames(w.Hit)
			}
			rp.Region = resolver.ResolveRegion(ctx, w.Hit, ancestors)
		}
		out = append(out, rp)
	}
	return out, nil
}

func (p *GeoParser) searchOptions(opts ParseOptions) SearchOptions {
	so := p.cfg.Search
	if opts.Limit > 0 {
		so.Limit = opts.Limit
	}
	return so
}
