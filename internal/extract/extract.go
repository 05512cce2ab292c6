// Package extract finds place-name mentions in free text. Backends
// implement Extractor; Places reduces their output to canonical place
// candidates.
package extract

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// Label is an entity category.
type Label string

// Canonical place labels. Every backend maps its native vocabulary onto
// these; anything else is not a place candidate.
const (
	LabelGPE Label = "GPE" // countries, cities, states
	LabelLOC Label = "LOC" // non-GPE locations: mountains, water bodies, regions
	LabelFAC Label = "FAC" // buildings, airports, bridges
)

// PlaceLabels is the canonical place-label set.
var PlaceLabels = []Label{LabelGPE, LabelLOC, LabelFAC}

// WildcardLang is used when no language is declared or recognized.
const WildcardLang = "xx"

// nativeLabels maps backend vocabularies onto the canonical set.
var nativeLabels = map[string]Label{
	"GPE":   LabelGPE,
	"LOC":   LabelLOC,
	"FAC":   LabelFAC,
	"I-LOC": LabelLOC,
	"B-LOC": LabelLOC,
	"B-GPE": LabelGPE,
	"I-GPE": LabelGPE,
	"B-FAC": LabelFAC,
	"I-FAC": LabelFAC,
}

// CanonicalLabel maps a backend label to the canonical set. ok is false
// for labels that never denote places (ORG, PERSON, I-ORG, ...).
func CanonicalLabel(native string) (Label, bool) {
	l, ok := nativeLabels[strings.ToUpper(strings.TrimSpace(native))]
	return l, ok
}

// IsPlace reports whether l is in the canonical place-label set.
func IsPlace(l Label) bool {
	for _, p := range PlaceLabels {
		if l == p {
			return true
		}
	}
	return false
}

// Span is a labeled entity. StartChar and EndChar are rune offsets into
// the source text, end exclusive.
type Span struct {
	Text      string `json:"text"`
	Label     Label  `json:"label"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// Extractor tags entity spans in text. lang is a two-letter code or
// WildcardLang. Spans come back in text order with canonical labels.
type Extractor interface {
	Extract(ctx context.Context, text, lang string) ([]Span, error)
}

// Places keeps spans with a place label and drops every span whose text is
// a strict substring of another kept span ("Kom" vs "Kom el-Shuqafa").
// Repeated identical mentions all survive, each with its own offsets.
func Places(spans []Span) []Span {
	candidates := make([]Span, 0, len(spans))
	for _, s := range spans {
		if IsPlace(s.Label) && strings.TrimSpace(s.Text) != "" {
			candidates = append(candidates, s)
		}
	}

	out := make([]Span, 0, len(candidates))
	for i, s := range candidates {
		contained := false
		for j, other := range candidates {
			if i == j || len(other.Text) <= len(s.Text) {
				continue
			}
			if strings.Contains(other.Text, s.Text) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeLang reduces a language tag ("en-US", "fra", "EN") to its
// two-letter base. Empty or unrecognized input yields WildcardLang.
func NormalizeLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, WildcardLang) {
		return WildcardLang
	}
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return WildcardLang
	}
	base, conf := tag.Base()
	if conf == language.No {
		return WildcardLang
	}
	s := base.String()
	if len(s) != 2 {
		return WildcardLang
	}
	return s
}
