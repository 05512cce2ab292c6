package extract

import (
	"context"
	"strings"
	"unicode"

	"github.com/sells-group/geopack/internal/textclean"
)

// Rules is a dependency-free extractor: runs of capitalized words (with
// lexicon connectors such as "upon" or "de") become candidate names.
// A single capitalized word opening a sentence is only kept when the
// lexicon knows it. Safe for concurrent use.
type Rules struct {
	base  *ruleSet
	langs map[string]*ruleSet
}

var _ Extractor = (*Rules)(nil)

// NewRules compiles lex for its base rules and every language section.
func NewRules(lex *Lexicon) *Rules {
	r := &Rules{base: lex.compile(""), langs: map[string]*ruleSet{}}
	for lang := range lex.Languages {
		r.langs[NormalizeLang(lang)] = lex.compile(lang)
	}
	return r
}

func (r *Rules) rulesFor(lang string) *ruleSet {
	if rs, ok := r.langs[NormalizeLang(lang)]; ok {
		return rs
	}
	return r.base
}

type word struct {
	text       string
	start, end int // rune offsets
	joinable   bool
	opening    bool // first word of a sentence
}

// Extract implements Extractor.
func (r *Rules) Extract(ctx context.Context, text, lang string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs := r.rulesFor(lang)
	runes := []rune(text)
	words := splitWords(runes)

	var spans []Span
	for i := 0; i < len(words); i++ {
		w := words[i]
		if !rs.startsName(w) {
			continue
		}
		last := i
		for k := i + 1; k < len(words); k++ {
			next := words[k]
			if !next.joinable {
				break
			}
			if rs.startsName(next) {
				last = k
				continue
			}
			if rs.connectors[next.text] && k+1 < len(words) && words[k+1].joinable && rs.startsName(words[k+1]) {
				last = k + 1
				k++
				continue
			}
			break
		}

		name := string(runes[w.start:words[last].end])
		folded := textclean.Fold(name)
		label, known := rs.places[folded]
		if !known {
			if last == i && w.opening && !rs.listHead(runes, words, i) {
				continue
			}
			label = rs.classify(words[last].text)
		}
		spans = append(spans, Span{Text: name, Label: label, StartChar: w.start, EndChar: words[last].end})
		i = last
	}
	return spans, nil
}

func (rs *ruleSet) startsName(w word) bool {
	first := []rune(w.text)[0]
	return (unicode.IsUpper(first) || unicode.IsTitle(first)) && !rs.ignore[w.text]
}

// listHead reports whether words[i] is directly followed by a comma and
// another name, as in "Ottawa, Tarbutt".
func (rs *ruleSet) listHead(runes []rune, words []word, i int) bool {
	if i+1 >= len(words) {
		return false
	}
	gap := strings.TrimSpace(string(runes[words[i].end:words[i+1].start]))
	return gap == "," && rs.startsName(words[i+1])
}

func (rs *ruleSet) classify(lastWord string) Label {
	switch folded := textclean.Fold(lastWord); {
	case rs.facility[folded]:
		return LabelFAC
	case rs.location[folded]:
		return LabelLOC
	default:
		return LabelGPE
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// abbreviations end with a period that does not close a sentence.
var abbreviations = map[string]bool{
	"St": true, "Ste": true, "Sta": true, "Mt": true, "Mte": true, "Ft": true, "Pt": true,
}

// splitWords finds words in runes. Apostrophes and hyphens between letters
// stay inside a word. A word is joinable when only blanks separate it from
// the previous one, or the previous word is an abbreviation and its period.
// A word opens a sentence when it is the first one, when the gap before it
// holds only sentence punctuation, or when a blank line precedes it.
func splitWords(runes []rune) []word {
	var words []word
	prevEnd := -1
	prevText := ""
	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) {
			if isWordRune(runes[i]) {
				i++
				continue
			}
			if strings.ContainsRune("-'’", runes[i]) && i+1 < len(runes) && isWordRune(runes[i+1]) {
				i++
				continue
			}
			break
		}

		gap := ""
		if prevEnd >= 0 {
			gap = string(runes[prevEnd:start])
		}
		abbrev := abbreviations[prevText] && strings.HasPrefix(gap, ".") && strings.Trim(gap[1:], " \t") == ""
		text := string(runes[start:i])
		words = append(words, word{
			text:     text,
			start:    start,
			end:      i,
			joinable: prevEnd >= 0 && (strings.Trim(gap, " \t") == "" || abbrev),
			opening:  prevEnd < 0 || (!abbrev && opensSentence(gap)),
		})
		prevEnd = i
		prevText = text
	}
	return words
}

func opensSentence(gap string) bool {
	if strings.Count(gap, "\n") >= 2 && strings.TrimSpace(gap) == "" {
		return true
	}
	marks := strings.TrimFunc(gap, unicode.IsSpace)
	if marks == "" || !strings.ContainsAny(marks, ".!?") {
		return false
	}
	return strings.Trim(marks, ".!?\"'”’)]") == ""
}
