package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geopack/pkg/anthropic"
)

const (
	defaultLLMModel     = "claude-haiku-4-5-20251001"
	defaultLLMMaxTokens = 1024
)

const llmSystemPrompt = `You are a named-entity tagger for a geoparser.
Find every mention of a place in the user's text and return ONLY a JSON array,
in order of appearance, of objects {"text": "<exact substring>", "label": "<LABEL>"}.
LABEL is one of:
  GPE - countries, cities, states, provinces, counties
  LOC - non-political locations: mountains, rivers, lakes, seas, regions
  FAC - buildings, airports, bridges, stations
  ORG - organizations
  PERSON - people
"text" must be copied verbatim from the input. Return [] when there are none.`

// LLM tags entities with an Anthropic model.
type LLM struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

var _ Extractor = (*LLM)(nil)

// LLMOption configures the LLM extractor.
type LLMOption func(*LLM)

// WithModel overrides the model id.
func WithModel(model string) LLMOption {
	return func(l *LLM) {
		if model != "" {
			l.model = model
		}
	}
}

// WithMaxTokens caps the response size.
func WithMaxTokens(n int64) LLMOption {
	return func(l *LLM) {
		if n > 0 {
			l.maxTokens = n
		}
	}
}

// WithRateLimit sets the requests-per-second rate limit for API calls.
func WithRateLimit(rps float64) LLMOption {
	return func(l *LLM) {
		if rps > 0 {
			l.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// NewLLM creates an LLM extractor backed by client.
func NewLLM(client anthropic.Client, opts ...LLMOption) *LLM {
	l := &LLM{
		client:    client,
		model:     defaultLLMModel,
		maxTokens: defaultLLMMaxTokens,
		limiter:   rate.NewLimiter(2, 2),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type llmEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Extract implements Extractor.
func (l *LLM) Extract(ctx context.Context, text, lang string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extract: anthropic rate limit")
	}

	prompt := text
	if lang = NormalizeLang(lang); lang != WildcardLang {
		prompt = fmt.Sprintf("Language: %s\n\n%s", lang, text)
	}
	temp := 0.0
	resp, err := l.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       l.model,
		MaxTokens:   l.maxTokens,
		System:      anthropic.CachedSystem(llmSystemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: anthropic entities")
	}
	resp.Usage.LogCost(l.model, "extract")

	entities, err := parseEntities(resp.Text())
	if err != nil {
		return nil, err
	}
	return locateSpans(text, entities), nil
}

// parseEntities reads the first JSON array in raw, tolerating code fences
// and surrounding prose.
func parseEntities(raw string) ([]llmEntity, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end < start {
		return nil, eris.Errorf("extract: no JSON array in model response: %q", truncate(raw, 120))
	}
	var out []llmEntity
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, eris.Wrap(err, "extract: decode model response")
	}
	return out, nil
}

// locateSpans assigns rune offsets by finding each entity in text after the
// previous one. Entities that do not occur verbatim are dropped, as are
// labels outside the canonical set.
func locateSpans(text string, entities []llmEntity) []Span {
	spans := make([]Span, 0, len(entities))
	cursor := 0 // byte offset
	for _, e := range entities {
		label, ok := CanonicalLabel(e.Label)
		if !ok || strings.TrimSpace(e.Text) == "" {
			continue
		}
		idx := strings.Index(text[cursor:], e.Text)
		if idx >= 0 {
			idx += cursor
		} else if idx = strings.Index(text, e.Text); idx < 0 {
			zap.L().Debug("extract: entity not found in text", zap.String("entity", e.Text))
			continue
		}
		startChar := len([]rune(text[:idx]))
		spans = append(spans, Span{
			Text:      e.Text,
			Label:     label,
			StartChar: startChar,
			EndChar:   startChar + len([]rune(e.Text)),
		})
		cursor = idx + len(e.Text)
	}
	slices.SortStableFunc(spans, func(a, b Span) int { return a.StartChar - b.StartChar })
	return spans
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
