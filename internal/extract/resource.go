package extract

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/geopack/pkg/anthropic"
)

// Backend names accepted by NewResourceManager.
const (
	BackendRules     = "rules"
	BackendAnthropic = "anthropic"
)

// Backends lists the supported extractor backends.
var Backends = []string{BackendRules, BackendAnthropic}

// ManagerConfig selects and configures the extractor backend.
type ManagerConfig struct {
	Backend     string
	LexiconPath string
	// DefaultLang picks the language rules when a call declares none.
	DefaultLang string

	AnthropicKey       string
	AnthropicModel     string
	AnthropicRateLimit float64
	AnthropicMaxTokens int64
}

// ResourceManager owns the extractor resources for the process. Build it
// once at startup, call Check before serving, and pass it to the parser.
type ResourceManager struct {
	cfg       ManagerConfig
	extractor Extractor
}

var _ Extractor = (*ResourceManager)(nil)

// NewResourceManager builds the configured backend. client may be nil for
// the rules backend; for the anthropic backend a nil client is built from
// cfg.AnthropicKey.
func NewResourceManager(cfg ManagerConfig, client anthropic.Client) (*ResourceManager, error) {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = BackendRules
	}
	cfg.DefaultLang = NormalizeLang(cfg.DefaultLang)

	m := &ResourceManager{cfg: cfg}
	switch cfg.Backend {
	case BackendRules:
		lex, err := LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, err
		}
		m.extractor = NewRules(lex)
	case BackendAnthropic:
		if client == nil && cfg.AnthropicKey != "" {
			client = anthropic.NewClient(cfg.AnthropicKey)
		}
		if client == nil {
			return nil, &ResourceMissingError{Resource: "anthropic.key"}
		}
		m.extractor = NewLLM(client,
			WithModel(cfg.AnthropicModel),
			WithRateLimit(cfg.AnthropicRateLimit),
			WithMaxTokens(cfg.AnthropicMaxTokens),
		)
	default:
		return nil, &UnsupportedBackendError{Backend: cfg.Backend}
	}
	return m, nil
}

// Backend returns the selected backend name.
func (m *ResourceManager) Backend() string { return m.cfg.Backend }

// Check verifies that everything the backend needs is reachable, failing
// with ResourceMissingError instead of discovering it mid-request.
func (m *ResourceManager) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch m.cfg.Backend {
	case BackendRules:
		if m.cfg.LexiconPath != "" {
			if _, err := os.Stat(m.cfg.LexiconPath); err != nil {
				return &ResourceMissingError{Resource: "lexicon " + m.cfg.LexiconPath, Err: err}
			}
		}
	case BackendAnthropic:
		if _, ok := m.extractor.(*LLM); !ok {
			return &ResourceMissingError{Resource: "anthropic client"}
		}
	}
	zap.L().Debug("extract: resources ready",
		zap.String("backend", m.cfg.Backend),
		zap.String("default_lang", m.cfg.DefaultLang),
	)
	return nil
}

// Extract runs the backend and keeps place candidates only. An empty or
// wildcard lang falls back to the configured default for rule selection.
func (m *ResourceManager) Extract(ctx context.Context, text, lang string) ([]Span, error) {
	lang = NormalizeLang(lang)
	if lang == WildcardLang {
		lang = m.cfg.DefaultLang
	}
	spans, err := m.extractor.Extract(ctx, text, lang)
	if err != nil {
		return nil, err
	}
	return Places(spans), nil
}
