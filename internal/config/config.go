package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Index        IndexConfig        `yaml:"index" mapstructure:"index"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	Disambiguate DisambiguateConfig `yaml:"disambiguate" mapstructure:"disambiguate"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Loader       LoaderConfig       `yaml:"loader" mapstructure:"loader"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// IndexConfig configures the place index backend.
type IndexConfig struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	Table       string      `yaml:"table" mapstructure:"table"`
	Retry       RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig bounds retries of transient index failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// SearchConfig configures candidate search.
type SearchConfig struct {
	Limit        int      `yaml:"limit" mapstructure:"limit"`
	SortKeys     []string `yaml:"sort_keys" mapstructure:"sort_keys"`
	SourceFields []string `yaml:"source_fields" mapstructure:"source_fields"`
}

// DisambiguateConfig tunes the similarity boost.
type DisambiguateConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	PairLimit int     `yaml:"pair_limit" mapstructure:"pair_limit"`
	TopPairs  int     `yaml:"top_pairs" mapstructure:"top_pairs"`
	Boost     float64 `yaml:"boost" mapstructure:"boost"`
	Delimiter string  `yaml:"delimiter" mapstructure:"delimiter"`
}

// ExtractConfig selects the place-name extractor.
type ExtractConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	LexiconPath string `yaml:"lexicon_path" mapstructure:"lexicon_path"`
	DefaultLang string `yaml:"default_lang" mapstructure:"default_lang"`
}

// AnthropicConfig holds Anthropic API settings for the LLM extractor.
type AnthropicConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxTokens int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CacheConfig configures the optional Redis hit cache.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLSecs       int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// LoaderConfig configures gazetteer loading.
type LoaderConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded first; variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("index.driver", "postgres")
	v.SetDefault("index.database_url", "")
	v.SetDefault("index.table", "")
	v.SetDefault("index.retry.max_attempts", 3)
	v.SetDefault("index.retry.initial_backoff_ms", 200)
	v.SetDefault("index.retry.max_backoff_ms", 2000)
	v.SetDefault("search.limit", 10)
	v.SetDefault("search.sort_keys", []string{"-population", "-_score"})
	v.SetDefault("search.source_fields", []string{
		"name", "placetype", "belongsto", "hierarchy", "location", "iso_country", "country",
		"area", "area_square_m", "geomhash", "timezone", "population", "geometry",
	})
	v.SetDefault("disambiguate.threshold", 0.9)
	v.SetDefault("disambiguate.pair_limit", 10)
	v.SetDefault("disambiguate.top_pairs", 2)
	v.SetDefault("disambiguate.boost", 10.0)
	v.SetDefault("disambiguate.delimiter", ",")
	v.SetDefault("extract.backend", "rules")
	v.SetDefault("extract.lexicon_path", "")
	v.SetDefault("extract.default_lang", "en")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.rate_limit", 2.0)
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl_secs", 3600)
	v.SetDefault("loader.workers", 4)
	v.SetDefault("loader.batch_size", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "geotag",
// "geoplace", "load" or "migrate".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Index.Driver {
	case "postgres":
		if c.Index.DatabaseURL == "" {
			problems = append(problems, "index.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("index.driver must be postgres or sqlite, got %q", c.Index.Driver))
	}

	switch mode {
	case "geotag":
		if c.Extract.Backend == "anthropic" && c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required for the anthropic extractor")
		}
		fallthrough
	case "geoplace":
		if c.Search.Limit < 0 {
			problems = append(problems, "search.limit must not be negative")
		}
		if c.Disambiguate.Threshold < 0 || c.Disambiguate.Threshold > 1 {
			problems = append(problems, "disambiguate.threshold must be within [0, 1]")
		}
	case "load":
		if c.Loader.Workers < 1 {
			problems = append(problems, "loader.workers must be at least 1")
		}
	case "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
