package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geopack/internal/db"
	"github.com/sells-group/geopack/internal/extract"
	"github.com/sells-group/geopack/internal/geoparse"
	"github.com/sells-group/geopack/internal/placeindex"
	"github.com/sells-group/geopack/internal/resilience"
)

const defaultSQLitePath = "geopack.db"

// openStore opens the configured index backend.
func openStore(ctx context.Context) (placeindex.Store, error) {
	switch cfg.Index.Driver {
	case "sqlite":
		dsn := cfg.Index.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return placeindex.NewSQLite(dsn)
	case "postgres":
		pool, err := db.Open(ctx, cfg.Index.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return placeindex.NewPostgres(pool, cfg.Index.Table), nil
	default:
		return nil, eris.Errorf("unsupported index driver: %s", cfg.Index.Driver)
	}
}

// searchIndex decorates store for read traffic: bounded retries, then the
// Redis cache when one is configured. The returned func releases the cache
// client.
func searchIndex(store placeindex.Index) (placeindex.Index, func()) {
	var idx placeindex.Index = placeindex.WithRetry(store, resilience.FromConfig(
		cfg.Index.Retry.MaxAttempts,
		cfg.Index.Retry.InitialBackoffMs,
		cfg.Index.Retry.MaxBackoffMs,
	))
	if cfg.Cache.RedisAddr == "" {
		return idx, func() {}
	}

	client := placeindex.NewRedisClient(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	ttl := time.Duration(cfg.Cache.TTLSecs) * time.Second
	zap.L().Debug("placeindex: redis cache enabled",
		zap.String("addr", cfg.Cache.RedisAddr),
		zap.Duration("ttl", ttl),
	)
	return placeindex.NewCached(idx, client, ttl), func() { _ = client.Close() }
}

// initExtractor builds the configured extractor and runs its pre-flight
// check.
func initExtractor(ctx context.Context) (*extract.ResourceManager, error) {
	m, err := extract.NewResourceManager(extract.ManagerConfig{
		Backend:            cfg.Extract.Backend,
		LexiconPath:        cfg.Extract.LexiconPath,
		DefaultLang:        cfg.Extract.DefaultLang,
		AnthropicKey:       cfg.Anthropic.Key,
		AnthropicModel:     cfg.Anthropic.Model,
		AnthropicRateLimit: cfg.Anthropic.RateLimit,
		AnthropicMaxTokens: cfg.Anthropic.MaxTokens,
	}, nil)
	if err != nil {
		return nil, err
	}
	if err := m.Check(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func parserConfig() geoparse.Config {
	return geoparse.Config{
		Search: geoparse.SearchOptions{
			Limit:        cfg.Search.Limit,
			SortKeys:     cfg.Search.SortKeys,
			SourceFields: cfg.Search.SourceFields,
		},
		Disambiguate: geoparse.DisambiguateOptions{
			Threshold: cfg.Disambiguate.Threshold,
			PairLimit: cfg.Disambiguate.PairLimit,
			TopPairs:  cfg.Disambiguate.TopPairs,
			Boost:     cfg.Disambiguate.Boost,
			Delimiter: cfg.Disambiguate.Delimiter,
		},
	}
}
