package placeindex

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sells-group/geopack/internal/model"
)

// DefaultCacheTTL bounds how stale a cached search may be.
const DefaultCacheTTL = time.Hour

// KV is the subset of *redis.Client used by the cache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cached is a read-through cache of search results shared across requests.
// Results may be stale by up to the TTL; nothing is invalidated on reload.
// Redis failures degrade to uncached searches.
type Cached struct {
	next Index
	kv   KV
	ttl  time.Duration
}

var _ Index = (*Cached)(nil)

// NewCached wraps next with a Redis-backed search cache.
func NewCached(next Index, kv KV, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{next: next, kv: kv, ttl: ttl}
}

// NewRedisClient opens a client for addr ("host:port").
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Search implements Index.
func (c *Cached) Search(ctx context.Context, q Query) ([]model.Hit, error) {
	q = q.Normalized()
	key := searchCacheKey(q)

	raw, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var hits []model.Hit
		if jsonErr := json.Unmarshal(raw, &hits); jsonErr == nil {
			zap.L().Debug("placeindex: cache hit", zap.String("place", q.Text), zap.Int("hits", len(hits)))
			return hits, nil
		}
	case !errors.Is(err, redis.Nil):
		zap.L().Warn("placeindex: cache read failed", zap.Error(err))
	}

	hits, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	if hits == nil {
		hits = []model.Hit{}
	}
	if data, jsonErr := json.Marshal(hits); jsonErr == nil {
		if setErr := c.kv.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			zap.L().Warn("placeindex: cache write failed", zap.Error(setErr))
		}
	}
	return hits, nil
}

// Lookup implements Index without caching.
func (c *Cached) Lookup(ctx context.Context, ids []int64, fields []string) ([]model.Hit, error) {
	return c.next.Lookup(ctx, ids, fields)
}

func searchCacheKey(q Query) string {
	normalized := fmt.Sprintf("%s|%s|%d|%s|%s",
		strings.ToLower(strings.TrimSpace(q.Text)),
		q.Lang,
		q.Limit,
		strings.Join(q.SortKeys, ","),
		strings.Join(q.SourceFields, ","),
	)
	return fmt.Sprintf("geopack:search:%x", sha256.Sum256([]byte(normalized)))
}
