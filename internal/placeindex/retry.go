package placeindex

import (
	"context"

	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/resilience"
)

// Retrying retries transient index failures with bounded, jittered backoff.
// Once attempts run out the last error surfaces as IndexUnavailableError.
type Retrying struct {
	next Index
	cfg  resilience.RetryConfig
}

var _ Index = (*Retrying)(nil)

// WithRetry wraps next. Retries are limited to timeouts and dropped
// connections; see resilience.IsTransient.
func WithRetry(next Index, cfg resilience.RetryConfig) *Retrying {
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("placeindex", "query")
	}
	return &Retrying{next: next, cfg: cfg}
}

// Search implements Index.
func (r *Retrying) Search(ctx context.Context, q Query) ([]model.Hit, error) {
	hits, err := resilience.DoVal(ctx, r.cfg, func(ctx context.Context) ([]model.Hit, error) {
		return r.next.Search(ctx, q)
	})
	if err != nil {
		return nil, exhausted("search", err)
	}
	return hits, nil
}

// Lookup implements Index.
func (r *Retrying) Lookup(ctx context.Context, ids []int64, fields []string) ([]model.Hit, error) {
	hits, err := resilience.DoVal(ctx, r.cfg, func(ctx context.Context) ([]model.Hit, error) {
		return r.next.Lookup(ctx, ids, fields)
	})
	if err != nil {
		return nil, exhausted("lookup", err)
	}
	return hits, nil
}

// exhausted marks transient failures that outlived their retries as
// unavailability. Other errors pass through unchanged.
func exhausted(op string, err error) error {
	if resilience.IsTransient(err) {
		return Unavailable(op, err)
	}
	return err
}
