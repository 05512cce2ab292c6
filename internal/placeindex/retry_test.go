package placeindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geopack/internal/model"
	"github.com/sells-group/geopack/internal/resilience"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1,
	}
}

func TestWithRetry_RecoversFromTransient(t *testing.T) {
	next := &countingIndex{
		hits: []model.Hit{{Place: model.Place{ID: 7}}},
		errs: []error{resilience.NewTransientError(errors.New("i/o timeout"))},
	}
	hits, err := WithRetry(next, fastRetry(3)).Search(context.Background(), Query{Text: "Ottawa"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 2, next.searches)
}

func TestWithRetry_ExhaustedIsUnavailable(t *testing.T) {
	next := &countingIndex{err: errors.New("read: connection reset by peer")}
	_, err := WithRetry(next, fastRetry(3)).Search(context.Background(), Query{Text: "Ottawa"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 3, next.searches)
}

func TestWithRetry_PermanentNotRetried(t *testing.T) {
	next := &countingIndex{err: errors.New("placeindex: unsupported sort key \"x\"")}
	_, err := WithRetry(next, fastRetry(3)).Search(context.Background(), Query{Text: "Ottawa"})
	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
	assert.Equal(t, 1, next.searches)
}

func TestWithRetry_LookupExhausted(t *testing.T) {
	next := &countingIndex{err: errors.New("broken pipe")}
	_, err := WithRetry(next, fastRetry(2)).Lookup(context.Background(), []int64{1}, nil)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 2, next.lookups)

	var ue *IndexUnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "lookup", ue.Op)
}
