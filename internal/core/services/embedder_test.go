package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

func TestEmbeddingAdapter_Unavailable(t *testing.T) {
	var nilAdapter *EmbeddingAdapter
	assert.False(t, nilAdapter.Available())
	assert.Equal(t, "", nilAdapter.ModelName())

	adapter := NewEmbeddingAdapter(nil, 0)
	assert.False(t, adapter.Available())

	_, err := adapter.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingAdapter_TruncatesInput(t *testing.T) {
	mock := newMockEmbedder()
	adapter := NewEmbeddingAdapter(mock, 0)

	_, err := adapter.Embed(context.Background(), strings.Repeat("é", MaxEmbedInputChars+500))

	require.NoError(t, err)
	require.Len(t, mock.inputs, 1)
	assert.Equal(t, MaxEmbedInputChars, utf8.RuneCountInString(mock.inputs[0]))
}

func TestEmbeddingAdapter_WrapsProviderErrors(t *testing.T) {
	mock := newMockEmbedder()
	mock.err = errMockProvider
	adapter := NewEmbeddingAdapter(mock, 0)

	_, err := adapter.Embed(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrProviderError)
	assert.ErrorIs(t, err, errMockProvider)
}

func TestEmbeddingAdapter_RejectsBadVectors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		mock := newMockEmbedder()
		mock.fallback = []float32{}
		_, err := NewEmbeddingAdapter(mock, 0).Embed(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrProviderError)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		mock := newMockEmbedder()
		mock.dims = 4
		_, err := NewEmbeddingAdapter(mock, 0).Embed(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrProviderError)
		assert.Contains(t, err.Error(), "expected 4 dimensions, got 3")
	})

	t.Run("unknown dimensions accept any length", func(t *testing.T) {
		mock := newMockEmbedder()
		vec, err := NewEmbeddingAdapter(mock, 0).Embed(context.Background(), "x")
		require.NoError(t, err)
		assert.Len(t, vec, 3)
	})
}

func TestEmbeddingAdapter_RateLimitHonoursContext(t *testing.T) {
	mock := newMockEmbedder()
	adapter := NewEmbeddingAdapter(mock, 0.001)
	ctx := context.Background()

	_, err := adapter.Embed(ctx, "first")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = adapter.Embed(cancelled, "second")

	assert.ErrorIs(t, err, domain.ErrProviderError)
	assert.Equal(t, 1, mock.calls())
}

func TestEmbeddingAdapter_BacksOffAfterRateLimit(t *testing.T) {
	mock := newMockEmbedder()
	mock.err = fmt.Errorf("openai: %w: slow down", domain.ErrRateLimited)
	adapter := NewEmbeddingAdapter(mock, 0)
	adapter.backoff = 50 * time.Millisecond
	ctx := context.Background()

	_, err := adapter.Embed(ctx, "first")
	assert.ErrorIs(t, err, domain.ErrProviderError)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	mock.err = nil
	start := time.Now()
	_, err = adapter.Embed(ctx, "second")

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestEmbeddingAdapter_BackoffHonoursContext(t *testing.T) {
	mock := newMockEmbedder()
	mock.err = fmt.Errorf("%w", domain.ErrRateLimited)
	adapter := NewEmbeddingAdapter(mock, 0)
	ctx := context.Background()

	_, err := adapter.Embed(ctx, "first")
	require.Error(t, err)

	short, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	_, err = adapter.Embed(short, "second")

	assert.ErrorIs(t, err, domain.ErrProviderError)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Less(t, time.Since(start), time.Second, "deadline inside the window fails at once")
	assert.Equal(t, 1, mock.calls(), "no call is made inside the backoff window")

	cancelled, cancelNow := context.WithCancel(ctx)
	cancelNow()
	_, err = adapter.Embed(cancelled, "third")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbeddingAdapter_OtherErrorsDoNotBackOff(t *testing.T) {
	mock := newMockEmbedder()
	mock.err = errMockProvider
	adapter := NewEmbeddingAdapter(mock, 0)

	_, err := adapter.Embed(context.Background(), "first")
	require.Error(t, err)

	mock.err = nil
	_, err = adapter.Embed(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.calls())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "héé", Truncate("hééllo", 3))
	assert.Equal(t, "", Truncate("", 3))
}
