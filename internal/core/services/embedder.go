package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
)

// MaxEmbedInputChars bounds the text submitted to the embedding provider.
const MaxEmbedInputChars = 3000

// RateLimitBackoff is how long calls are held back after the provider
// reports domain.ErrRateLimited.
const RateLimitBackoff = 30 * time.Second

// EmbeddingAdapter guards calls to an optional embedding provider.
// It truncates input, paces requests and normalises failures into
// domain.ErrEmbeddingUnavailable and domain.ErrProviderError.
// After a rate-limited call every caller waits out a backoff window.
type EmbeddingAdapter struct {
	service driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// NewEmbeddingAdapter wraps service, which may be nil.
// requestsPerSecond <= 0 disables pacing.
func NewEmbeddingAdapter(service driven.EmbeddingService, requestsPerSecond float64) *EmbeddingAdapter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &EmbeddingAdapter{
		service: service,
		limiter: rate.NewLimiter(limit, 1),
		backoff: RateLimitBackoff,
	}
}

// Available reports whether a provider is configured.
func (a *EmbeddingAdapter) Available() bool {
	return a != nil && a.service != nil
}

// ModelName returns the provider's model, or "" when unavailable.
func (a *EmbeddingAdapter) ModelName() string {
	if !a.Available() {
		return ""
	}
	return a.service.ModelName()
}

// Embed returns the vector for text.
func (a *EmbeddingAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	if !a.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if err := a.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %w", domain.ErrProviderError, err)
	}

	vector, err := a.service.Embed(ctx, Truncate(text, MaxEmbedInputChars))
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			a.recordRateLimit()
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderError, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", domain.ErrProviderError)
	}
	if dims := a.service.Dimensions(); dims > 0 && len(vector) != dims {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d",
			domain.ErrProviderError, dims, len(vector))
	}

	return vector, nil
}

// wait blocks until the backoff window has passed and a token is available.
// A caller whose deadline ends inside the window fails at once.
func (a *EmbeddingAdapter) wait(ctx context.Context) error {
	a.mu.Lock()
	retryAt := a.retryAt
	a.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		if deadline, ok := ctx.Deadline(); ok && deadline.Before(retryAt) {
			return fmt.Errorf("%w: backing off for %s", domain.ErrRateLimited, d.Round(time.Second))
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return a.limiter.Wait(ctx)
}

func (a *EmbeddingAdapter) recordRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retryAt = time.Now().Add(a.backoff)
}

// Truncate returns at most maxChars characters of s.
func Truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
