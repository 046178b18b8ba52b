package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownProfile indicates the caller's profile id does not resolve to a profile.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrForbidden indicates the caller does not own the resource it tried to change.
	ErrForbidden = errors.New("forbidden")

	// ErrStorage indicates the durable store failed.
	// Surfaced to callers as a generic internal error.
	ErrStorage = errors.New("storage error")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Chat degrades to lexical fallback replies without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic retrieval and reindexing are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrProviderError indicates a configured provider call failed
	// (rate limit, network, malformed response).
	ErrProviderError = errors.New("provider error")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	// The embedding adapter backs off after seeing it.
	ErrRateLimited = errors.New("rate limited")
)
