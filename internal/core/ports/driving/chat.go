package driving

import (
	"context"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

// ChatService answers questions as the recorded individual.
type ChatService interface {
	// Chat composes a reply grounded in the profile's answers.
	// Provider failures never surface; only unknown profiles, invalid
	// input and storage failures are returned as errors.
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error)
}

// ReindexService backfills missing answer embeddings.
type ReindexService interface {
	// Reindex embeds up to batchLimit answers that lack an embedding, oldest first.
	// A batchLimit of zero uses the configured default.
	Reindex(ctx context.Context, profileID int64, batchLimit int) (*domain.ReindexResult, error)
}
