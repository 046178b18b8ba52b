package services

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/core/ports/driving"
	"github.com/custodia-labs/memoir/internal/logger"
)

// Ensure ReindexService implements the interface.
var _ driving.ReindexService = (*ReindexService)(nil)

// MaxReindexBatch caps a single reindex run.
const MaxReindexBatch = 1000

// ReindexService backfills embeddings for answers that lack one.
type ReindexService struct {
	profiles     driven.ProfileStore
	embeddings   driven.EmbeddingStore
	embedder     *EmbeddingAdapter
	defaultLimit int
}

// NewReindexService creates a new reindex service.
func NewReindexService(
	profiles driven.ProfileStore,
	embeddings driven.EmbeddingStore,
	embedder *EmbeddingAdapter,
	defaultLimit int,
) *ReindexService {
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultReindexBatchLimit
	}
	return &ReindexService{
		profiles:     profiles,
		embeddings:   embeddings,
		embedder:     embedder,
		defaultLimit: defaultLimit,
	}
}

// Reindex embeds up to batchLimit answers without an embedding, oldest first.
//
// Each answer is attempted independently; a failure is counted and logged but
// does not stop the batch. HasMore reports whether the batch was full.
func (s *ReindexService) Reindex(
	ctx context.Context, profileID int64, batchLimit int,
) (*domain.ReindexResult, error) {
	if !s.embedder.Available() {
		return nil, goerr.Wrap(domain.ErrEmbeddingUnavailable, "reindex requires an embedding provider")
	}
	if _, err := requireProfile(ctx, s.profiles, profileID); err != nil {
		return nil, err
	}

	limit := clampLimit(batchLimit, s.defaultLimit, MaxReindexBatch)
	log := logger.From(ctx)

	pending, err := s.embeddings.ListMissing(ctx, profileID, limit)
	if err != nil {
		return nil, storageError(err, "failed to list answers missing embeddings", goerr.V("profile_id", profileID))
	}
	log.Info("reindex started", "profile_id", profileID, "pending", len(pending), "limit", limit)

	result := &domain.ReindexResult{HasMore: len(pending) == limit}
	var errs []error

	for i := range pending {
		if err := ctx.Err(); err != nil {
			log.Warn("reindex interrupted", "profile_id", profileID, "indexed", result.Indexed)
			return result, goerr.Wrap(err, "reindex interrupted", goerr.V("profile_id", profileID))
		}

		if err := indexAnswer(ctx, s.embedder, s.embeddings, &pending[i]); err != nil {
			result.Failed++
			errs = append(errs, err)
			log.Debug("failed to index answer", "answer_id", pending[i].ID, "error", err)
			continue
		}
		result.Indexed++
	}

	if len(errs) > 0 {
		log.Warn("reindex finished with failures",
			"profile_id", profileID, "failed", result.Failed, "error", errors.Join(errs...))
	}
	log.Info("reindex complete",
		"profile_id", profileID, "indexed", result.Indexed, "failed", result.Failed, "has_more", result.HasMore)

	return result, nil
}
