package services

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/logger"
)

// RetrieveOptions bounds a retrieval.
type RetrieveOptions struct {
	// PoolSize is how many recent embedded answers are scored.
	PoolSize int

	// TopK is the maximum number of results.
	TopK int

	// MinScore drops results scoring at or below it.
	MinScore float64
}

// DefaultRetrieveOptions returns the standard retrieval bounds.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		PoolSize: domain.DefaultPoolSize,
		TopK:     domain.DefaultTopK,
		MinScore: domain.DefaultMinScore,
	}
}

// RetrieveOptionsFrom converts retrieval settings, filling unset values with defaults.
func RetrieveOptionsFrom(settings domain.RetrievalSettings) RetrieveOptions {
	opts := DefaultRetrieveOptions()
	if settings.PoolSize > 0 {
		opts.PoolSize = settings.PoolSize
	}
	if settings.TopK > 0 {
		opts.TopK = settings.TopK
	}
	if settings.MinScore >= 0 {
		opts.MinScore = settings.MinScore
	}
	return opts
}

// Retriever ranks a profile's embedded answers against a query vector.
type Retriever struct {
	embeddings driven.EmbeddingStore
}

// NewRetriever creates a new retriever.
func NewRetriever(embeddings driven.EmbeddingStore) *Retriever {
	return &Retriever{embeddings: embeddings}
}

// Retrieve returns the best matching answers, highest score first.
//
// Candidates are the PoolSize most recent answers with an embedding. Ties keep
// that recency order. Candidates whose vector length differs from the query are
// skipped. An empty result is not an error.
func (r *Retriever) Retrieve(
	ctx context.Context, profileID int64, query []float32, opts RetrieveOptions,
) ([]domain.ScoredAnswer, error) {
	log := logger.From(ctx)
	if opts.PoolSize <= 0 || opts.TopK <= 0 {
		return []domain.ScoredAnswer{}, nil
	}

	candidates, err := r.embeddings.ListEmbedded(ctx, profileID, opts.PoolSize)
	if err != nil {
		return nil, storageError(err, "failed to load retrieval candidates", goerr.V("profile_id", profileID))
	}
	log.Debug("retrieval candidates", "profile_id", profileID, "count", len(candidates))

	scored := make([]domain.ScoredAnswer, 0, len(candidates))
	for i := range candidates {
		if len(candidates[i].Vector) != len(query) {
			log.Warn("skipping candidate with mismatched dimensions",
				"answer_id", candidates[i].Answer.ID,
				"expected", len(query),
				"got", len(candidates[i].Vector))
			continue
		}
		scored = append(scored, domain.ScoredAnswer{
			Answer: candidates[i].Answer,
			Score:  CosineSimilarity(query, candidates[i].Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}

	results := scored[:0]
	for _, s := range scored {
		if s.Score > opts.MinScore {
			results = append(results, s)
		}
	}

	log.Debug("retrieval results", "profile_id", profileID, "count", len(results))
	return results, nil
}
