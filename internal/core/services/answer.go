package services

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/core/ports/driving"
	"github.com/custodia-labs/memoir/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// AnswerService records answers and keeps their embeddings current on a best-effort basis.
type AnswerService struct {
	profiles   driven.ProfileStore
	answers    driven.AnswerStore
	embeddings driven.EmbeddingStore
	embedder   *EmbeddingAdapter
}

// NewAnswerService creates a new answer service.
// The embedder may wrap a nil provider, in which case embeddings are skipped.
func NewAnswerService(
	profiles driven.ProfileStore,
	answers driven.AnswerStore,
	embeddings driven.EmbeddingStore,
	embedder *EmbeddingAdapter,
) *AnswerService {
	return &AnswerService{
		profiles:   profiles,
		answers:    answers,
		embeddings: embeddings,
		embedder:   embedder,
	}
}

// Save persists a new answer, then attempts to embed it.
func (s *AnswerService) Save(
	ctx context.Context, profileID int64, question, text string,
) (*domain.SaveResult, error) {
	question = strings.TrimSpace(question)
	text = strings.TrimSpace(text)
	if question == "" || text == "" {
		return nil, goerr.Wrap(domain.ErrInvalidInput, "question and answer text are required")
	}
	if _, err := requireProfile(ctx, s.profiles, profileID); err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		ProfileID: profileID,
		Question:  question,
		Text:      text,
	}
	if err := s.answers.Create(ctx, answer); err != nil {
		return nil, storageError(err, "failed to save answer", goerr.V("profile_id", profileID))
	}

	logger.From(ctx).Info("answer saved", "profile_id", profileID, "answer_id", answer.ID)

	return &domain.SaveResult{
		Answer:    *answer,
		Embedding: s.embedAnswer(ctx, answer),
	}, nil
}

// Update replaces the text of an answer owned by profileID, then attempts to re-embed it.
// A failed re-embed leaves the answer unindexed until the next reindex.
func (s *AnswerService) Update(
	ctx context.Context, profileID, answerID int64, text string,
) (*domain.UpdateResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.Wrap(domain.ErrInvalidInput, "answer text is required")
	}
	if _, err := s.owned(ctx, profileID, answerID); err != nil {
		return nil, err
	}

	answer, err := s.answers.UpdateText(ctx, answerID, text)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, goerr.Wrap(err, "answer disappeared during update", goerr.V("answer_id", answerID))
		}
		return nil, storageError(err, "failed to update answer", goerr.V("answer_id", answerID))
	}

	logger.From(ctx).Info("answer updated", "profile_id", profileID, "answer_id", answerID)

	return &domain.UpdateResult{
		Answer:    *answer,
		Embedding: s.embedAnswer(ctx, answer),
	}, nil
}

// Delete removes an answer owned by profileID together with its embedding.
func (s *AnswerService) Delete(ctx context.Context, profileID, answerID int64) error {
	if _, err := s.owned(ctx, profileID, answerID); err != nil {
		return err
	}
	if err := s.answers.Delete(ctx, answerID); err != nil {
		return storageError(err, "failed to delete answer", goerr.V("answer_id", answerID))
	}

	logger.From(ctx).Info("answer deleted", "profile_id", profileID, "answer_id", answerID)
	return nil
}

// List returns up to limit answers, most recent first.
func (s *AnswerService) List(ctx context.Context, profileID int64, limit int) ([]domain.Answer, error) {
	if _, err := requireProfile(ctx, s.profiles, profileID); err != nil {
		return nil, err
	}

	answers, err := s.answers.List(ctx, profileID, clampLimit(limit, DefaultListLimit, MaxListLimit))
	if err != nil {
		return nil, storageError(err, "failed to list answers", goerr.V("profile_id", profileID))
	}
	return answers, nil
}

// Count returns the number of answers of a profile.
func (s *AnswerService) Count(ctx context.Context, profileID int64) (int, error) {
	if _, err := requireProfile(ctx, s.profiles, profileID); err != nil {
		return 0, err
	}

	n, err := s.answers.Count(ctx, profileID)
	if err != nil {
		return 0, storageError(err, "failed to count answers", goerr.V("profile_id", profileID))
	}
	return n, nil
}

// owned loads an answer and checks that profileID owns it.
func (s *AnswerService) owned(ctx context.Context, profileID, answerID int64) (*domain.Answer, error) {
	answer, err := s.answers.Get(ctx, answerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, goerr.Wrap(err, "answer does not exist", goerr.V("answer_id", answerID))
		}
		return nil, storageError(err, "failed to load answer", goerr.V("answer_id", answerID))
	}
	if answer.ProfileID != profileID {
		return nil, goerr.Wrap(domain.ErrForbidden, "answer belongs to another profile",
			goerr.V("answer_id", answerID), goerr.V("profile_id", profileID))
	}
	return answer, nil
}

// embedAnswer computes and stores the embedding of answer.
// Failures are logged and reported as a status, never returned.
func (s *AnswerService) embedAnswer(ctx context.Context, answer *domain.Answer) domain.EmbeddingStatus {
	if !s.embedder.Available() {
		logger.From(ctx).Debug("embedding skipped, no provider", "answer_id", answer.ID)
		return domain.EmbeddingSkipped
	}
	if err := indexAnswer(ctx, s.embedder, s.embeddings, answer); err != nil {
		logger.From(ctx).Warn("answer saved without embedding", "answer_id", answer.ID, "error", err)
		return domain.EmbeddingFailed
	}
	return domain.EmbeddingIndexed
}

// indexAnswer embeds the answer text and upserts the result.
func indexAnswer(
	ctx context.Context, embedder *EmbeddingAdapter, store driven.EmbeddingStore, answer *domain.Answer,
) error {
	vector, err := embedder.Embed(ctx, answer.Text)
	if err != nil {
		return goerr.Wrap(err, "failed to embed answer", goerr.V("answer_id", answer.ID))
	}

	embedding := &domain.AnswerEmbedding{
		AnswerID: answer.ID,
		Content:  answer.Text,
		Vector:   vector,
		Model:    embedder.ModelName(),
	}
	if err := store.Upsert(ctx, embedding); err != nil {
		return storageError(err, "failed to store embedding", goerr.V("answer_id", answer.ID))
	}
	return nil
}

// clampLimit applies a default to non-positive limits and caps large ones.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
