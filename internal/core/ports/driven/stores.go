package driven

import (
	"context"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

// ProfileStore persists profiles.
type ProfileStore interface {
	// Create stores a new profile and assigns its ID.
	// Returns domain.ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, profile *domain.Profile) error

	// Get retrieves a profile by ID. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, id int64) (*domain.Profile, error)

	// GetByName retrieves a profile by its display name. Returns domain.ErrNotFound if missing.
	GetByName(ctx context.Context, name string) (*domain.Profile, error)

	// List returns all profiles ordered by ID.
	List(ctx context.Context) ([]domain.Profile, error)
}

// AnswerStore persists answers.
type AnswerStore interface {
	// Create stores a new answer and assigns its ID and timestamps.
	Create(ctx context.Context, answer *domain.Answer) error

	// Get retrieves an answer by ID. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, id int64) (*domain.Answer, error)

	// UpdateText replaces the answer text, bumps UpdatedAt and drops the
	// now stale embedding so reindex picks the answer up again.
	// Returns domain.ErrNotFound if missing.
	UpdateText(ctx context.Context, id int64, text string) (*domain.Answer, error)

	// Delete removes an answer and its embedding. Returns domain.ErrNotFound if missing.
	Delete(ctx context.Context, id int64) error

	// List returns up to limit answers of a profile, most recent first.
	List(ctx context.Context, profileID int64, limit int) ([]domain.Answer, error)

	// ListAll returns every answer of a profile, oldest first.
	ListAll(ctx context.Context, profileID int64) ([]domain.Answer, error)

	// Count returns the number of answers of a profile.
	Count(ctx context.Context, profileID int64) (int, error)

	// Search returns up to limit answers, most recent first, whose question
	// or text contains term case-insensitively.
	Search(ctx context.Context, profileID int64, term string, limit int) ([]domain.Answer, error)
}

// EmbeddingStore persists answer embeddings.
type EmbeddingStore interface {
	// Upsert creates or replaces the embedding of an answer.
	Upsert(ctx context.Context, embedding *domain.AnswerEmbedding) error

	// Get retrieves the embedding of an answer. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, answerID int64) (*domain.AnswerEmbedding, error)

	// ListEmbedded returns up to limit answers of a profile that have an embedding,
	// most recent first, paired with their vectors.
	ListEmbedded(ctx context.Context, profileID int64, limit int) ([]domain.EmbeddedAnswer, error)

	// ListMissing returns up to limit answers of a profile without an embedding, oldest first.
	ListMissing(ctx context.Context, profileID int64, limit int) ([]domain.Answer, error)
}
