package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

// AnswerService records and manages a profile's answers.
type AnswerService interface {
	// Save persists a new answer and attempts to embed it.
	// The embedding outcome is reported in the result and never fails the save.
	Save(ctx context.Context, profileID int64, question, text string) (*domain.SaveResult, error)

	// Update replaces the text of an answer owned by profileID and attempts to re-embed it.
	Update(ctx context.Context, profileID, answerID int64, text string) (*domain.UpdateResult, error)

	// Delete removes an answer owned by profileID.
	Delete(ctx context.Context, profileID, answerID int64) error

	// List returns up to limit answers, most recent first.
	List(ctx context.Context, profileID int64, limit int) ([]domain.Answer, error)

	// Count returns the number of answers of a profile.
	Count(ctx context.Context, profileID int64) (int, error)

	// Export writes every answer of a profile, oldest first, in the given format.
	Export(ctx context.Context, profileID int64, format domain.ExportFormat, w io.Writer) error
}
