package domain

import "time"

// Answer is one unit of recorded testimony.
type Answer struct {
	// ID is the unique numeric identifier.
	ID int64 `json:"id"`

	// ProfileID is the owning profile.
	ProfileID int64 `json:"profile_id"`

	// Question is the prompt the answer responds to.
	Question string `json:"question"`

	// Text is the recorded answer.
	Text string `json:"answer"`

	// CreatedAt is when the answer was first saved.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the answer text last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// AnswerEmbedding is the derived vector representation of an answer.
// At most one exists per answer; it is replaced whenever the answer text changes.
type AnswerEmbedding struct {
	// AnswerID is the answer this vector was derived from.
	AnswerID int64

	// Content is the text snapshot that was embedded.
	Content string

	// Vector is the embedding.
	Vector []float32

	// Model is the embedding model that produced the vector.
	Model string

	// CreatedAt is when the embedding was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the embedding was last replaced.
	UpdatedAt time.Time
}

// IsStale reports whether the embedding no longer matches the answer text.
func (e *AnswerEmbedding) IsStale(a *Answer) bool {
	return e.Content != a.Text
}

// EmbeddedAnswer pairs an answer with its stored vector.
type EmbeddedAnswer struct {
	Answer Answer
	Vector []float32
}

// ScoredAnswer is a retrieval candidate with its similarity to the query.
type ScoredAnswer struct {
	Answer Answer  `json:"answer"`
	Score  float64 `json:"score"`
}

// EmbeddingStatus reports the outcome of a best-effort embedding attempt.
type EmbeddingStatus string

// Embedding attempt outcomes.
const (
	// EmbeddingIndexed means the embedding was computed and stored.
	EmbeddingIndexed EmbeddingStatus = "indexed"

	// EmbeddingSkipped means no embedding provider is configured.
	EmbeddingSkipped EmbeddingStatus = "skipped"

	// EmbeddingFailed means the provider or the store failed; the answer was still saved.
	EmbeddingFailed EmbeddingStatus = "failed"
)

// SaveResult is returned by a successful answer save.
type SaveResult struct {
	Answer    Answer          `json:"answer"`
	Embedding EmbeddingStatus `json:"embedding"`
}

// UpdateResult is returned by a successful answer update.
type UpdateResult struct {
	Answer    Answer          `json:"answer"`
	Embedding EmbeddingStatus `json:"embedding"`
}

// ReindexResult summarises one backfill batch.
type ReindexResult struct {
	// Indexed is the number of answers that received an embedding.
	Indexed int `json:"indexed"`

	// Failed is the number of answers whose embedding attempt failed.
	Failed int `json:"failed"`

	// HasMore is true when the batch was full and another run may find more work.
	HasMore bool `json:"has_more"`
}

// ExportFormat selects the rendering used by answer export.
type ExportFormat string

// Supported export formats.
const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportYAML ExportFormat = "yaml"
)

// IsValid returns true if the format is supported.
func (f ExportFormat) IsValid() bool {
	switch f {
	case ExportJSON, ExportCSV, ExportYAML:
		return true
	default:
		return false
	}
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv; charset=utf-8"
	case ExportYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}
