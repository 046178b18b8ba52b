package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

// exportRecord is the flat shape written by every export format.
type exportRecord struct {
	ID        int64  `json:"id" yaml:"id"`
	Question  string `json:"question" yaml:"question"`
	Answer    string `json:"answer" yaml:"answer"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
	UpdatedAt string `json:"updated_at" yaml:"updated_at"`
}

// csvHeader is the first row of a CSV export.
var csvHeader = []string{"id", "question", "answer", "created_at", "updated_at"}

// Export writes every answer of a profile, oldest first, in the given format.
func (s *AnswerService) Export(
	ctx context.Context, profileID int64, format domain.ExportFormat, w io.Writer,
) error {
	if !format.IsValid() {
		return goerr.Wrap(domain.ErrInvalidInput, "unsupported export format", goerr.V("format", format))
	}
	if _, err := requireProfile(ctx, s.profiles, profileID); err != nil {
		return err
	}

	answers, err := s.answers.ListAll(ctx, profileID)
	if err != nil {
		return storageError(err, "failed to load answers for export", goerr.V("profile_id", profileID))
	}

	records := make([]exportRecord, len(answers))
	for i := range answers {
		records[i] = exportRecord{
			ID:        answers[i].ID,
			Question:  answers[i].Question,
			Answer:    answers[i].Text,
			CreatedAt: answers[i].CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: answers[i].UpdatedAt.UTC().Format(time.RFC3339),
		}
	}

	switch format {
	case domain.ExportCSV:
		err = writeCSV(w, records)
	case domain.ExportYAML:
		err = writeYAML(w, records)
	default:
		err = writeJSON(w, records)
	}
	if err != nil {
		return goerr.Wrap(err, "failed to write export", goerr.V("format", format))
	}
	return nil
}

func writeJSON(w io.Writer, records []exportRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeYAML(w io.Writer, records []exportRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}

// writeCSV quotes fields containing delimiters, quotes or newlines (RFC 4180).
func writeCSV(w io.Writer, records []exportRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{strconv.FormatInt(r.ID, 10), r.Question, r.Answer, r.CreatedAt, r.UpdatedAt}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
