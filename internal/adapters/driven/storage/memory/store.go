package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
)

// Ensure sub-stores implement their interfaces.
var (
	_ driven.ProfileStore   = (*ProfileStore)(nil)
	_ driven.AnswerStore    = (*AnswerStore)(nil)
	_ driven.EmbeddingStore = (*EmbeddingStore)(nil)
)

// Store holds profiles, answers and embeddings behind a single lock.
type Store struct {
	mu         sync.RWMutex
	profiles   map[int64]domain.Profile
	answers    map[int64]domain.Answer
	embeddings map[int64]domain.AnswerEmbedding
	nextID     int64
	now        func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		profiles:   make(map[int64]domain.Profile),
		answers:    make(map[int64]domain.Answer),
		embeddings: make(map[int64]domain.AnswerEmbedding),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Profiles returns the profile store view.
func (s *Store) Profiles() *ProfileStore { return &ProfileStore{s} }

// Answers returns the answer store view.
func (s *Store) Answers() *AnswerStore { return &AnswerStore{s} }

// Embeddings returns the embedding store view.
func (s *Store) Embeddings() *EmbeddingStore { return &EmbeddingStore{s} }

// id hands out identifiers shared across tables (caller must hold lock).
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// newestFirst orders answers by creation time, then by ID, descending.
func newestFirst(a, b domain.Answer) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func oldestFirst(a, b domain.Answer) int {
	return newestFirst(b, a)
}

// profileAnswers returns copies of a profile's answers (caller must hold lock).
func (s *Store) profileAnswers(profileID int64, keep func(domain.Answer) bool) []domain.Answer {
	var out []domain.Answer
	for _, a := range s.answers {
		if a.ProfileID == profileID && (keep == nil || keep(a)) {
			out = append(out, a)
		}
	}
	return out
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// ==================== Profiles ====================

// ProfileStore implements driven.ProfileStore.
type ProfileStore struct{ s *Store }

// Create stores a new profile.
func (p *ProfileStore) Create(_ context.Context, profile *domain.Profile) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	for _, existing := range p.s.profiles {
		if existing.Name == profile.Name {
			return domain.ErrAlreadyExists
		}
	}

	profile.ID = p.s.id()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = p.s.now()
	}
	p.s.profiles[profile.ID] = *profile
	return nil
}

// Get retrieves a profile by ID.
func (p *ProfileStore) Get(_ context.Context, id int64) (*domain.Profile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	profile, ok := p.s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &profile, nil
}

// GetByName retrieves a profile by name.
func (p *ProfileStore) GetByName(_ context.Context, name string) (*domain.Profile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	for _, profile := range p.s.profiles {
		if profile.Name == name {
			return &profile, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all profiles ordered by ID.
func (p *ProfileStore) List(_ context.Context) ([]domain.Profile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]domain.Profile, 0, len(p.s.profiles))
	for _, profile := range p.s.profiles {
		out = append(out, profile)
	}
	slices.SortFunc(out, func(a, b domain.Profile) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ==================== Answers ====================

// AnswerStore implements driven.AnswerStore.
type AnswerStore struct{ s *Store }

// Create stores a new answer.
func (a *AnswerStore) Create(_ context.Context, answer *domain.Answer) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.profiles[answer.ProfileID]; !ok {
		return domain.ErrNotFound
	}

	now := a.s.now()
	answer.ID = a.s.id()
	answer.CreatedAt = now
	answer.UpdatedAt = now
	a.s.answers[answer.ID] = *answer
	return nil
}

// Get retrieves an answer by ID.
func (a *AnswerStore) Get(_ context.Context, id int64) (*domain.Answer, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	answer, ok := a.s.answers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &answer, nil
}

// UpdateText replaces the answer text and drops its embedding.
func (a *AnswerStore) UpdateText(_ context.Context, id int64, text string) (*domain.Answer, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	answer, ok := a.s.answers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	answer.Text = text
	answer.UpdatedAt = a.s.now()
	a.s.answers[id] = answer
	delete(a.s.embeddings, id)
	return &answer, nil
}

// Delete removes an answer and its embedding.
func (a *AnswerStore) Delete(_ context.Context, id int64) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.answers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(a.s.answers, id)
	delete(a.s.embeddings, id)
	return nil
}

// List returns up to limit answers, most recent first.
func (a *AnswerStore) List(_ context.Context, profileID int64, limit int) ([]domain.Answer, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := a.s.profileAnswers(profileID, nil)
	slices.SortFunc(out, newestFirst)
	return head(out, limit), nil
}

// ListAll returns every answer of a profile, oldest first.
func (a *AnswerStore) ListAll(_ context.Context, profileID int64) ([]domain.Answer, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := a.s.profileAnswers(profileID, nil)
	slices.SortFunc(out, oldestFirst)
	return out, nil
}

// Count returns the number of answers of a profile.
func (a *AnswerStore) Count(_ context.Context, profileID int64) (int, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	return len(a.s.profileAnswers(profileID, nil)), nil
}

// Search returns answers whose question or text contains term, most recent first.
func (a *AnswerStore) Search(_ context.Context, profileID int64, term string, limit int) ([]domain.Answer, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	needle := strings.ToLower(term)
	out := a.s.profileAnswers(profileID, func(ans domain.Answer) bool {
		return strings.Contains(strings.ToLower(ans.Question), needle) ||
			strings.Contains(strings.ToLower(ans.Text), needle)
	})
	slices.SortFunc(out, newestFirst)
	return head(out, limit), nil
}

// ==================== Embeddings ====================

// EmbeddingStore implements driven.EmbeddingStore.
type EmbeddingStore struct{ s *Store }

// Upsert creates or replaces the embedding of an answer.
func (e *EmbeddingStore) Upsert(_ context.Context, embedding *domain.AnswerEmbedding) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if _, ok := e.s.answers[embedding.AnswerID]; !ok {
		return domain.ErrNotFound
	}

	now := e.s.now()
	stored := *embedding
	stored.Vector = slices.Clone(embedding.Vector)
	stored.CreatedAt = now
	if existing, ok := e.s.embeddings[embedding.AnswerID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	stored.UpdatedAt = now
	e.s.embeddings[embedding.AnswerID] = stored
	return nil
}

// Get retrieves the embedding of an answer.
func (e *EmbeddingStore) Get(_ context.Context, answerID int64) (*domain.AnswerEmbedding, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	embedding, ok := e.s.embeddings[answerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	embedding.Vector = slices.Clone(embedding.Vector)
	return &embedding, nil
}

// ListEmbedded returns up to limit embedded answers, most recent first.
func (e *EmbeddingStore) ListEmbedded(_ context.Context, profileID int64, limit int) ([]domain.EmbeddedAnswer, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	answers := e.s.profileAnswers(profileID, func(a domain.Answer) bool {
		_, ok := e.s.embeddings[a.ID]
		return ok
	})
	slices.SortFunc(answers, newestFirst)
	answers = head(answers, limit)

	out := make([]domain.EmbeddedAnswer, 0, len(answers))
	for _, a := range answers {
		out = append(out, domain.EmbeddedAnswer{
			Answer: a,
			Vector: slices.Clone(e.s.embeddings[a.ID].Vector),
		})
	}
	return out, nil
}

// ListMissing returns up to limit answers without an embedding, oldest first.
func (e *EmbeddingStore) ListMissing(_ context.Context, profileID int64, limit int) ([]domain.Answer, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	out := e.s.profileAnswers(profileID, func(a domain.Answer) bool {
		_, ok := e.s.embeddings[a.ID]
		return !ok
	})
	slices.SortFunc(out, oldestFirst)
	return head(out, limit), nil
}
