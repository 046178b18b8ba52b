package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
)

var errMockProvider = errors.New("mock provider failure")

// mockEmbedder maps texts to vectors by keyword.
// The first keyword contained in the text wins; otherwise fallback is returned.
type mockEmbedder struct {
	mu       sync.Mutex
	keywords []string
	vectors  map[string][]float32
	fallback []float32
	dims     int
	failOn   string
	err      error
	inputs   []string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:  make(map[string][]float32),
		fallback: []float32{0, 0, 1},
	}
}

func (m *mockEmbedder) on(keyword string, vector ...float32) *mockEmbedder {
	m.keywords = append(m.keywords, keyword)
	m.vectors[keyword] = vector
	return m
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, text)

	if m.err != nil {
		return nil, m.err
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errMockProvider
	}
	lower := strings.ToLower(text)
	for _, k := range m.keywords {
		if strings.Contains(lower, k) {
			return m.vectors[k], nil
		}
	}
	return m.fallback, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) ModelName() string { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error { return nil }

func (m *mockEmbedder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// mockLLM returns a canned reply and records what it was sent.
type mockLLM struct {
	reply    string
	err      error
	panics   bool
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return m.reply, m.err
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if m.panics {
		panic("llm exploded")
	}
	m.messages = messages
	m.opts = opts
	return m.reply, m.err
}

func (m *mockLLM) ModelName() string { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error { return nil }

// failingAnswerStore wraps an AnswerStore and fails selected operations.
type failingAnswerStore struct {
	driven.AnswerStore
	searchErr error
	createErr error
}

func (f *failingAnswerStore) Search(ctx context.Context, profileID int64, term string, limit int) ([]domain.Answer, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.AnswerStore.Search(ctx, profileID, term, limit)
}

func (f *failingAnswerStore) Create(ctx context.Context, answer *domain.Answer) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.AnswerStore.Create(ctx, answer)
}

// failingEmbeddingStore fails Upsert for one answer.
type failingEmbeddingStore struct {
	driven.EmbeddingStore
	failFor int64
}

func (f *failingEmbeddingStore) Upsert(ctx context.Context, e *domain.AnswerEmbedding) error {
	if e.AnswerID == f.failFor {
		return errors.New("disk full")
	}
	return f.EmbeddingStore.Upsert(ctx, e)
}

// fixture bundles a memory store with services wired against it.
type fixture struct {
	store    *memory.Store
	embedder *mockEmbedder
	llm      *mockLLM
	profiles *ProfileService
	answers  *AnswerService
	chat     *ChatService
	reindex  *ReindexService
	adapter  *EmbeddingAdapter
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	noEmbedder bool
	noLLM      bool
	opts       ComposerOptions
}

func withoutEmbedder() fixtureOption { return func(c *fixtureConfig) { c.noEmbedder = true } }
func withoutLLM() fixtureOption { return func(c *fixtureConfig) { c.noLLM = true } }
func withComposer(o ComposerOptions) fixtureOption {
	return func(c *fixtureConfig) { c.opts = o }
}

func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{opts: ComposerOptions{Retrieve: DefaultRetrieveOptions()}}
	for _, o := range options {
		o(&cfg)
	}

	f := &fixture{
		store:    memory.NewStore(),
		embedder: newMockEmbedder(),
		llm:      &mockLLM{reply: "I loved making lasagna on Sundays."},
	}

	var embedSvc driven.EmbeddingService = f.embedder
	if cfg.noEmbedder {
		embedSvc = nil
	}
	var llm driven.LLMService = f.llm
	if cfg.noLLM {
		llm = nil
	}

	adapter := NewEmbeddingAdapter(embedSvc, 0)
	f.adapter = adapter
	profiles, answers, embeddings := f.store.Profiles(), f.store.Answers(), f.store.Embeddings()

	f.profiles = NewProfileService(profiles)
	f.answers = NewAnswerService(profiles, answers, embeddings, adapter)
	f.chat = NewChatService(profiles, answers, NewRetriever(embeddings), adapter, llm, cfg.opts)
	f.reindex = NewReindexService(profiles, embeddings, adapter, 0)
	return f
}

func (f *fixture) profile(t *testing.T, name string) *domain.Profile {
	t.Helper()
	p, err := f.profiles.Register(context.Background(), name, "")
	require.NoError(t, err)
	return p
}

func (f *fixture) save(t *testing.T, profileID int64, question, text string) *domain.SaveResult {
	t.Helper()
	res, err := f.answers.Save(context.Background(), profileID, question, text)
	require.NoError(t, err)
	return res
}
