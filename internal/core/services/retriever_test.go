package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/memoir/internal/core/domain"
)

// seedEmbedded stores an answer with an explicit vector.
func seedEmbedded(t *testing.T, s *memory.Store, profileID int64, question string, vector []float32) *domain.Answer {
	t.Helper()
	ctx := context.Background()
	a := &domain.Answer{ProfileID: profileID, Question: question, Text: question + " answer"}
	require.NoError(t, s.Answers().Create(ctx, a))
	require.NoError(t, s.Embeddings().Upsert(ctx, &domain.AnswerEmbedding{
		AnswerID: a.ID, Content: a.Text, Vector: vector,
	}))
	return a
}

// unitAt returns a 2-d unit vector whose cosine with (1, 0) is cos.
func unitAt(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func retrieverFixture(t *testing.T) (*memory.Store, *domain.Profile) {
	t.Helper()
	s := memory.NewStore()
	p := &domain.Profile{Name: "grandma"}
	require.NoError(t, s.Profiles().Create(context.Background(), p))
	return s, p
}

func TestRetriever_RanksByScoreAndDropsLowScores(t *testing.T) {
	s, p := retrieverFixture(t)
	seedEmbedded(t, s, p.ID, "low", unitAt(0.05))
	mid := seedEmbedded(t, s, p.ID, "mid", unitAt(0.5))
	high := seedEmbedded(t, s, p.ID, "high", unitAt(0.9))

	r := NewRetriever(s.Embeddings())
	got, err := r.Retrieve(context.Background(), p.ID, []float32{1, 0}, DefaultRetrieveOptions())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, high.ID, got[0].Answer.ID)
	assert.InDelta(t, 0.9, got[0].Score, 1e-5)
	assert.Equal(t, mid.ID, got[1].Answer.ID)
	assert.InDelta(t, 0.5, got[1].Score, 1e-5)
}

func TestRetriever_TopKAppliedBeforeThreshold(t *testing.T) {
	s, p := retrieverFixture(t)
	for i := 0; i < 4; i++ {
		seedEmbedded(t, s, p.ID, "strong", unitAt(0.8))
	}

	r := NewRetriever(s.Embeddings())
	got, err := r.Retrieve(context.Background(), p.ID, []float32{1, 0},
		RetrieveOptions{PoolSize: 200, TopK: 3, MinScore: 0.1})

	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRetriever_TiesKeepRecencyOrder(t *testing.T) {
	s, p := retrieverFixture(t)
	older := seedEmbedded(t, s, p.ID, "older", unitAt(0.7))
	newer := seedEmbedded(t, s, p.ID, "newer", unitAt(0.7))

	r := NewRetriever(s.Embeddings())
	got, err := r.Retrieve(context.Background(), p.ID, []float32{1, 0}, DefaultRetrieveOptions())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].Answer.ID)
	assert.Equal(t, older.ID, got[1].Answer.ID)
}

func TestRetriever_PoolSizeLimitsCandidates(t *testing.T) {
	s, p := retrieverFixture(t)
	best := seedEmbedded(t, s, p.ID, "oldest but best", unitAt(0.99))
	seedEmbedded(t, s, p.ID, "recent", unitAt(0.4))
	seedEmbedded(t, s, p.ID, "most recent", unitAt(0.3))

	r := NewRetriever(s.Embeddings())
	got, err := r.Retrieve(context.Background(), p.ID, []float32{1, 0},
		RetrieveOptions{PoolSize: 2, TopK: 5, MinScore: 0.1})

	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, g := range got {
		assert.NotEqual(t, best.ID, g.Answer.ID)
	}
}

func TestRetriever_SkipsMismatchedDimensions(t *testing.T) {
	s, p := retrieverFixture(t)
	seedEmbedded(t, s, p.ID, "old model", []float32{1, 0, 0})
	ok := seedEmbedded(t, s, p.ID, "current model", unitAt(0.9))

	r := NewRetriever(s.Embeddings())
	got, err := r.Retrieve(context.Background(), p.ID, []float32{1, 0}, DefaultRetrieveOptions())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ok.ID, got[0].Answer.ID)
}

func TestRetriever_IsIdempotent(t *testing.T) {
	s, p := retrieverFixture(t)
	seedEmbedded(t, s, p.ID, "a", unitAt(0.9))
	seedEmbedded(t, s, p.ID, "b", unitAt(0.6))
	seedEmbedded(t, s, p.ID, "c", unitAt(0.6))

	r := NewRetriever(s.Embeddings())
	ctx := context.Background()
	first, err := r.Retrieve(ctx, p.ID, []float32{1, 0}, DefaultRetrieveOptions())
	require.NoError(t, err)
	second, err := r.Retrieve(ctx, p.ID, []float32{1, 0}, DefaultRetrieveOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRetriever_EmptyResults(t *testing.T) {
	s, p := retrieverFixture(t)
	r := NewRetriever(s.Embeddings())
	ctx := context.Background()

	got, err := r.Retrieve(ctx, p.ID, []float32{1, 0}, DefaultRetrieveOptions())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	seedEmbedded(t, s, p.ID, "orthogonal", []float32{0, 1})
	got, err = r.Retrieve(ctx, p.ID, []float32{1, 0}, DefaultRetrieveOptions())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Retrieve(ctx, p.ID, []float32{1, 0}, RetrieveOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetriever_ScopedToProfile(t *testing.T) {
	s, p := retrieverFixture(t)
	other := &domain.Profile{Name: "stranger"}
	require.NoError(t, s.Profiles().Create(context.Background(), other))
	seedEmbedded(t, s, other.ID, "not mine", unitAt(1))

	r := NewRetriever(s.Embeddings())
	got, err := r.Retrieve(context.Background(), p.ID, []float32{1, 0}, DefaultRetrieveOptions())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveOptionsFrom(t *testing.T) {
	opts := RetrieveOptionsFrom(domain.RetrievalSettings{TopK: 3, MinScore: -1})

	assert.Equal(t, domain.DefaultPoolSize, opts.PoolSize)
	assert.Equal(t, 3, opts.TopK)
	assert.InDelta(t, domain.DefaultMinScore, opts.MinScore, 1e-9)
}

func TestRetrieveOptionsFrom_ZeroMinScoreKeepsEveryPositiveMatch(t *testing.T) {
	settings := domain.DefaultAppSettings().Retrieval
	settings.MinScore = 0

	opts := RetrieveOptionsFrom(settings)
	assert.Zero(t, opts.MinScore)

	s, p := retrieverFixture(t)
	seedEmbedded(t, s, p.ID, "faint", unitAt(0.05))

	got, err := NewRetriever(s.Embeddings()).Retrieve(context.Background(), p.ID, []float32{1, 0}, opts)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Less(t, got[0].Score, domain.DefaultMinScore)
}
