package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	reply   *domain.Reply
	err     error
	lastReq domain.ChatRequest
}

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	m.lastReq = req
	return m.reply, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answers    []domain.Answer
	saveResult *domain.SaveResult
	exported   string
	err        error
	lastLimit  int
	lastID     int64
}

func (m *mockAnswerService) Save(_ context.Context, profileID int64, _, _ string) (*domain.SaveResult, error) {
	m.lastID = profileID
	return m.saveResult, m.err
}

func (m *mockAnswerService) Update(_ context.Context, _, _ int64, _ string) (*domain.UpdateResult, error) {
	return nil, m.err
}

func (m *mockAnswerService) Delete(_ context.Context, _, _ int64) error {
	return m.err
}

func (m *mockAnswerService) List(_ context.Context, profileID int64, limit int) ([]domain.Answer, error) {
	m.lastID = profileID
	m.lastLimit = limit
	return m.answers, m.err
}

func (m *mockAnswerService) Count(_ context.Context, _ int64) (int, error) {
	return len(m.answers), m.err
}

func (m *mockAnswerService) Export(_ context.Context, profileID int64, _ domain.ExportFormat, w io.Writer) error {
	m.lastID = profileID
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, m.exported)
	return err
}

// mockProfileService is a mock implementation of driving.ProfileService.
type mockProfileService struct {
	profiles    []domain.Profile
	defaultName string
	err         error
}

func (m *mockProfileService) Register(_ context.Context, name, _ string) (*domain.Profile, error) {
	return &domain.Profile{ID: int64(len(m.profiles) + 1), Name: name}, m.err
}

func (m *mockProfileService) Get(_ context.Context, id int64) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.profiles {
		if m.profiles[i].ID == id {
			return &m.profiles[i], nil
		}
	}
	return nil, domain.ErrUnknownProfile
}

func (m *mockProfileService) Lookup(_ context.Context, name, _ string) (*domain.Profile, error) {
	for i := range m.profiles {
		if m.profiles[i].Name == name {
			return &m.profiles[i], nil
		}
	}
	return nil, domain.ErrUnknownProfile
}

func (m *mockProfileService) List(_ context.Context) ([]domain.Profile, error) {
	return m.profiles, m.err
}

func (m *mockProfileService) EnsureDefault(_ context.Context, name string) (*domain.Profile, error) {
	m.defaultName = name
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Profile{ID: 1, Name: name}, nil
}

// mockReindexService is a mock implementation of driving.ReindexService.
type mockReindexService struct {
	result    *domain.ReindexResult
	err       error
	lastLimit int
}

func (m *mockReindexService) Reindex(_ context.Context, _ int64, batchLimit int) (*domain.ReindexResult, error) {
	m.lastLimit = batchLimit
	return m.result, m.err
}

func newTestPorts() *Ports {
	return &Ports{
		Chat:    &mockChatService{reply: &domain.Reply{Text: "hello", Mode: domain.ReplyFallback}},
		Answer:  &mockAnswerService{},
		Profile: &mockProfileService{profiles: []domain.Profile{{ID: 1, Name: "me"}, {ID: 7, Name: "grandma"}}},
		Reindex: &mockReindexService{result: &domain.ReindexResult{}},
	}
}
