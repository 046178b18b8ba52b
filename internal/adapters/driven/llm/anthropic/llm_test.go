package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestChat_LiftsSystemMessages(t *testing.T) {
	var got messagesRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],"stop_reason":"end_turn"}`))
	})

	reply, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "persona"},
		{Role: driven.RoleSystem, Content: "excerpts"},
		{Role: driven.RoleUser, Content: "hi"},
	}, driven.ChatOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply)
	assert.Equal(t, "persona\n\nexcerpts", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, driven.RoleUser, got.Messages[0].Role)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
}

func TestChat_Errors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("error body", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
		})
		_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_tokens too large")
	})

	t.Run("no text", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"content":[]}`))
		})
		_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
		require.Error(t, err)
	})
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.WriteHeader(http.StatusForbidden)
	})

	err := svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
