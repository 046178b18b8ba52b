package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

const defaultListLimit = 20

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	ProfileID int64    `json:"profile_id,omitempty" jsonschema:"profile to answer as (default profile when omitted)"`
	Message   string   `json:"message" jsonschema:"the question or message to reply to"`
	Formality *float64 `json:"formality,omitempty" jsonschema:"tone formality from 0 to 1 (default 0.5)"`
	Detail    *float64 `json:"detail,omitempty" jsonschema:"tone detail from 0 to 1 (default 0.5)"`
	Humor     *float64 `json:"humor,omitempty" jsonschema:"tone humor from 0 to 1 (default 0.5)"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	Reply     string            `json:"reply"`
	Mode      string            `json:"mode"`
	Citations []domain.Citation `json:"citations"`
}

// ListAnswersInput is the input schema for the list_answers tool.
type ListAnswersInput struct {
	ProfileID int64 `json:"profile_id,omitempty" jsonschema:"profile whose answers to list (default profile when omitted)"`
	Limit     int   `json:"limit,omitempty" jsonschema:"maximum number of answers to return (default 20)"`
}

// ListAnswersOutput is the output schema for the list_answers tool.
type ListAnswersOutput struct {
	Answers []AnswerOutput `json:"answers"`
	Count   int            `json:"count"`
}

// AnswerOutput represents a single recorded answer.
type AnswerOutput struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Created  string `json:"created_at"`
}

// SaveAnswerInput is the input schema for the save_answer tool.
type SaveAnswerInput struct {
	ProfileID int64  `json:"profile_id,omitempty" jsonschema:"profile to record the answer for (default profile when omitted)"`
	Question  string `json:"question" jsonschema:"the question being answered"`
	Answer    string `json:"answer" jsonschema:"the answer in the person's own words"`
}

// SaveAnswerOutput is the output schema for the save_answer tool.
type SaveAnswerOutput struct {
	ID        int64  `json:"id"`
	Embedding string `json:"embedding"`
}

// ReindexInput is the input schema for the reindex tool.
type ReindexInput struct {
	ProfileID int64 `json:"profile_id,omitempty" jsonschema:"profile to backfill (default profile when omitted)"`
	Limit     int   `json:"limit,omitempty" jsonschema:"maximum number of answers to embed (default from settings)"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Reply to a message in the voice of the recorded person, grounded in their answers",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_answers",
		Description: "List recorded answers, most recent first",
	}, s.handleListAnswers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_answer",
		Description: "Record a new answer to a question",
	}, s.handleSaveAnswer)

	if s.ports.Reindex != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "reindex",
			Description: "Compute missing embeddings for recorded answers",
		}, s.handleReindex)
	}
}

func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	profile, err := s.resolveProfile(ctx, input.ProfileID)
	if err != nil {
		return nil, ChatOutput{}, err
	}

	reply, err := s.ports.Chat.Chat(ctx, domain.ChatRequest{
		ProfileID: profile.ID,
		Message:   input.Message,
		Tone:      domain.ToneFrom(input.Formality, input.Detail, input.Humor),
	})
	if err != nil {
		return nil, ChatOutput{}, err
	}

	citations := reply.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return nil, ChatOutput{
		Reply:     reply.Text,
		Mode:      string(reply.Mode),
		Citations: citations,
	}, nil
}

func (s *Server) handleListAnswers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListAnswersInput,
) (*mcp.CallToolResult, ListAnswersOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	profile, err := s.resolveProfile(ctx, input.ProfileID)
	if err != nil {
		return nil, ListAnswersOutput{}, err
	}

	answers, err := s.ports.Answer.List(ctx, profile.ID, limit)
	if err != nil {
		return nil, ListAnswersOutput{}, err
	}

	output := ListAnswersOutput{
		Answers: make([]AnswerOutput, len(answers)),
		Count:   len(answers),
	}
	for i := range answers {
		output.Answers[i] = AnswerOutput{
			ID:       answers[i].ID,
			Question: answers[i].Question,
			Answer:   answers[i].Text,
			Created:  answers[i].CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return nil, output, nil
}

func (s *Server) handleSaveAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveAnswerInput,
) (*mcp.CallToolResult, SaveAnswerOutput, error) {
	profile, err := s.resolveProfile(ctx, input.ProfileID)
	if err != nil {
		return nil, SaveAnswerOutput{}, err
	}

	result, err := s.ports.Answer.Save(ctx, profile.ID, input.Question, input.Answer)
	if err != nil {
		return nil, SaveAnswerOutput{}, err
	}
	return nil, SaveAnswerOutput{
		ID:        result.Answer.ID,
		Embedding: string(result.Embedding),
	}, nil
}

func (s *Server) handleReindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReindexInput,
) (*mcp.CallToolResult, domain.ReindexResult, error) {
	if input.Limit < 0 {
		return nil, domain.ReindexResult{}, errors.New("limit must not be negative")
	}

	profile, err := s.resolveProfile(ctx, input.ProfileID)
	if err != nil {
		return nil, domain.ReindexResult{}, err
	}

	result, err := s.ports.Reindex.Reindex(ctx, profile.ID, input.Limit)
	if err != nil {
		return nil, domain.ReindexResult{}, err
	}
	return nil, *result, nil
}
