package services

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/core/ports/driving"
	"github.com/custodia-labs/memoir/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

//go:embed prompt/persona.tmpl
var defaultPersonaPrompt string

// fallbackMatchLimit is how many lexical matches a fallback reply quotes.
const fallbackMatchLimit = 3

// Canned reply bodies. The disclosure is appended to each.
const (
	uncertainReply  = "I'm not sure I captured this in my recorded answers, so I'd rather not guess."
	nothingFound    = "I don't have any recorded answers about that yet. Add more answers and ask me again."
	fallbackPreface = "I can't give a full answer right now, but here is what I recorded that seems related:"
)

// errNothingRetrieved routes a primary-path request with no excerpts to the fallback path.
var errNothingRetrieved = errors.New("no excerpts above threshold")

// DefaultPrompts returns the built-in prompt templates keyed by prompt name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptPersona: defaultPersonaPrompt,
	}
}

// ComposerOptions configures reply synthesis.
type ComposerOptions struct {
	Retrieve    RetrieveOptions
	MaxTokens   int
	Temperature float64
	Disclosure  string
}

// ComposerOptionsFrom builds options from application settings.
func ComposerOptionsFrom(settings *domain.AppSettings) ComposerOptions {
	opts := ComposerOptions{
		Retrieve:    RetrieveOptionsFrom(settings.Retrieval),
		MaxTokens:   settings.Composer.MaxTokens,
		Temperature: settings.Composer.Temperature,
		Disclosure:  settings.Composer.Disclosure,
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = domain.DefaultMaxTokens
	}
	if opts.Disclosure == "" {
		opts.Disclosure = domain.DefaultDisclosure
	}
	return opts
}

// ChatService composes first-person replies grounded in a profile's answers.
//
// The primary path embeds the question, retrieves excerpts and asks the LLM to
// answer from them. Whenever that path is unavailable or fails, a lexical
// fallback quotes matching answers instead. Every reply ends with the disclosure.
type ChatService struct {
	profiles  driven.ProfileStore
	answers   driven.AnswerStore
	retriever *Retriever
	embedder  *EmbeddingAdapter
	llm       driven.LLMService
	prompts   driven.PromptStore
	opts      ComposerOptions
}

// NewChatService creates a new chat service.
// The llm parameter is optional (can be nil), as is the provider behind embedder.
func NewChatService(
	profiles driven.ProfileStore,
	answers driven.AnswerStore,
	retriever *Retriever,
	embedder *EmbeddingAdapter,
	llm driven.LLMService,
	opts ComposerOptions,
) *ChatService {
	if opts.Disclosure == "" {
		opts.Disclosure = domain.DefaultDisclosure
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = domain.DefaultMaxTokens
	}
	return &ChatService{
		profiles:  profiles,
		answers:   answers,
		retriever: retriever,
		embedder:  embedder,
		llm:       llm,
		opts:      opts,
	}
}

// SetPromptStore sets the prompt store for loading a customised persona prompt.
// If not set, the embedded default is used.
func (s *ChatService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Chat composes a reply to req.
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, goerr.Wrap(domain.ErrInvalidInput, "message is required")
	}
	profile, err := requireProfile(ctx, s.profiles, req.ProfileID)
	if err != nil {
		return nil, err
	}
	req.Message = message
	req.Tone = req.Tone.Clamp()

	log := logger.From(ctx)
	logger.Section(ctx, "Chat")
	log.Debug("composer paths", "embedding", s.embedder.Available(), "llm", s.llm != nil)

	if s.embedder.Available() && s.llm != nil {
		reply, err := s.grounded(ctx, profile, req)
		if err == nil {
			return reply, nil
		}
		if errors.Is(err, errNothingRetrieved) {
			log.Debug("no excerpts retrieved, using fallback", "profile_id", profile.ID)
		} else {
			log.Warn("grounded reply failed, using fallback", "profile_id", profile.ID, "error", err)
		}
	}

	return s.fallback(ctx, profile.ID, message)
}

// grounded runs the primary path. It never panics past its caller.
func (s *ChatService) grounded(
	ctx context.Context, profile *domain.Profile, req domain.ChatRequest,
) (reply *domain.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply, err = nil, goerr.New("grounded reply panicked", goerr.V("panic", fmt.Sprint(r)))
		}
	}()

	logger.Section(ctx, "Retrieval")
	query, err := s.embedder.Embed(ctx, req.Message)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed question")
	}

	excerpts, err := s.retriever.Retrieve(ctx, profile.ID, query, s.opts.Retrieve)
	if err != nil {
		return nil, err
	}
	if len(excerpts) == 0 {
		return nil, errNothingRetrieved
	}

	logger.Section(ctx, "Synthesis")
	system, err := s.renderPersona(profile, req.Tone)
	if err != nil {
		return nil, err
	}

	text, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: formatExcerpts(excerpts, req.Message)},
	}, driven.ChatOptions{
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, goerr.Wrap(errors.Join(domain.ErrProviderError, err), "failed to generate reply",
			goerr.V("model", s.llm.ModelName()))
	}

	citations := make([]domain.Citation, len(excerpts))
	for i, e := range excerpts {
		citations[i] = domain.Citation{
			Rank:     i + 1,
			AnswerID: e.Answer.ID,
			Question: e.Answer.Question,
			Score:    e.Score,
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return &domain.Reply{
			Text:      s.withDisclosure(uncertainReply),
			Mode:      domain.ReplyUncertain,
			Citations: citations,
		}, nil
	}

	return &domain.Reply{
		Text:      s.withDisclosure(text),
		Mode:      domain.ReplyGrounded,
		Citations: citations,
	}, nil
}

// fallback quotes recent answers that contain the first word of the message.
func (s *ChatService) fallback(ctx context.Context, profileID int64, message string) (*domain.Reply, error) {
	logger.Section(ctx, "Fallback")
	term := lexicalTerm(message)

	matches, err := s.answers.Search(ctx, profileID, term, fallbackMatchLimit)
	if err != nil {
		return nil, storageError(err, "failed to search answers", goerr.V("profile_id", profileID))
	}
	logger.From(ctx).Debug("lexical matches", "term", term, "count", len(matches))

	if len(matches) == 0 {
		return &domain.Reply{
			Text:      s.withDisclosure(nothingFound),
			Mode:      domain.ReplyFallback,
			Citations: []domain.Citation{},
		}, nil
	}

	var b strings.Builder
	b.WriteString(fallbackPreface)
	b.WriteString("\n")
	citations := make([]domain.Citation, len(matches))
	for i, m := range matches {
		fmt.Fprintf(&b, "\n- Q: %s\n  A: %s", m.Question, m.Text)
		citations[i] = domain.Citation{Rank: i + 1, AnswerID: m.ID, Question: m.Question}
	}

	return &domain.Reply{
		Text:      s.withDisclosure(b.String()),
		Mode:      domain.ReplyFallback,
		Citations: citations,
	}, nil
}

// renderPersona executes the persona template for profile and tone.
func (s *ChatService) renderPersona(profile *domain.Profile, tone domain.Tone) (string, error) {
	raw := defaultPersonaPrompt
	if s.prompts != nil {
		if custom, err := s.prompts.Load(driven.PromptPersona); err == nil && strings.TrimSpace(custom) != "" {
			raw = custom
		}
	}

	tmpl, err := template.New(driven.PromptPersona).Funcs(template.FuncMap{
		"level": toneLevel,
	}).Parse(raw)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse persona prompt")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"Name":       profile.Name,
		"Tone":       tone,
		"Disclosure": s.opts.Disclosure,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute persona prompt")
	}
	return buf.String(), nil
}

// withDisclosure makes body end with the disclosure sentence exactly once.
func (s *ChatService) withDisclosure(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasSuffix(body, s.opts.Disclosure) {
		return body
	}
	return body + "\n\n" + s.opts.Disclosure
}

// formatExcerpts renders excerpts as numbered blocks followed by the question.
func formatExcerpts(excerpts []domain.ScoredAnswer, question string) string {
	var b strings.Builder
	b.WriteString("Excerpts:\n")
	for i, e := range excerpts {
		fmt.Fprintf(&b, "\n[%d] (score %.2f)\nQ: %s\nA: %s\n", i+1, e.Score, e.Answer.Question, e.Answer.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String()
}

// lexicalTerm is the first whitespace-delimited token of message.
func lexicalTerm(message string) string {
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return message
	}
	return fields[0]
}

// toneLevel picks a description for a slider value.
func toneLevel(v float64, low, mid, high string) string {
	switch {
	case v < 0.34:
		return low
	case v > 0.66:
		return high
	default:
		return mid
	}
}
