package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/logger"
)

// ProfileHeader identifies the calling profile.
const ProfileHeader = "X-Profile-Id"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errInternal = errors.New("internal error")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps a domain error to an HTTP status and the message shown to the client.
// Validation messages are passed through. Unclassified errors get a generic
// message and their detail only goes to the log.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnknownProfile):
		return http.StatusUnauthorized, domain.ErrUnknownProfile.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.ErrForbidden.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, domain.ErrAlreadyExists.Error()
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, domain.ErrEmbeddingUnavailable.Error()
	case errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable, domain.ErrLLMUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, errInternal.Error()
	}
}

// fail logs err and writes the mapped status.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	l := logger.From(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error("request failed", "error", err)
	} else {
		l.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput)
	}
	return nil
}

type profileKey struct{}

// withProfile resolves X-Profile-Id before calling next.
// A missing, malformed or unknown id is rejected with 401.
func (s *Server) withProfile(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(ProfileHeader))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			fail(w, r, domain.ErrUnknownProfile)
			return
		}

		profile, err := s.ports.Profile.Get(r.Context(), id)
		if err != nil {
			fail(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), profileKey{}, profile)
		ctx = logger.With(ctx, logger.From(ctx).With("profile_id", profile.ID))
		next(w, r.WithContext(ctx))
	}
}

func currentProfile(r *http.Request) *domain.Profile {
	p, _ := r.Context().Value(profileKey{}).(*domain.Profile)
	return p
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.cfg.Status,
	})
}

type profileRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	profile, err := s.ports.Profile.Register(r.Context(), req.Name, req.PIN)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	profile, err := s.ports.Profile.Lookup(r.Context(), req.Name, req.PIN)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleCurrentProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentProfile(r))
}

func (s *Server) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		fail(w, r, err)
		return
	}
	answers, err := s.ports.Answer.List(r.Context(), currentProfile(r).ID, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	if answers == nil {
		answers = []domain.Answer{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answers": answers,
		"total":   len(answers),
	})
}

type saveRequest struct {
	Question string `json:"question"`
	Text     string `json:"text"`
}

func (s *Server) handleSaveAnswer(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	result, err := s.ports.Answer.Save(r.Context(), currentProfile(r).ID, req.Question, req.Text)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type updateRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleUpdateAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	result, err := s.ports.Answer.Update(r.Context(), currentProfile(r).ID, id, req.Text)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.ports.Answer.Delete(r.Context(), currentProfile(r).ID, id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCountAnswers(w http.ResponseWriter, r *http.Request) {
	n, err := s.ports.Answer.Count(r.Context(), currentProfile(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := domain.ExportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = domain.ExportJSON
	}
	if !format.IsValid() {
		fail(w, r, fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidInput, format))
		return
	}

	profile := currentProfile(r)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="memoir-%d.%s"`, profile.ID, format))

	// Headers are committed on the first write, so a failure mid-export can
	// only be logged and leaves a truncated body.
	if err := s.ports.Answer.Export(r.Context(), profile.ID, format, w); err != nil {
		logger.From(r.Context()).Error("export failed", "error", err)
	}
}

type toneRequest struct {
	Formality *float64 `json:"formality"`
	Detail    *float64 `json:"detail"`
	Humor     *float64 `json:"humor"`
}

type chatRequest struct {
	Message string       `json:"message"`
	Tone    *toneRequest `json:"tone"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	tone := domain.DefaultTone()
	if req.Tone != nil {
		tone = domain.ToneFrom(req.Tone.Formality, req.Tone.Detail, req.Tone.Humor)
	}

	reply, err := s.ports.Chat.Chat(r.Context(), domain.ChatRequest{
		ProfileID: currentProfile(r).ID,
		Message:   req.Message,
		Tone:      tone,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		fail(w, r, err)
		return
	}
	result, err := s.ports.Reindex.Reindex(r.Context(), currentProfile(r).ID, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// queryInt parses an optional non-negative integer query parameter. Absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: answer id must be a positive integer", domain.ErrInvalidInput)
	}
	return id, nil
}
