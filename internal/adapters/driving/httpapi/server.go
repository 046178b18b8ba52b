// Package httpapi exposes the core services over a JSON HTTP API.
//
// Every /api route except profile registration and lookup identifies the
// caller with the X-Profile-Id header. Errors are returned as
// {"error": "..."} with a status derived from the domain sentinel.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/memoir/internal/core/ports/driving"
	"github.com/custodia-labs/memoir/internal/logger"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultAddr           = "127.0.0.1:8080"
	DefaultRequestTimeout = 60 * time.Second
	DefaultCORSOrigin     = "*"

	shutdownTimeout = 10 * time.Second
)

// Ports holds the driving ports the API dispatches to.
type Ports struct {
	Profile driving.ProfileService
	Answer  driving.AnswerService
	Chat    driving.ChatService
	Reindex driving.ReindexService
}

// Validate ensures every port is set.
func (p *Ports) Validate() error {
	if p.Profile == nil {
		return errors.New("profile service is required")
	}
	if p.Answer == nil {
		return errors.New("answer service is required")
	}
	if p.Chat == nil {
		return errors.New("chat service is required")
	}
	if p.Reindex == nil {
		return errors.New("reindex service is required")
	}
	return nil
}

// Status reports which optional providers are wired, for /healthz.
type Status struct {
	Embedding bool `json:"embedding"`
	LLM       bool `json:"llm"`
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	CORSOrigin     string
	Status         Status
}

// Server is the HTTP API server.
type Server struct {
	ports   Ports
	cfg     Config
	handler http.Handler
}

// NewServer builds the router and middleware chain.
func NewServer(ports Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ports: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = DefaultCORSOrigin
	}

	s := &Server{ports: ports, cfg: cfg}
	s.handler = chain(s.routes(),
		withRequestID,
		withAccessLog,
		withRecover,
		withCORS(cfg.CORSOrigin),
		withTimeout(cfg.RequestTimeout),
	)
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/profiles", s.handleRegister)
	mux.HandleFunc("POST /api/profiles/lookup", s.handleLookup)
	mux.HandleFunc("GET /api/profile", s.withProfile(s.handleCurrentProfile))

	mux.HandleFunc("GET /api/answers", s.withProfile(s.handleListAnswers))
	mux.HandleFunc("POST /api/answers", s.withProfile(s.handleSaveAnswer))
	mux.HandleFunc("GET /api/answers/count", s.withProfile(s.handleCountAnswers))
	mux.HandleFunc("PUT /api/answers/{id}", s.withProfile(s.handleUpdateAnswer))
	mux.HandleFunc("DELETE /api/answers/{id}", s.withProfile(s.handleDeleteAnswer))
	mux.HandleFunc("GET /api/export", s.withProfile(s.handleExport))

	mux.HandleFunc("POST /api/chat", s.withProfile(s.handleChat))
	mux.HandleFunc("POST /api/reindex", s.withProfile(s.handleReindex))
	return mux
}

// Handler returns the fully wrapped handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.From(ctx).Info("HTTP API listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.From(ctx).Info("HTTP API stopped")
	return nil
}
