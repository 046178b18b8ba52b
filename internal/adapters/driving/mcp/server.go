package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/memoir/internal/core/domain"
	"github.com/custodia-labs/memoir/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the MCP server for memoir.
type Server struct {
	ports          *Ports
	defaultProfile string
	server         *mcp.Server
}

// NewServer creates a new MCP server. Tool calls that omit profile_id act on
// defaultProfile, which is created on first use.
func NewServer(ports *Ports, defaultProfile string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if defaultProfile == "" {
		defaultProfile = domain.DefaultAppSettings().DefaultProfile
	}

	impl := &mcp.Implementation{
		Name:    "memoir",
		Version: Version,
	}

	s := &Server{
		ports:          ports,
		defaultProfile: defaultProfile,
		server:         mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr until the context is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeHTTP(ctx, ln)
}

// ServeHTTP serves streamable HTTP on ln until the context is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.From(ctx).Warn("mcp shutdown", "error", err)
		}
	}()

	err := httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// resolveProfile returns the profile with the given id, or the default
// profile when id is zero.
func (s *Server) resolveProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	if id == 0 {
		return s.ports.Profile.EnsureDefault(ctx, s.defaultProfile)
	}
	return s.ports.Profile.Get(ctx, id)
}
