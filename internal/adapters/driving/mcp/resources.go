package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/memoir/internal/core/domain"
)

// uriScheme is the custom URI scheme for memoir resources.
const uriScheme = "memoir://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "profiles",
		Name:        "profiles",
		Description: "All registered profiles",
		MIMEType:    "application/json",
	}, s.handleProfilesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "profiles/{id}/answers",
		Name:        "profile-answers",
		Description: "Every recorded answer of a profile, oldest first",
		MIMEType:    domain.ExportJSON.ContentType(),
	}, s.handleAnswersResource)
}

func (s *Server) handleProfilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	profiles, err := s.ports.Profile.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling profiles: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleAnswersResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// memoir://profiles/{id}/answers
	profileID, ok := extractProfileID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	if _, err := s.ports.Profile.Get(ctx, profileID); err != nil {
		if errors.Is(err, domain.ErrUnknownProfile) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	var buf bytes.Buffer
	if err := s.ports.Answer.Export(ctx, profileID, domain.ExportJSON, &buf); err != nil {
		return nil, fmt.Errorf("exporting answers: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: domain.ExportJSON.ContentType(),
			Text:     buf.String(),
		}},
	}, nil
}

// extractProfileID extracts the profile id from memoir://profiles/{id}/answers.
func extractProfileID(uri string) (int64, bool) {
	const prefix = uriScheme + "profiles/"
	const suffix = "/answers"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
