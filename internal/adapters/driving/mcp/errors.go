// Package mcp exposes memoir to AI assistants over the Model Context Protocol.
package mcp

import "errors"

// Errors returned by NewServer when a required port is missing.
var (
	ErrMissingChatService    = errors.New("mcp: chat service is required")
	ErrMissingAnswerService  = errors.New("mcp: answer service is required")
	ErrMissingProfileService = errors.New("mcp: profile service is required")
)
