package mcp

import (
	"github.com/custodia-labs/memoir/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	Chat    driving.ChatService
	Answer  driving.AnswerService
	Profile driving.ProfileService

	// Reindex is optional. The reindex tool is only registered when set.
	Reindex driving.ReindexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Chat == nil:
		return ErrMissingChatService
	case p.Answer == nil:
		return ErrMissingAnswerService
	case p.Profile == nil:
		return ErrMissingProfileService
	}
	return nil
}
