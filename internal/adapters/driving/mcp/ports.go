package mcp

import (
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval serves the retrieve tool.
	Retrieval driving.RetrievalService

	// Build runs knowledge base builds.
	Build driving.BuildOrchestrator

	// KnowledgeBase reports state and previews files.
	KnowledgeBase driving.KnowledgeBaseService

	// DefaultUserID is used when a request does not name a user. Over HTTP
	// it is the only user the server answers for.
	DefaultUserID string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Build and KnowledgeBase are optional; their tools and resources
	// report unavailability.
	return nil
}
