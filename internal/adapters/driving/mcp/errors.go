// Package mcp provides an MCP (Model Context Protocol) server adapter for astraqa.
// It lets LLM collaborators retrieve knowledge base chunks and trigger builds.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingUser is returned when a tool call names no user and the server
// has no default user.
var ErrMissingUser = errors.New("mcp: user_id is required")

// ErrUserNotAllowed is returned when a request over HTTP names a user other
// than the serving user.
var ErrUserNotAllowed = errors.New("mcp: user_id override is only accepted over stdio")
