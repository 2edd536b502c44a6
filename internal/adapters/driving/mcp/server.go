package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `Use retrieve to look up passages in a user's knowledge base before answering
questions about their documents. Cite the fileId of each passage you use.
Call build_knowledge_base after documents were uploaded or deleted.
Read kb://{userId}/state to see which files are indexed.`

// Server is the MCP server for astraqa.
type Server struct {
	ports  *Ports
	server *mcp.Server

	// pinned restricts every request to ports.DefaultUserID. It is set
	// when the server is exposed over HTTP.
	pinned bool
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "astraqa",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving on stdio, default user %q", s.ports.DefaultUserID)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// Requests are pinned to the default user.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	s.pinned = true

	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	logger.Info("mcp: listening on %s for user %q", addr, s.ports.DefaultUserID)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// user resolves the knowledge base owner of a request. Over stdio the
// caller may name any user; over HTTP only the default user is served.
func (s *Server) user(requested string) (string, error) {
	def := s.ports.DefaultUserID
	switch {
	case requested == "" && def == "":
		return "", ErrMissingUser
	case requested == "":
		return def, nil
	case s.pinned && requested != def:
		logger.Warn("mcp: rejected request for user %q", requested)
		return "", ErrUserNotAllowed
	}
	return requested, nil
}
