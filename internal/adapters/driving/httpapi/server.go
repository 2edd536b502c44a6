package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
)

// BasePath prefixes every route.
const BasePath = "/api/knowledge-base"

// DefaultBodyLimit caps request bodies, uploads included.
const DefaultBodyLimit = "50M"

// Ports aggregates the driving ports the API serves.
type Ports struct {
	Build         driving.BuildOrchestrator
	Retrieval     driving.RetrievalService
	KnowledgeBase driving.KnowledgeBaseService
	Health        driving.HealthService
}

// Validate ensures all ports are set.
func (p *Ports) Validate() error {
	if p.Build == nil || p.Retrieval == nil || p.KnowledgeBase == nil || p.Health == nil {
		return ErrMissingService
	}
	return nil
}

// Server is the knowledge base REST API.
type Server struct {
	ports *Ports
	echo  *echo.Echo
}

// NewServer creates the API and registers its routes.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(middleware.BodyLimit(DefaultBodyLimit))

	s := &Server{ports: ports, echo: e}
	s.register()
	return s, nil
}

func (s *Server) register() {
	g := s.echo.Group(BasePath, RequireUser())
	g.POST("/build", s.handleBuild)
	g.POST("/retrieve", s.handleRetrieve)
	g.GET("/state", s.handleState)
	g.POST("/reset", s.handleReset)
	g.POST("/upload", s.handleUpload)
	g.GET("/files/:id", s.handlePreview)
	g.DELETE("/files/:id", s.handleDelete)
	g.GET("/healthcheck", s.handleHealthCheck)
}

// Handler returns the API as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves the API on addr.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
