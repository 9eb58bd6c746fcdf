package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/infrastructure"
	"github.com/JaimeStill/docpages/internal/routes"
	"github.com/JaimeStill/docpages/internal/server"
)

// Server coordinates the lifecycle of all subsystems.
type Server struct {
	infra  *infrastructure.Infrastructure
	domain *Domain
	http   server.System
}

// NewServer creates and initializes the service with all subsystems.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	domain, err := NewDomain(infra, cfg)
	if err != nil {
		return nil, err
	}

	routeSys := routes.New(infra.Logger)
	registerRoutes(routeSys, infra, domain, cfg)
	handler := buildMiddleware(infra, cfg).Apply(routeSys.Build())

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"strategy", cfg.Conversion.Strategy,
		"format", cfg.Pages.Format,
	)

	return &Server{
		infra:  infra,
		domain: domain,
		http:   server.New(&cfg.Server, handler, infra.Logger),
	}, nil
}

// Start begins all subsystems and returns once they are registered.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.domain.Start(s.infra.Lifecycle); err != nil {
		return fmt.Errorf("domain start failed: %w", err)
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return fmt.Errorf("server start failed: %w", err)
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown cancels all subsystems and waits up to timeout for them to drain.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
