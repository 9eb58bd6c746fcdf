package main

import (
	"net/http"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/infrastructure"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/JaimeStill/docpages/internal/pages"
	"github.com/JaimeStill/docpages/internal/pipeline"
	"github.com/JaimeStill/docpages/internal/sessions"
	"github.com/JaimeStill/docpages/pkg/routes"
)

// registerRoutes configures all HTTP routes for the service.
func registerRoutes(r routes.System, infra *infrastructure.Infrastructure, domain *Domain, cfg *config.Config) {
	pipelineHandler := pipeline.NewHandler(domain.Pipeline, infra.Logger, cfg.Storage.MaxUploadSizeBytes())
	pagesHandler := pages.NewHandler(domain.Pages, infra.Logger)
	sessionsHandler := sessions.NewHandler(domain.Sessions, infra.Logger)

	r.RegisterGroup(routes.Group{
		Prefix:      "/api",
		Description: "Document page conversion API",
		Children: []routes.Group{
			pipelineHandler.Routes(),
			pagesHandler.Routes(),
			sessionsHandler.Routes(),
		},
	})

	r.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: "/healthz",
		Handler: handleHealthCheck,
	})

	r.RegisterRoute(routes.Route{
		Method:  "GET",
		Pattern: "/readyz",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			handleReadinessCheck(w, infra.Lifecycle)
		},
	})
}

// handleHealthCheck responds with OK status for health monitoring.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func handleReadinessCheck(w http.ResponseWriter, ready lifecycle.ReadinessChecker) {
	if !ready.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("NOT READY"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
