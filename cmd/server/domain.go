package main

import (
	"fmt"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/convert"
	"github.com/JaimeStill/docpages/internal/documents"
	"github.com/JaimeStill/docpages/internal/infrastructure"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/JaimeStill/docpages/internal/pages"
	"github.com/JaimeStill/docpages/internal/pipeline"
	"github.com/JaimeStill/docpages/internal/sessions"
)

// Domain holds the document conversion systems.
type Domain struct {
	Documents documents.System
	Artifacts *artifacts.Store
	Sessions  *sessions.Cache
	Pipeline  pipeline.System
	Pages     pages.System
}

func NewDomain(infra *infrastructure.Infrastructure, cfg *config.Config) (*Domain, error) {
	converter, err := convert.NewConverter(&cfg.Conversion, infra.Logger)
	if err != nil {
		return nil, fmt.Errorf("converter init failed: %w", err)
	}

	rasterizer, err := convert.NewRasterizer(cfg.Conversion.Rasterizer)
	if err != nil {
		return nil, fmt.Errorf("rasterizer init failed: %w", err)
	}

	if err := converter.Available(); err != nil {
		// Uploads report the outage per request until the engine appears.
		infra.Logger.Warn("conversion engine unavailable", "engine", converter.Name(), "error", err)
	}

	docs := documents.New(infra.Logger)
	store := artifacts.New(infra.Storage, infra.Logger)
	cache := sessions.New(convert.NewOpener(rasterizer), &cfg.Sessions, infra.Logger)

	return &Domain{
		Documents: docs,
		Artifacts: store,
		Sessions:  cache,
		Pipeline: pipeline.New(cfg, pipeline.Deps{
			Documents:  docs,
			Artifacts:  store,
			Converter:  converter,
			Rasterizer: rasterizer,
			Sessions:   cache,
		}, infra.Logger),
		Pages: pages.New(&cfg.Pages, pages.Deps{
			Documents: docs,
			Artifacts: store,
			Sessions:  cache,
		}, infra.Logger),
	}, nil
}

// Start registers the long-running domain systems with the coordinator.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	if err := d.Sessions.Start(lc); err != nil {
		return fmt.Errorf("sessions start failed: %w", err)
	}
	if err := d.Pipeline.Start(lc); err != nil {
		return fmt.Errorf("pipeline start failed: %w", err)
	}
	return nil
}
