// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (lifecycle, logging, storage) that domain
// systems require.
package infrastructure

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/JaimeStill/docpages/pkg/logging"
	"github.com/JaimeStill/docpages/pkg/storage"
)

// Infrastructure holds the core systems required by all domain systems.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
}

// New creates an Infrastructure from a finalized configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, logging.New(&cfg.Logging))
}

// NewWithLogger is New with a caller-provided logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Storage:   store,
	}, nil
}

// Start registers the infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
