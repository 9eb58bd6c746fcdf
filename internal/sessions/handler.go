package sessions

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/docpages/pkg/handlers"
	"github.com/JaimeStill/docpages/pkg/routes"
	"github.com/google/uuid"
)

// Handler exposes explicit session release.
type Handler struct {
	cache  *Cache
	logger *slog.Logger
}

// NewHandler creates a sessions HTTP handler.
func NewHandler(cache *Cache, logger *slog.Logger) *Handler {
	return &Handler{
		cache:  cache,
		logger: logger.With("handler", "sessions"),
	}
}

// Routes returns the session endpoint route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/sessions",
		Tags:        []string{"Sessions"},
		Description: "Cached conversion session management",
		Routes: []routes.Route{
			{Method: "DELETE", Pattern: "/{doc_id}", Handler: h.Release},
		},
	}
}

// Release handles DELETE /{doc_id}. The document and its stored pages are kept;
// the next page request opens a fresh session.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("doc_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	h.cache.Release(id)
	w.WriteHeader(http.StatusNoContent)
}
