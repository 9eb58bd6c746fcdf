package pages

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/documents"
	"github.com/JaimeStill/docpages/pkg/handlers"
	"github.com/JaimeStill/docpages/pkg/routes"
	"github.com/google/uuid"
)

// Response is the JSON page payload. PageContent is null while converting.
type Response struct {
	Status      documents.Status `json:"status"`
	PageContent *string          `json:"page_content"`
}

// Handler serves page content over HTTP.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a pages HTTP handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "pages"),
	}
}

// Routes returns the pages route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/pages",
		Tags:        []string{"Pages"},
		Description: "Per-page document content",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{doc_id}/{page_number}", Handler: h.GetPage},
		},
	}
}

// GetPage handles GET /{doc_id}/{page_number}. PNG pages are returned as a
// base64 data URI inside JSON; PDF pages as raw application/pdf bytes.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("doc_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	number, err := strconv.Atoi(r.PathValue("page_number"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %q", ErrInvalidPage, r.PathValue("page_number")))
		return
	}

	page, err := h.sys.GetPage(r.Context(), id, number)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if page.Status != documents.StatusReady {
		handlers.RespondJSON(w, http.StatusOK, Response{Status: page.Status})
		return
	}

	if page.Kind == artifacts.KindPDF {
		w.Header().Set("Content-Type", page.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"page_%d.pdf\"", number))
		w.Header().Set("Content-Length", strconv.Itoa(len(page.Content)))
		w.WriteHeader(http.StatusOK)
		w.Write(page.Content)
		return
	}

	content := "data:" + page.ContentType + ";base64," + base64.StdEncoding.EncodeToString(page.Content)
	handlers.RespondJSON(w, http.StatusOK, Response{
		Status:      page.Status,
		PageContent: &content,
	})
}
