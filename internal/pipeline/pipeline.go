// Package pipeline drives uploaded documents from source file to servable pages.
//
// The eager strategy converts and splits every page before the upload
// responds. The lazy strategy stores the source, answers immediately with an
// estimated page count, and converts to an intermediate PDF in the background;
// pages are rendered on first request by the pages system.
package pipeline

import (
	"context"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/convert"
	"github.com/JaimeStill/docpages/internal/documents"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/JaimeStill/docpages/internal/sessions"
	"github.com/google/uuid"
)

// System defines conversion orchestration operations.
type System interface {
	// Upload stores a source document and starts its conversion according to
	// the configured strategy.
	Upload(ctx context.Context, cmd UploadCommand) (*UploadResult, error)

	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	List(ctx context.Context) ([]documents.Document, error)

	// Close cancels any in-flight conversion, releases the cached session and
	// destroys the document with all of its artifacts. Idempotent.
	Close(ctx context.Context, id uuid.UUID) error

	Start(lc *lifecycle.Coordinator) error
}

// Deps are the collaborating systems the orchestrator drives.
type Deps struct {
	Documents  documents.System
	Artifacts  *artifacts.Store
	Converter  convert.Converter
	Rasterizer convert.Rasterizer
	Sessions   *sessions.Cache
}

// UploadCommand carries an uploaded source document.
type UploadCommand struct {
	Filename string
	Data     []byte
}

// Highlight marks a page of interest in a lazily converted document.
type Highlight struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// UploadResult is the upload response. Eager uploads carry TestPages; lazy
// uploads carry Highlights over the estimated page range.
type UploadResult struct {
	ID         uuid.UUID   `json:"doc_id"`
	TotalPages int         `json:"total_pages"`
	TestPages  []int       `json:"test_pages,omitempty"`
	Highlights []Highlight `json:"highlights,omitempty"`
}

// CloseResult is the close response.
type CloseResult struct {
	Status string    `json:"status"`
	ID     uuid.UUID `json:"doc_id"`
}
