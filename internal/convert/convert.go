// Package convert wraps the external engines that turn an uploaded document into
// page artifacts: a document-to-PDF engine (LibreOffice or unoserver), a PDF
// rasterizer (MuPDF or ImageMagick) and a PDF toolkit for page counting,
// splitting and single-page export.
//
// Engine failures never escape as panics. They are returned as ErrUnavailable,
// ErrConversionFailed or ErrRenderFailed with truncated engine output as detail.
package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/docpages/internal/config"
)

// Converter turns a source document into a PDF.
type Converter interface {
	// Name identifies the engine in logs.
	Name() string

	// Available reports ErrUnavailable when the engine cannot be invoked.
	Available() error

	// ConvertToPDF converts sourcePath into outDir and returns the PDF path.
	// Sources that are already PDF are copied through unchanged.
	ConvertToPDF(ctx context.Context, sourcePath, outDir string) (string, error)
}

// Rasterizer opens PDFs for page rendering.
type Rasterizer interface {
	Name() string
	Open(pdfPath string) (PageRenderer, error)
}

// PageRenderer renders pages of one open PDF. Implementations are not safe for
// concurrent use; callers serialize access or open one renderer per goroutine.
type PageRenderer interface {
	PageCount() int

	// Render rasterizes the 1-based page to PNG bytes.
	Render(page, dpi int) ([]byte, error)

	Close() error
}

// NewConverter builds the document-to-PDF engine selected by cfg.Engine.
func NewConverter(cfg *config.ConversionConfig, logger *slog.Logger) (Converter, error) {
	logger = logger.With("system", "convert")
	runner := newRunner(cfg.TimeoutDuration(), logger)

	switch cfg.Engine {
	case "soffice":
		return newSoffice(cfg.SofficePath, runner), nil
	case "unoconvert":
		return newUnoconvert(cfg.UnoconvertPath, cfg.UnoserverHost, cfg.UnoserverPort, runner), nil
	default:
		return nil, fmt.Errorf("unknown conversion engine %q", cfg.Engine)
	}
}

// NewRasterizer builds the PDF rasterizer selected by name.
func NewRasterizer(name string) (Rasterizer, error) {
	switch name {
	case "mupdf":
		return MuPDF{}, nil
	case "imagemagick":
		return ImageMagick{}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", name)
	}
}
