package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrSessionClosed is returned by a Session after Close.
var ErrSessionClosed = errors.New("conversion session closed")

// Session is a live handle on one converted PDF. It holds the PDF bytes for
// single-page export and opens a page renderer on first rasterization.
// Sessions are not safe for concurrent use.
type Session interface {
	PageCount() int
	ExportPage(ctx context.Context, page int) ([]byte, error)
	RasterizePage(ctx context.Context, page, dpi int) ([]byte, error)
	Close() error
}

// Opener creates sessions for converted PDFs.
type Opener interface {
	Open(ctx context.Context, pdfPath string) (Session, error)
}

// PDFOpener opens sessions backed by the PDF toolkit and a Rasterizer.
type PDFOpener struct {
	rasterizer Rasterizer
}

// NewOpener creates an opener whose sessions rasterize through r.
func NewOpener(r Rasterizer) *PDFOpener {
	return &PDFOpener{rasterizer: r}
}

func (o *PDFOpener) Open(ctx context.Context, pdfPath string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", ErrRenderFailed, err)
	}

	count, err := PageCountBytes(data)
	if err != nil {
		return nil, err
	}

	return &pdfSession{
		path:       pdfPath,
		data:       data,
		pages:      count,
		rasterizer: o.rasterizer,
	}, nil
}

type pdfSession struct {
	path       string
	data       []byte
	pages      int
	rasterizer Rasterizer
	renderer   PageRenderer
	closed     bool
}

func (s *pdfSession) PageCount() int {
	return s.pages
}

func (s *pdfSession) ExportPage(ctx context.Context, page int) ([]byte, error) {
	if err := s.check(ctx, page); err != nil {
		return nil, err
	}
	return ExportPage(s.data, page)
}

func (s *pdfSession) RasterizePage(ctx context.Context, page, dpi int) ([]byte, error) {
	if err := s.check(ctx, page); err != nil {
		return nil, err
	}

	if s.renderer == nil {
		r, err := s.rasterizer.Open(s.path)
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}

	return s.renderer.Render(page, dpi)
}

func (s *pdfSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.data = nil

	if s.renderer != nil {
		return s.renderer.Close()
	}
	return nil
}

func (s *pdfSession) check(ctx context.Context, page int) error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if page < 1 || page > s.pages {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, s.pages)
	}
	return nil
}
