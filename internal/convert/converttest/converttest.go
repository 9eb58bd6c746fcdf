// Package converttest provides in-process stand-ins for the external
// conversion engines along with generated PDF fixtures.
package converttest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/JaimeStill/docpages/internal/convert"
)

// PDF builds a minimal valid PDF with the given number of blank letter-size pages.
func PDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := []int{}

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i*2)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))

	for i := range pages {
		content := fmt.Sprintf("0 0 m %d %d l S", 10+i, 10+i)
		obj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents %d 0 R >>",
			4+i*2,
		))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// WritePDF writes a generated PDF to path.
func WritePDF(path string, pages int) error {
	return os.WriteFile(path, PDF(pages), 0644)
}

// PNG returns a small encoded PNG whose shade varies with page.
func PNG(page int) []byte {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(page * 16)
	}
	img.SetGray(0, 0, color.Gray{Y: 255})

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// Converter writes a generated PDF instead of invoking an office engine.
type Converter struct {
	// Pages is the page count of the produced PDF.
	Pages int

	// Err, when set, fails every conversion.
	Err error

	// Unavailable is returned from Available.
	Unavailable error

	// Panic makes ConvertToPDF panic to exercise recovery.
	Panic bool

	// Gate, when non-nil, blocks each conversion until it is closed or the
	// context ends.
	Gate chan struct{}

	calls atomic.Int32
}

func (c *Converter) Name() string { return "fake" }

func (c *Converter) Available() error { return c.Unavailable }

// Calls reports how many conversions have started.
func (c *Converter) Calls() int { return int(c.calls.Load()) }

func (c *Converter) ConvertToPDF(ctx context.Context, sourcePath, outDir string) (string, error) {
	c.calls.Add(1)

	if c.Gate != nil {
		select {
		case <-c.Gate:
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", convert.ErrConversionFailed, ctx.Err())
		}
	}

	if c.Panic {
		panic("fake engine crashed")
	}
	if c.Err != nil {
		return "", c.Err
	}

	base := filepath.Base(sourcePath)
	target := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if err := WritePDF(target, c.Pages); err != nil {
		return "", fmt.Errorf("%w: %v", convert.ErrConversionFailed, err)
	}
	return target, nil
}

// Rasterizer renders generated PNGs for pages of real PDFs.
type Rasterizer struct {
	// Err, when set, fails every render.
	Err error

	opens   atomic.Int32
	renders atomic.Int32
}

func (r *Rasterizer) Name() string { return "fake" }

// Opens reports how many renderers have been opened.
func (r *Rasterizer) Opens() int { return int(r.opens.Load()) }

// Renders reports how many pages have been rendered.
func (r *Rasterizer) Renders() int { return int(r.renders.Load()) }

func (r *Rasterizer) Open(pdfPath string) (convert.PageRenderer, error) {
	count, err := convert.PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	r.opens.Add(1)
	return &renderer{parent: r, pages: count}, nil
}

type renderer struct {
	parent *Rasterizer
	pages  int
	closed bool
}

func (p *renderer) PageCount() int { return p.pages }

func (p *renderer) Render(page, dpi int) ([]byte, error) {
	if p.closed {
		return nil, fmt.Errorf("%w: renderer closed", convert.ErrRenderFailed)
	}
	if page < 1 || page > p.pages {
		return nil, fmt.Errorf("%w: %d", convert.ErrPageOutOfRange, page)
	}
	if p.parent.Err != nil {
		return nil, p.parent.Err
	}
	p.parent.renders.Add(1)
	return PNG(page), nil
}

func (p *renderer) Close() error {
	p.closed = true
	return nil
}

// Opener produces scripted sessions for cache tests.
type Opener struct {
	// Pages is the page count reported by opened sessions.
	Pages int

	// OpenErr, when set, fails Open.
	OpenErr error

	// Fail, when set, is consulted before each page operation.
	Fail func(page int) error

	mu       sync.Mutex
	opens    int
	closes   int
	sessions []*Session
}

func (o *Opener) Open(ctx context.Context, pdfPath string) (convert.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.opens++
	s := &Session{parent: o, id: o.opens}
	o.sessions = append(o.sessions, s)
	return s, nil
}

// Opens reports how many sessions have been opened.
func (o *Opener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// Sessions returns every session opened so far, in open order.
func (o *Opener) Sessions() []*Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Session(nil), o.sessions...)
}

// Closes reports how many sessions have been closed.
func (o *Opener) Closes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closes
}

// Session is a scripted convert.Session.
type Session struct {
	parent *Opener
	id     int
	active atomic.Int32
	closed atomic.Bool

	// Overlap is set if two operations ever ran concurrently.
	Overlap atomic.Bool
}

// ID is the 1-based open sequence number of the session.
func (s *Session) ID() int { return s.id }

func (s *Session) PageCount() int { return s.parent.Pages }

func (s *Session) ExportPage(ctx context.Context, page int) ([]byte, error) {
	if err := s.enter(page); err != nil {
		return nil, err
	}
	defer s.active.Add(-1)
	return []byte(fmt.Sprintf("session-%d-page-%d.pdf", s.id, page)), nil
}

func (s *Session) RasterizePage(ctx context.Context, page, dpi int) ([]byte, error) {
	if err := s.enter(page); err != nil {
		return nil, err
	}
	defer s.active.Add(-1)
	return PNG(page), nil
}

func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.parent.mu.Lock()
	s.parent.closes++
	s.parent.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

func (s *Session) enter(page int) error {
	if s.closed.Load() {
		return convert.ErrSessionClosed
	}
	if page < 1 || page > s.parent.Pages {
		return fmt.Errorf("%w: %d", convert.ErrPageOutOfRange, page)
	}
	if s.active.Add(1) > 1 {
		s.Overlap.Store(true)
	}
	if s.parent.Fail != nil {
		if err := s.parent.Fail(page); err != nil {
			s.active.Add(-1)
			return err
		}
	}
	return nil
}
