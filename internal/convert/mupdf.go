package convert

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// MuPDF rasterizes pages in-process through go-fitz.
type MuPDF struct{}

func (MuPDF) Name() string { return "mupdf" }

func (MuPDF) Open(pdfPath string) (PageRenderer, error) {
	var doc *fitz.Document
	err := guard(ErrRenderFailed, func() error {
		d, err := fitz.New(pdfPath)
		if err != nil {
			return fmt.Errorf("%w: open pdf: %v", ErrRenderFailed, err)
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &mupdfRenderer{doc: doc}, nil
}

type mupdfRenderer struct {
	doc *fitz.Document
}

func (m *mupdfRenderer) PageCount() int {
	return m.doc.NumPage()
}

func (m *mupdfRenderer) Render(page, dpi int) ([]byte, error) {
	if page < 1 || page > m.doc.NumPage() {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}

	var data []byte
	err := guard(ErrRenderFailed, func() error {
		b, err := m.doc.ImagePNG(page-1, float64(dpi))
		if err != nil {
			return fmt.Errorf("%w: page %d: %v", ErrRenderFailed, page, err)
		}
		data = b
		return nil
	})
	return data, err
}

func (m *mupdfRenderer) Close() error {
	return m.doc.Close()
}
