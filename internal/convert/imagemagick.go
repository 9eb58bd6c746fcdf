package convert

import (
	"fmt"

	dcconfig "github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
)

// ImageMagick rasterizes pages through the document-context ImageMagick renderer.
type ImageMagick struct{}

func (ImageMagick) Name() string { return "imagemagick" }

type pageExtractor interface {
	ExtractPage(pageNum int) (document.Page, error)
	Close() error
}

func (ImageMagick) Open(pdfPath string) (PageRenderer, error) {
	count, err := PageCount(pdfPath)
	if err != nil {
		return nil, err
	}

	var doc pageExtractor
	err = guard(ErrRenderFailed, func() error {
		d, err := document.OpenPDF(pdfPath)
		if err != nil {
			return fmt.Errorf("%w: open pdf: %v", ErrRenderFailed, err)
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &magickRenderer{
		doc:       doc,
		pages:     count,
		renderers: make(map[int]image.Renderer),
	}, nil
}

type magickRenderer struct {
	doc       pageExtractor
	pages     int
	renderers map[int]image.Renderer
}

func (m *magickRenderer) PageCount() int {
	return m.pages
}

func (m *magickRenderer) Render(page, dpi int) ([]byte, error) {
	if page < 1 || page > m.pages {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}

	renderer, err := m.renderer(dpi)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = guard(ErrRenderFailed, func() error {
		p, err := m.doc.ExtractPage(page)
		if err != nil {
			return fmt.Errorf("%w: extract page %d: %v", ErrRenderFailed, page, err)
		}
		b, err := p.ToImage(renderer, nil)
		if err != nil {
			return fmt.Errorf("%w: page %d: %v", ErrRenderFailed, page, err)
		}
		data = b
		return nil
	})
	return data, err
}

func (m *magickRenderer) renderer(dpi int) (image.Renderer, error) {
	if r, ok := m.renderers[dpi]; ok {
		return r, nil
	}

	r, err := image.NewImageMagickRenderer(dcconfig.ImageConfig{
		Format:  "png",
		DPI:     dpi,
		Options: make(map[string]any),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	m.renderers[dpi] = r
	return r, nil
}

func (m *magickRenderer) Close() error {
	return m.doc.Close()
}
