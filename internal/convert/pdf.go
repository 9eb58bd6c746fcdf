package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount returns the exact page count of the PDF at path.
func PageCount(pdfPath string) (int, error) {
	var count int
	err := guard(ErrConversionFailed, func() error {
		n, err := api.PageCountFile(pdfPath)
		if err != nil {
			return fmt.Errorf("%w: read page count: %v", ErrConversionFailed, err)
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count < 1 {
		return 0, fmt.Errorf("%w: document has no pages", ErrConversionFailed)
	}
	return count, nil
}

// PageCountBytes returns the exact page count of an in-memory PDF.
func PageCountBytes(pdf []byte) (int, error) {
	var count int
	err := guard(ErrRenderFailed, func() error {
		n, err := api.PageCount(bytes.NewReader(pdf), model.NewDefaultConfiguration())
		if err != nil {
			return fmt.Errorf("%w: read page count: %v", ErrRenderFailed, err)
		}
		count = n
		return nil
	})
	return count, err
}

// SplitPages writes one single-page PDF per page of pdfPath into outDir and
// returns their paths in page order.
func SplitPages(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count, err := PageCount(pdfPath)
	if err != nil {
		return nil, err
	}

	err = guard(ErrConversionFailed, func() error {
		if err := api.SplitFile(pdfPath, outDir, 1, model.NewDefaultConfiguration()); err != nil {
			return fmt.Errorf("%w: split pages: %v", ErrConversionFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	base := stem(pdfPath)
	paths := make([]string, 0, count)
	for n := 1; n <= count; n++ {
		p := filepath.Join(outDir, fmt.Sprintf("%s_%d.pdf", base, n))
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: split produced no file for page %d", ErrConversionFailed, n)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ExportPage extracts the 1-based page of pdf as a standalone single-page PDF.
func ExportPage(pdf []byte, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}

	var out bytes.Buffer
	err := guard(ErrRenderFailed, func() error {
		conf := model.NewDefaultConfiguration()
		if err := api.Trim(bytes.NewReader(pdf), &out, []string{strconv.Itoa(page)}, conf); err != nil {
			return fmt.Errorf("%w: export page %d: %v", ErrRenderFailed, page, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
