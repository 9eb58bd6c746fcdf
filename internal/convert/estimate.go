package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
)

type appProperties struct {
	Pages int `xml:"Pages"`
}

// EstimatePages returns a best-effort page count for a source document before
// conversion. PDF sources are counted exactly. Office Open XML documents report
// the count the authoring application last saved in docProps/app.xml, falling
// back to explicit page breaks in the body. ok is false when no estimate exists.
func EstimatePages(path string) (n int, ok bool) {
	if IsPDF(path) {
		count, err := PageCount(path)
		return count, err == nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, false
	}
	defer zr.Close()

	if data, found := readZipEntry(&zr.Reader, "docProps/app.xml"); found {
		var props appProperties
		if xml.Unmarshal(data, &props) == nil && props.Pages > 0 {
			return props.Pages, true
		}
	}

	if data, found := readZipEntry(&zr.Reader, "word/document.xml"); found {
		breaks := bytes.Count(data, []byte(`w:type="page"`))
		rendered := bytes.Count(data, []byte("lastRenderedPageBreak"))
		return max(breaks, rendered) + 1, true
	}

	return 0, false
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, bool) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, 64<<20))
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}
