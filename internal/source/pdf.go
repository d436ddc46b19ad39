package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFSource extracts page text from a PDF file.
type PDFSource struct {
	file   *os.File
	reader *pdf.Reader
	count  int
}

var _ TextSource = (*PDFSource)(nil)

// OpenPDF opens a PDF file for per-page text extraction.
func OpenPDF(path string) (*PDFSource, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &PDFSource{file: f, reader: r, count: r.NumPage()}, nil
}

// PageCount returns the number of pages in the PDF.
func (s *PDFSource) PageCount() int {
	return s.count
}

// PageText extracts the plain text of one page. Whitespace is collapsed
// but line structure is preserved where the PDF encodes it.
func (s *PDFSource) PageText(pageNumber int) (string, error) {
	if pageNumber < 1 || pageNumber > s.count {
		return "", errPageRange(pageNumber, s.count)
	}
	page := s.reader.Page(pageNumber)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d has no content", pageNumber)
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d text: %w", pageNumber, err)
	}
	return strings.TrimSpace(text), nil
}

// Close closes the underlying file.
func (s *PDFSource) Close() error {
	return s.file.Close()
}
