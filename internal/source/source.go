// Package source provides page text extraction from document sources.
// A TextSource yields raw page text; all interpretation happens
// downstream in the pipeline.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source type values recorded on documents.
const (
	TypePDF = "pdf"
	TypeDir = "dir"
)

// TextSource yields page text from a document source. Pages are numbered
// from 1.
type TextSource interface {
	// PageCount returns the number of pages in the source.
	PageCount() int

	// PageText returns the raw text of one page.
	PageText(pageNumber int) (string, error)

	// Close releases any underlying resources.
	Close() error
}

// Open opens a source by path, dispatching on its shape: a .pdf file or a
// directory of per-page text files.
func Open(path string) (TextSource, string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		src, err := OpenPDF(path)
		if err != nil {
			return nil, "", err
		}
		return src, TypePDF, nil
	}
	src, err := OpenDir(path)
	if err != nil {
		return nil, "", err
	}
	return src, TypeDir, nil
}

// errPageRange builds the out-of-range error shared by implementations.
func errPageRange(pageNumber, count int) error {
	return fmt.Errorf("page %d out of range 1-%d", pageNumber, count)
}
