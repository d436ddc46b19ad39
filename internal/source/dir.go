package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pageFilePattern matches per-page text files like page_001.txt or 12.txt;
// the captured digits are the page number.
var pageFilePattern = regexp.MustCompile(`(\d+)\.(txt|md)$`)

// DirSource reads page text from a directory of numbered text files. It
// exists for pre-extracted corpora and for tests.
type DirSource struct {
	pages map[int]string // page number -> file path
	count int
}

var _ TextSource = (*DirSource)(nil)

// OpenDir scans a directory for numbered page files. Page numbers come
// from the trailing digits of each filename; numbering must start at 1
// with no gaps.
func OpenDir(path string) (*DirSource, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading source dir %s: %w", path, err)
	}

	pages := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		if existing, ok := pages[n]; ok {
			return nil, fmt.Errorf("duplicate page %d: %s and %s", n, filepath.Base(existing), entry.Name())
		}
		pages[n] = filepath.Join(path, entry.Name())
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no numbered page files in %s", path)
	}

	numbers := make([]int, 0, len(pages))
	for n := range pages {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			return nil, fmt.Errorf("page numbering gap in %s: expected page %d, found %d", path, i+1, n)
		}
	}

	return &DirSource{pages: pages, count: len(pages)}, nil
}

// PageCount returns the number of page files found.
func (s *DirSource) PageCount() int {
	return s.count
}

// PageText reads one page file.
func (s *DirSource) PageText(pageNumber int) (string, error) {
	path, ok := s.pages[pageNumber]
	if !ok {
		return "", errPageRange(pageNumber, s.count)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading page %d: %w", pageNumber, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Close is a no-op; files are opened per read.
func (s *DirSource) Close() error {
	return nil
}
