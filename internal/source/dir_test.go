package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePages(t *testing.T, dir string, names map[string]string) {
	t.Helper()
	for name, content := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	writePages(t, dir, map[string]string{
		"page_001.txt": "first page",
		"page_002.txt": "  second page  \n",
		"page_003.txt": "third page",
		"notes.json":   "ignored",
	})

	src, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer src.Close()

	if src.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", src.PageCount())
	}

	text, err := src.PageText(2)
	if err != nil {
		t.Fatalf("PageText(2): %v", err)
	}
	if text != "second page" {
		t.Errorf("expected trimmed text, got %q", text)
	}

	if _, err := src.PageText(4); err == nil {
		t.Error("expected error for out-of-range page")
	}
}

func TestOpenDirNumberingGap(t *testing.T) {
	dir := t.TempDir()
	writePages(t, dir, map[string]string{
		"page_001.txt": "one",
		"page_003.txt": "three",
	})

	if _, err := OpenDir(dir); err == nil || !strings.Contains(err.Error(), "gap") {
		t.Errorf("expected numbering gap error, got %v", err)
	}
}

func TestOpenDirEmpty(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenDir(dir); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestOpenDispatch(t *testing.T) {
	dir := t.TempDir()
	writePages(t, dir, map[string]string{"1.txt": "only page"})

	src, sourceType, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()
	if sourceType != TypeDir {
		t.Errorf("expected source type %q, got %q", TypeDir, sourceType)
	}
}
