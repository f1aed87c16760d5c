package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractTextPlain(t *testing.T) {
	got, err := ExtractText("https://example.com/files/notes.txt?dl=1", []byte("hello world"))
	if err != nil {
		t.Fatalf("ExtractText error: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("archive.rar", []byte("x"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractTextCorruptPDF(t *testing.T) {
	if _, err := ExtractText("brochure.pdf", []byte("%PDF-1.4 not really a pdf")); err == nil {
		t.Fatalf("expected an error for a corrupt pdf")
	}
}

func TestFormatOfSniffsPDF(t *testing.T) {
	if got := formatOf("https://drive.example.com/uc?id=abc", []byte("%PDF-1.7\n...")); got != ".pdf" {
		t.Fatalf("expected .pdf, got %q", got)
	}
}

func TestExtractTextPPTX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	slide := `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Campus tour</a:t></a:r></a:p><a:p><a:r><a:t>Every Monday</a:t></a:r></a:p></p:sld>`
	if _, err := w.Write([]byte(slide)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	got, err := ExtractText("deck.pptx", buf.Bytes())
	if err != nil {
		t.Fatalf("ExtractText error: %v", err)
	}
	if !strings.Contains(got, "Campus tour\n") || !strings.Contains(got, "Every Monday") {
		t.Fatalf("unexpected slide text: %q", got)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.md")
	if err := os.WriteFile(path, []byte("# Info\nOpen daily."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if !strings.Contains(got, "Open daily.") {
		t.Fatalf("unexpected text: %q", got)
	}
}
