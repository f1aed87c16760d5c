package chunker

import (
	"errors"
	"strings"
	"testing"

	"campus-assistant/internal/models"
)

var sampleTexts = []string{
	"a",
	"short text",
	"Tuition fee: 2,000,000 IDR. Registration opens in June. Classes start in September!",
	strings.Repeat("word ", 400),
	strings.Repeat("x", 2500),
	strings.Repeat("Politeknik Negeri Sambas menerima mahasiswa baru. ", 60),
	"Ünïcödé çhäråctèrs – ümlauts and em dashes — across boundaries. " + strings.Repeat("é", 300),
	"line one\nline two\nline three\n" + strings.Repeat("column\tvalue\n", 120),
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct{ maxLen, overlap int }{
		{0, 0},
		{-1, 0},
		{10, 10},
		{10, 11},
		{10, -1},
	}
	for _, tc := range cases {
		if _, err := New(tc.maxLen, tc.overlap); !errors.Is(err, models.ErrInvalidChunkConfig) {
			t.Fatalf("New(%d, %d): expected ErrInvalidChunkConfig, got %v", tc.maxLen, tc.overlap, err)
		}
	}
}

func TestChunkEmptyInput(t *testing.T) {
	c, err := New(100, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Chunk("", "src"); len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
}

func TestChunkReassemblesExactly(t *testing.T) {
	params := []struct{ maxLen, overlap int }{
		{1000, 150},
		{100, 20},
		{50, 0},
		{7, 6},
		{2, 1},
	}
	for _, p := range params {
		c, err := New(p.maxLen, p.overlap)
		if err != nil {
			t.Fatalf("New(%d, %d): %v", p.maxLen, p.overlap, err)
		}
		for _, text := range sampleTexts {
			chunks := c.Chunk(text, "Fees")
			if got := Reassemble(chunks, p.overlap); got != text {
				t.Fatalf("reassembly mismatch for (%d,%d): got %d runes, want %d", p.maxLen, p.overlap, len([]rune(got)), len([]rune(text)))
			}
		}
	}
}

func TestChunkBoundsAndOverlap(t *testing.T) {
	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, text := range sampleTexts {
		chunks := c.Chunk(text, "Fees")
		for i, ch := range chunks {
			r := []rune(ch.Content)
			if len(r) > 100 {
				t.Fatalf("chunk %d longer than max: %d", i, len(r))
			}
			if ch.Position != i {
				t.Fatalf("chunk %d has position %d", i, ch.Position)
			}
			if ch.Source != "Fees" {
				t.Fatalf("chunk %d lost its source label: %q", i, ch.Source)
			}
			if i == 0 {
				continue
			}
			prev := []rune(chunks[i-1].Content)
			if string(prev[len(prev)-20:]) != string(r[:20]) {
				t.Fatalf("chunks %d and %d do not share the overlap", i-1, i)
			}
			if ch.Offset != chunks[i-1].Offset+len(prev)-20 {
				t.Fatalf("chunk %d offset %d inconsistent", i, ch.Offset)
			}
		}
	}
}

func TestChunkPrefersSentenceBoundary(t *testing.T) {
	c, err := New(40, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text := "Registration opens soon for everyone. Fees are listed in the table below."
	chunks := c.Chunk(text, "Admissions")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, "everyone.") {
		t.Fatalf("expected first chunk to end at the sentence, got %q", chunks[0].Content)
	}
}

func TestChunkIsDeterministic(t *testing.T) {
	c, err := New(120, 30)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, text := range sampleTexts {
		a := c.Chunk(text, "s")
		b := c.Chunk(text, "s")
		if len(a) != len(b) {
			t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("chunk %d differs between runs", i)
			}
		}
	}
}
