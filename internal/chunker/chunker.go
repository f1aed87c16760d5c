// Package chunker splits section text into overlapping windows.
//
// Lengths are measured in runes. Consecutive chunks of one section share
// exactly the configured overlap, and chunk text is never trimmed, so
// Reassemble restores the original text.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"campus-assistant/internal/models"
)

type Chunker struct {
	maxLen  int
	overlap int
}

// New returns a Chunker, rejecting overlap >= maxLen before any text is seen.
func New(maxLen, overlap int) (*Chunker, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidChunkConfig, maxLen)
	}
	if overlap < 0 || overlap >= maxLen {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", models.ErrInvalidChunkConfig, overlap, maxLen)
	}
	return &Chunker{maxLen: maxLen, overlap: overlap}, nil
}

// Chunk splits text into windows labelled with source.
func (c *Chunker) Chunk(text, source string) []models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	for {
		end := start + c.maxLen
		if end >= n {
			end = n
		} else {
			end = c.breakPoint(runes, start, end)
		}
		chunks = append(chunks, models.Chunk{
			Content:  string(runes[start:end]),
			Source:   source,
			Position: len(chunks),
			Offset:   start,
		})
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// breakPoint pulls end back to just after a sentence boundary, then
// whitespace, within the last tenth of the window. The result always stays
// above start+overlap so the next window moves forward.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	lookBack := max(c.maxLen/10, 1)
	lowest := max(end-lookBack, start+c.overlap+1) - 1

	for i := end - 1; i >= lowest; i-- {
		if isSentenceBreak(runes[i]) {
			return i + 1
		}
	}
	for i := end - 1; i >= lowest; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isSentenceBreak(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}

// Reassemble joins chunks of one section, dropping the leading overlap of
// every chunk after the first.
func Reassemble(chunks []models.Chunk, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch.Content)
			continue
		}
		r := []rune(ch.Content)
		if overlap < len(r) {
			b.WriteString(string(r[overlap:]))
		}
	}
	return b.String()
}
