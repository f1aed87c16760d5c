package models

import "time"

// SectionKind tells where a section's text came from.
type SectionKind string

const (
	SectionTable    SectionKind = "table"
	SectionDocument SectionKind = "document"
	SectionPage     SectionKind = "page"
)

// Section is one named block of fetched source data
type Section struct {
	Label string
	Kind  SectionKind
	Text  string
	Rows  [][]string
}

// Chunk represents a window of section text with its source label
type Chunk struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Position int    `json:"position"`
	Offset   int    `json:"offset"`
}

// Entry is a chunk with its embedding as persisted in a vector store.
// Seq is the insertion order within one build and breaks score ties.
type Entry struct {
	ID        string
	Seq       int
	Chunk     Chunk
	Embedding []float32
}

// SearchResult is a retrieved chunk with its similarity score.
// Seq is the entry's insertion order and breaks score ties.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Seq   int     `json:"-"`
	Score float64 `json:"score"`
}

type PromptResponse struct {
	Query    string        `json:"query"`
	Content  string        `json:"content"`
	Sources  []string      `json:"sources,omitempty"`
	State    State         `json:"state"`
	Strategy Strategy      `json:"strategy"`
	Trace    []State       `json:"trace"`
	Duration time.Duration `json:"duration"`
}
