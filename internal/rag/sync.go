package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"campus-assistant/internal/chunker"
	"campus-assistant/internal/fetcher"
	"campus-assistant/internal/models"
)

// SectionFetcher downloads the source sections.
type SectionFetcher interface {
	FetchSections(ctx context.Context) (*fetcher.FetchResult, error)
}

// Builder replaces the stored chunks with a new set.
type Builder interface {
	Build(ctx context.Context, chunks []models.Chunk) (int, error)
}

// SectionFailure is a source that could not be loaded during a sync.
type SectionFailure struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

type SyncReport struct {
	Sections []string         `json:"sections"`
	Failed   []SectionFailure `json:"failed,omitempty"`
	Empty    []string         `json:"empty,omitempty"`
	Chunks   int              `json:"chunks"`
	Stored   int              `json:"stored"`
	DryRun   bool             `json:"dry_run"`
	Duration time.Duration    `json:"duration"`
}

// Syncer runs the ingestion pipeline: fetch, chunk, embed and store.
type Syncer struct {
	fetcher SectionFetcher
	chunker *chunker.Chunker
	index   Builder
}

func NewSyncer(f SectionFetcher, c *chunker.Chunker, index Builder) *Syncer {
	return &Syncer{fetcher: f, chunker: c, index: index}
}

// Sync rebuilds the index from the sources. With dryRun set the chunks are
// counted but nothing is embedded or stored. The previous index stays in
// place whenever Sync returns an error.
func (s *Syncer) Sync(ctx context.Context, dryRun bool) (*SyncReport, error) {
	start := time.Now()
	report := &SyncReport{DryRun: dryRun}
	defer func() { report.Duration = time.Since(start) }()

	res, err := s.fetcher.FetchSections(ctx)
	if res != nil {
		for _, f := range res.Failures {
			report.Failed = append(report.Failed, SectionFailure{Label: f.Label, Reason: f.Err.Error()})
		}
	}
	if err != nil {
		return report, err
	}

	var chunks []models.Chunk
	for _, section := range res.Sections {
		report.Sections = append(report.Sections, section.Label)
		if strings.TrimSpace(section.Text) == "" {
			report.Empty = append(report.Empty, section.Label)
			continue
		}
		chunks = append(chunks, s.chunker.Chunk(section.Text, section.Label)...)
	}
	report.Chunks = len(chunks)
	log.Info().
		Int("sections", len(report.Sections)).
		Int("failed", len(report.Failed)).
		Int("chunks", report.Chunks).
		Msg("Sources chunked")

	if len(chunks) == 0 {
		return report, fmt.Errorf("%w: sources contain no text", models.ErrIngestionEmpty)
	}
	if dryRun {
		return report, nil
	}

	stored, err := s.index.Build(ctx, chunks)
	if err != nil {
		return report, fmt.Errorf("failed to build index: %w", err)
	}
	report.Stored = stored
	log.Info().Int("stored", stored).Dur("took", time.Since(start)).Msg("Index rebuilt")
	return report, nil
}
