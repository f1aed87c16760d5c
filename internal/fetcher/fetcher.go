// Package fetcher downloads the raw source sections: spreadsheet tabs listed
// in an index sheet, documents linked from those tabs, scraped web pages and
// local documents.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"campus-assistant/internal/config"
	"campus-assistant/internal/models"
	"campus-assistant/internal/parser"
)

const maxBodySize = 32 << 20

type Fetcher struct {
	client    *http.Client
	sheet     config.SheetConfig
	pages     []config.PageConfig
	documents []string
}

// FetchResult holds the sections that were produced and the ones skipped.
type FetchResult struct {
	Sections []models.Section
	Failures []*models.SectionError
}

// New creates a Fetcher. A nil client gets the configured timeout.
func New(cfg *config.Config, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return &Fetcher{
		client:    client,
		sheet:     cfg.Sheet,
		pages:     cfg.Pages,
		documents: cfg.Documents,
	}
}

// FetchSections downloads every configured source. Failing sections are
// recorded and skipped; only a run that yields no section at all is an error.
func (f *Fetcher) FetchSections(ctx context.Context) (*FetchResult, error) {
	res := &FetchResult{}

	if f.sheet.IndexURL != "" {
		f.fetchSheet(ctx, res)
	}
	for _, page := range f.pages {
		section, err := f.fetchPage(ctx, page)
		if err != nil {
			res.fail(page.Label, err)
			continue
		}
		res.Sections = append(res.Sections, section)
	}
	for _, path := range f.documents {
		text, err := parser.ParseFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not parse local document, using empty text")
			text = ""
		}
		res.Sections = append(res.Sections, models.Section{
			Label: fmt.Sprintf(models.DocumentLabel, path),
			Kind:  models.SectionDocument,
			Text:  text,
		})
	}

	if len(res.Sections) == 0 {
		return res, fmt.Errorf("%w: all %d sources failed", models.ErrIngestionEmpty, len(res.Failures))
	}
	return res, nil
}

// FetchRaw concatenates every tab of the sheet under a DATA header, the
// context used when answering from raw tabular data.
func (f *Fetcher) FetchRaw(ctx context.Context) (string, error) {
	if f.sheet.IndexURL == "" {
		return "", fmt.Errorf("%w: no sheet index configured", models.ErrIngestionEmpty)
	}
	names, err := f.sectionNames(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrIngestionEmpty, err)
	}

	var blocks []string
	for _, name := range names {
		rows, err := f.fetchTable(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("section", name).Msg("Skipping tab")
			continue
		}
		blocks = append(blocks, fmt.Sprintf(models.RawSectionHeader, strings.ToUpper(name))+renderTable(rows))
	}
	if len(blocks) == 0 {
		return "", fmt.Errorf("%w: no tab could be loaded", models.ErrIngestionEmpty)
	}
	return strings.Join(blocks, models.ContextSeparator), nil
}

func (f *Fetcher) fetchSheet(ctx context.Context, res *FetchResult) {
	names, err := f.sectionNames(ctx)
	if err != nil {
		res.fail("index", err)
		return
	}
	log.Debug().Strs("sections", names).Msg("Loaded sheet index")

	for _, name := range names {
		rows, err := f.fetchTable(ctx, name)
		if err != nil {
			res.fail(name, err)
			continue
		}
		res.Sections = append(res.Sections, models.Section{
			Label: name,
			Kind:  models.SectionTable,
			Text:  fmt.Sprintf(models.TablePrefix, name) + renderTable(rows),
			Rows:  rows,
		})

		for _, link := range documentLinks(rows, f.sheet.DocumentColumn) {
			section, err := f.fetchDocument(ctx, link)
			if err != nil {
				res.fail(fmt.Sprintf(models.DocumentLabel, link), err)
				continue
			}
			res.Sections = append(res.Sections, section)
		}
	}
}

func (f *Fetcher) sectionNames(ctx context.Context) ([]string, error) {
	data, err := f.get(ctx, f.sheet.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	rows, err := readCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	names := column(rows, f.sheet.IndexColumn)
	if names == nil {
		return nil, fmt.Errorf("index has no %q column", f.sheet.IndexColumn)
	}
	return names, nil
}

func (f *Fetcher) fetchTable(ctx context.Context, name string) ([][]string, error) {
	data, err := f.get(ctx, SectionURL(f.sheet.IndexURL, name))
	if err != nil {
		return nil, err
	}
	rows, err := readCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tab: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("tab is empty")
	}
	return rows, nil
}

// fetchDocument downloads a linked document. Text extraction is best effort:
// an unreadable file still yields a section, with empty text.
func (f *Fetcher) fetchDocument(ctx context.Context, link string) (models.Section, error) {
	data, err := f.get(ctx, link)
	if err != nil {
		return models.Section{}, err
	}
	text, err := parser.ExtractText(link, data)
	if err != nil {
		log.Warn().Err(err).Str("url", link).Msg("Could not extract document text")
		text = ""
	}
	return models.Section{
		Label: fmt.Sprintf(models.DocumentLabel, link),
		Kind:  models.SectionDocument,
		Text:  text,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func (r *FetchResult) fail(label string, err error) {
	log.Warn().Err(err).Str("section", label).Msg("Skipping unavailable section")
	r.Failures = append(r.Failures, &models.SectionError{
		Label: label,
		Err:   fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err),
	})
}
