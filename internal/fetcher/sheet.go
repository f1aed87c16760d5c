package fetcher

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"

	"campus-assistant/internal/models"
)

// SectionURL derives the CSV export URL of a named tab from the index URL.
func SectionURL(indexURL, name string) string {
	base := indexURL
	if i := strings.Index(indexURL, "/export"); i >= 0 {
		base = indexURL[:i]
	} else if i := strings.IndexByte(indexURL, '?'); i >= 0 {
		base = indexURL[:i]
	}
	base = strings.TrimSuffix(base, "/")
	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return fmt.Sprintf(models.DefaultSectionURLTemplate, base, escaped)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// column returns the non-blank values under header name, or nil when the
// header is missing.
func column(rows [][]string, name string) []string {
	if len(rows) == 0 {
		return nil
	}
	idx := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	values := []string{}
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func documentLinks(rows [][]string, name string) []string {
	var links []string
	for _, v := range column(rows, name) {
		if strings.Contains(v, "http") {
			links = append(links, v)
		}
	}
	return links
}

// renderTable aligns the rows in columns, header first.
func renderTable(rows [][]string) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.Join(strings.Fields(c), " ")
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}
