package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"campus-assistant/internal/config"
	"campus-assistant/internal/models"
)

// fetchPage scrapes the elements carrying page.Class into a numbered list.
func (f *Fetcher) fetchPage(ctx context.Context, page config.PageConfig) (models.Section, error) {
	data, err := f.get(ctx, page.URL)
	if err != nil {
		return models.Section{}, err
	}
	items, err := scrapeClass(data, page.Class)
	if err != nil {
		return models.Section{}, err
	}
	if len(items) == 0 {
		return models.Section{}, fmt.Errorf("no element with class %q on %s", page.Class, page.URL)
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return models.Section{
		Label: page.Label,
		Kind:  models.SectionPage,
		Text:  strings.Join(lines, "\n"),
	}, nil
}

func scrapeClass(data []byte, class string) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var items []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			if text := nodeText(n); text != "" {
				items = append(items, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return items, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
