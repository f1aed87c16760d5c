// Package render turns markdown answers into HTML for the web UI.
package render

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// HTML converts answer to HTML. Raw HTML in the answer is not passed
// through.
func HTML(answer string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(answer), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
