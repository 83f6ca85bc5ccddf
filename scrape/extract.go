// ABOUTME: Readable-text extraction from raw HTML using a streaming tokenizer,
// ABOUTME: skipping script, style, and other non-content regions.
package scrape

import (
	"strings"

	"golang.org/x/net/html"
)

// skipTags holds element names whose text content is never useful prose.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"head":     true,
}

// ExtractText pulls the visible text out of an HTML document. Text nodes are
// joined with single spaces and runs of whitespace collapse, so the output is
// suitable for downstream language analysis rather than display.
func ExtractText(rawHTML string) string {
	tok := html.NewTokenizer(strings.NewReader(rawHTML))

	var b strings.Builder
	depth := 0 // nesting depth inside skipped elements
	for {
		switch tok.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way we keep what we have.
			return collapseSpace(b.String())
		case html.StartTagToken:
			name, _ := tok.TagName()
			if skipTags[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if skipTags[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tok.Text()))
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
