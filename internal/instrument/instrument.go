// Package instrument is the producer side of the marker format: it renders
// markdown to HTML and injects zero-width metadata markers into the text of
// selected elements. The output is what the scanner consumes.
package instrument

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"

	"github.com/l10nmonster/lqascan/internal/marker"
)

// Rule attaches metadata to every element matching a CSS selector.
type Rule struct {
	Selector string         `json:"selector"`
	Metadata map[string]any `json:"metadata"`
}

// MarkdownToHTML renders markdown source to an HTML page body. Marker
// characters already present in the source survive the conversion: goldmark
// passes zero-width characters through untouched.
func MarkdownToHTML(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// InjectMarkers wraps the text content of every element matched by a rule
// with a start marker carrying the rule's metadata and an end marker. Child
// markup of matched elements is flattened to text.
func InjectMarkers(htmlSrc []byte, rules []Rule) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlSrc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	for _, rule := range rules {
		start, err := marker.Encode(rule.Metadata)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Selector, err)
		}
		doc.Find(rule.Selector).Each(func(_ int, sel *goquery.Selection) {
			sel.SetText(start + sel.Text() + string(marker.End))
		})
	}

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("serialize html: %w", err)
	}
	return []byte(out), nil
}
