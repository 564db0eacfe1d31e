// Package walker reconstructs marked text segments from the render tree. It
// traverses text nodes in document order, recognizes marker pairs that may
// span multiple nodes, decodes the embedded metadata, and classifies each
// finalized segment as visible or not. A single forward pass, no
// backtracking: once a position is consumed the walk never returns to it.
package walker

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/l10nmonster/lqascan/internal/dom"
	"github.com/l10nmonster/lqascan/internal/marker"
)

// ErrMissingRoot is returned when the document has no content root to scan.
// It is fatal to the extraction call only; no partial results are produced.
var ErrMissingRoot = errors.New("no content root to scan")

// Oracle decides whether a viewport-relative rectangle is actually visible.
type Oracle interface {
	IsVisible(rect dom.Rect, owner dom.Element) bool
}

// Config controls walker behavior.
type Config struct {
	// KeepUnterminated emits a segment whose end marker was never found,
	// with ZeroRect geometry. The default drops it with a warning, matching
	// the producer's expectation that every start marker is closed.
	KeepUnterminated bool
}

// disallowedTags own text that is never scanned, whatever its style says.
var disallowedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "textarea": true,
	"head": true, "title": true, "iframe": true, "svg": true,
}

// Walker scans one document. It is not safe for concurrent use; callers
// serialize extraction passes.
type Walker struct {
	doc    dom.Document
	oracle Oracle
	cfg    Config
	log    *slog.Logger
}

// New creates a walker over doc using oracle for visibility decisions.
func New(doc dom.Document, oracle Oracle, cfg Config, log *slog.Logger) *Walker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Walker{doc: doc, oracle: oracle, cfg: cfg, log: log}
}

// open is the at-most-one in-progress segment.
type open struct {
	startNode dom.TextNode
	startOff  int // byte offset where the visible text begins
	payload   string
	text      strings.Builder
}

// Extract runs a full pass and returns every finalized segment in document
// order. The only failure is a missing content root; everything else is
// recovered per segment.
func (w *Walker) Extract() (*Result, error) {
	if w.doc.ContentRoot() == nil {
		return nil, ErrMissingRoot
	}

	segments := []Segment{}
	var cur *open

	for _, node := range w.scannableNodes() {
		text := node.Data()
		pos := 0
		for pos < len(text) {
			if cur == nil {
				payload, contentStart, ok := findStart(text, pos)
				if !ok {
					pos = len(text)
					break
				}
				endIdx := indexEnd(text, contentStart)
				if endIdx < 0 {
					cur = &open{startNode: node, startOff: contentStart, payload: payload}
					cur.text.WriteString(text[contentStart:])
					pos = len(text)
					break
				}
				seg := w.finalize(&open{startNode: node, startOff: contentStart, payload: payload},
					text[contentStart:endIdx], node, endIdx)
				segments = append(segments, seg)
				pos = endIdx + utf8.RuneLen(marker.End)
				continue
			}

			endIdx := indexEnd(text, pos)
			if endIdx < 0 {
				cur.text.WriteString(text[pos:])
				pos = len(text)
				break
			}
			cur.text.WriteString(text[pos:endIdx])
			seg := w.finalize(cur, cur.text.String(), node, endIdx)
			segments = append(segments, seg)
			cur = nil
			pos = endIdx + utf8.RuneLen(marker.End)
		}
	}

	if cur != nil {
		if w.cfg.KeepUnterminated {
			meta, decErr := marker.DecodeJSON(cur.payload)
			segments = append(segments, Segment{
				Text:          cur.text.String(),
				Geometry:      dom.ZeroRect,
				Metadata:      meta,
				DecodingError: decErr,
			})
		} else {
			w.log.Warn("dropping unterminated segment",
				"text_len", cur.text.Len())
		}
	}

	return &Result{TextElements: segments}, nil
}

// scannableNodes filters the document's text nodes down to those whose
// owning element is rendered and allowed.
func (w *Walker) scannableNodes() []dom.TextNode {
	var nodes []dom.TextNode
	for _, node := range w.doc.TextNodes() {
		el := node.Element()
		if el == nil || disallowedTags[el.Tag()] {
			continue
		}
		style := w.doc.Style(el)
		if style.Display == "none" || style.Visibility == "hidden" || style.Opacity == 0 {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// finalize decodes the payload, computes geometry across the full span and
// classifies visibility. Decode failures annotate the segment; geometry
// failures make it not visible. Nothing here aborts the walk.
func (w *Walker) finalize(cur *open, text string, endNode dom.TextNode, endOff int) Segment {
	meta, decErr := marker.DecodeJSON(cur.payload)
	if decErr != "" {
		w.log.Warn("segment metadata decode failed", "error", decErr)
	}

	geometry := dom.ZeroRect
	rect, err := w.doc.RangeRect(cur.startNode, cur.startOff, endNode, endOff)
	if err == nil && w.oracle.IsVisible(rect, cur.startNode.Element()) {
		scroll := w.doc.Scroll()
		geometry = rect.Translate(scroll.X, scroll.Y)
	}

	return Segment{
		Text:          text,
		Geometry:      geometry,
		Metadata:      meta,
		DecodingError: decErr,
	}
}

// startGuards reject start markers that are part of markup rather than
// rendered text.
func isStartGuard(r rune) bool {
	switch r {
	case '"', '\'', '<', '>':
		return true
	}
	return false
}

// findStart locates the next start marker at or after pos: the zero-width
// separator followed by at least one nibble character, not immediately
// preceded by a guard character. It returns the payload and the byte offset
// where the segment text begins.
func findStart(text string, pos int) (payload string, contentStart int, ok bool) {
	for pos < len(text) {
		rel := strings.IndexRune(text[pos:], marker.Start)
		if rel < 0 {
			return "", 0, false
		}
		idx := pos + rel
		after := idx + utf8.RuneLen(marker.Start)
		if prev, size := utf8.DecodeLastRuneInString(text[:idx]); size > 0 && isStartGuard(prev) {
			pos = after
			continue
		}
		end := after
		for end < len(text) {
			r, size := utf8.DecodeRuneInString(text[end:])
			if !marker.IsNibble(r) {
				break
			}
			end += size
		}
		if end == after {
			// A bare separator with no payload is not a marker.
			pos = after
			continue
		}
		return text[after:end], end, true
	}
	return "", 0, false
}

func indexEnd(text string, pos int) int {
	rel := strings.IndexRune(text[pos:], marker.End)
	if rel < 0 {
		return -1
	}
	return pos + rel
}
