// Package htmldom implements the render-tree query port on top of parsed
// HTML with a deterministic synthetic layout. It exists so the walker, the
// visibility oracle and the overlay engine can run headless against static
// HTML: text advances a fixed width per rune (zero for the zero-width marker
// characters), block elements stack vertically, and absolutely positioned
// boxes paint above the static flow for hit-testing.
package htmldom

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"

	"github.com/l10nmonster/lqascan/internal/dom"
)

// Config controls parsing and the synthetic layout.
type Config struct {
	ViewportWidth  float64
	ViewportHeight float64
	CharWidth      float64 // horizontal advance per rune
	LineHeight     float64
	// ContentRoot forces a specific tag as the scan root. Empty selects the
	// first of main, article, body.
	ContentRoot string
}

// DefaultConfig returns the layout defaults used by the service and the CLI.
func DefaultConfig() Config {
	return Config{
		ViewportWidth:  1280,
		ViewportHeight: 800,
		CharWidth:      8,
		LineHeight:     18,
	}
}

// Document is a dom.Document backed by an x/net/html parse tree.
type Document struct {
	cfg    Config
	root   *html.Node
	els    map[*html.Node]*element
	order  []*element // document order, for hit-testing
	texts  []*textNode
	byNode map[*html.Node]*textNode
	scroll dom.Point
}

type element struct {
	d     *Document
	n     *html.Node
	style inlineStyle
	rect  dom.Rect // absolute page coordinates
	laid  bool
}

func (e *element) Tag() string { return e.n.Data }

func (e *element) Parent() dom.Element {
	if p := e.parentEl(); p != nil {
		return p
	}
	return nil
}

func (e *element) parentEl() *element {
	for p := e.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.d.els[p]
		}
	}
	return nil
}

type textNode struct {
	d    *Document
	n    *html.Node
	idx  int     // position in Document.texts
	x, y float64 // absolute page coordinates
	w, h float64
	laid bool
}

func (t *textNode) Data() string { return t.n.Data }

func (t *textNode) Element() dom.Element {
	for p := t.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			if e := t.d.els[p]; e != nil {
				return e
			}
			return nil
		}
	}
	return nil
}

// Parse builds a document from HTML and lays it out.
func Parse(r io.Reader, cfg Config) (*Document, error) {
	def := DefaultConfig()
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = def.ViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = def.ViewportHeight
	}
	if cfg.CharWidth <= 0 {
		cfg.CharWidth = def.CharWidth
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = def.LineHeight
	}

	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := &Document{
		cfg:    cfg,
		els:    make(map[*html.Node]*element),
		byNode: make(map[*html.Node]*textNode),
	}
	d.index(n)
	d.root = d.findContentRoot(n)
	d.layout(n)
	d.collectTexts()
	return d, nil
}

// index wraps every element node so identity comparisons work across queries.
func (d *Document) index(n *html.Node) {
	if n.Type == html.ElementNode {
		e := &element{d: d, n: n, style: parseStyle(attr(n, "style"))}
		d.els[n] = e
		d.order = append(d.order, e)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.index(c)
	}
}

func (d *Document) findContentRoot(n *html.Node) *html.Node {
	if d.cfg.ContentRoot != "" {
		return findTag(n, d.cfg.ContentRoot)
	}
	for _, tag := range []string{"main", "article", "body"} {
		if f := findTag(n, tag); f != nil {
			return f
		}
	}
	return nil
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findTag(c, tag); f != nil {
			return f
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collectTexts gathers text nodes under the content root in document order.
// Unrendered text (display:none subtrees, script bodies) is included with no
// layout; the walker filters by style and tag.
func (d *Document) collectTexts() {
	if d.root == nil {
		return
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && n.Parent != nil && n.Parent.Type == html.ElementNode {
			t := d.byNode[n]
			if t == nil {
				t = &textNode{d: d, n: n}
				d.byNode[n] = t
			}
			t.idx = len(d.texts)
			d.texts = append(d.texts, t)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
}

// SetViewport resizes the viewport. Layout does not reflow (no line wrapping
// in the synthetic model), but visibility decisions change.
func (d *Document) SetViewport(w, h float64) {
	if w > 0 {
		d.cfg.ViewportWidth = w
	}
	if h > 0 {
		d.cfg.ViewportHeight = h
	}
}

// SetScroll moves the scroll offset.
func (d *Document) SetScroll(x, y float64) {
	d.scroll = dom.Point{X: x, Y: y}
}

// ContentRoot implements dom.Document.
func (d *Document) ContentRoot() dom.Element {
	if d.root == nil {
		return nil
	}
	return d.els[d.root]
}

// TextNodes implements dom.Document.
func (d *Document) TextNodes() []dom.TextNode {
	out := make([]dom.TextNode, len(d.texts))
	for i, t := range d.texts {
		out[i] = t
	}
	return out
}

// Style implements dom.Document. Display, visibility and opacity are
// computed down the ancestor chain; overflow and position are not inherited.
func (d *Document) Style(el dom.Element) dom.Style {
	e, ok := el.(*element)
	if !ok {
		return dom.Style{Visibility: "visible", Opacity: 1}
	}
	st := dom.Style{
		Display:    e.style.display,
		Visibility: "visible",
		Opacity:    1,
		OverflowX:  e.style.overflowX,
		OverflowY:  e.style.overflowY,
		Position:   e.style.position,
	}
	visibility := ""
	for x := e; x != nil; x = x.parentEl() {
		if x.style.display == "none" {
			st.Display = "none"
		}
		if visibility == "" && x.style.visibility != "" {
			visibility = x.style.visibility
		}
		if x.style.hasOpacity {
			st.Opacity *= x.style.opacity
		}
	}
	if visibility != "" {
		st.Visibility = visibility
	}
	return st
}

// RangeRect implements dom.Document.
func (d *Document) RangeRect(start dom.TextNode, startOff int, end dom.TextNode, endOff int) (dom.Rect, error) {
	s, ok := start.(*textNode)
	e, ok2 := end.(*textNode)
	if !ok || !ok2 {
		return dom.ZeroRect, errors.New("text node from a different document")
	}
	if !s.laid || !e.laid {
		return dom.ZeroRect, errors.New("text node has no layout")
	}
	sx := s.x + d.advanceBefore(s, startOff)
	ex := e.x + d.advanceBefore(e, endOff)

	var r dom.Rect
	if s == e {
		r = dom.Rect{X: sx, Y: s.y, Width: ex - sx, Height: s.h}
	} else {
		if s.idx > e.idx {
			return dom.ZeroRect, errors.New("range ends before it starts")
		}
		r = dom.Rect{X: sx, Y: s.y, Width: s.x + s.w - sx, Height: s.h}
		for i := s.idx + 1; i < e.idx; i++ {
			t := d.texts[i]
			if t.laid {
				r = r.Union(dom.Rect{X: t.x, Y: t.y, Width: t.w, Height: t.h})
			}
		}
		r = r.Union(dom.Rect{X: e.x, Y: e.y, Width: ex - e.x, Height: e.h})
	}
	return r.Translate(-d.scroll.X, -d.scroll.Y), nil
}

// ElementRect implements dom.Document.
func (d *Document) ElementRect(el dom.Element) (dom.Rect, error) {
	e, ok := el.(*element)
	if !ok {
		return dom.ZeroRect, errors.New("element from a different document")
	}
	if !e.laid {
		return dom.ZeroRect, errors.New("element has no layout")
	}
	return e.rect.Translate(-d.scroll.X, -d.scroll.Y), nil
}

// ElementAt implements dom.Document. Among static elements the last one in
// document order containing the point wins (the deepest box painted there);
// absolutely positioned boxes paint above all static content.
func (d *Document) ElementAt(p dom.Point) (dom.Element, error) {
	q := dom.Point{X: p.X + d.scroll.X, Y: p.Y + d.scroll.Y}
	var static, positioned *element
	for _, e := range d.order {
		if !e.laid || !e.rect.Contains(q) {
			continue
		}
		if e.style.position == "absolute" {
			positioned = e
		} else {
			static = e
		}
	}
	if positioned != nil {
		return positioned, nil
	}
	if static != nil {
		return static, nil
	}
	return nil, nil
}

// Viewport implements dom.Document.
func (d *Document) Viewport() dom.Rect {
	return dom.Rect{Width: d.cfg.ViewportWidth, Height: d.cfg.ViewportHeight}
}

// Scroll implements dom.Document.
func (d *Document) Scroll() dom.Point { return d.scroll }
