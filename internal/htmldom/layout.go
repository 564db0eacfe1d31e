package htmldom

import (
	"golang.org/x/net/html"

	"github.com/l10nmonster/lqascan/internal/dom"
)

// blockTags start on a fresh line and force one after themselves.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "div": true, "dl": true, "dt": true, "dd": true,
	"fieldset": true, "figure": true, "figcaption": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

// unlaidTags never produce boxes; their text is not part of the render flow.
var unlaidTags = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"template": true, "title": true,
}

type pen struct {
	x, y float64
	line bool // something has been placed on the current line
}

func (p *pen) newline(lineHeight float64) {
	if p.line {
		p.y += lineHeight
		p.x = 0
		p.line = false
	}
}

func (d *Document) layout(docNode *html.Node) {
	body := findTag(docNode, "body")
	if body == nil {
		return
	}
	d.layoutNode(body, &pen{})
}

func (d *Document) layoutNode(n *html.Node, p *pen) {
	switch n.Type {
	case html.TextNode:
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return
		}
		t := &textNode{
			d: d, n: n,
			x: p.x, y: p.y,
			w: d.measure(n.Data), h: d.cfg.LineHeight,
			laid: true,
		}
		d.byNode[n] = t
		p.x += t.w
		if n.Data != "" {
			p.line = true
		}

	case html.ElementNode:
		e := d.els[n]
		if e == nil || unlaidTags[n.Data] || e.style.display == "none" {
			return
		}
		if e.style.position == "absolute" {
			sub := &pen{x: e.style.left, y: e.style.top}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				d.layoutNode(c, sub)
			}
			d.finishRect(e, dom.Point{X: e.style.left, Y: e.style.top})
			return
		}
		isBlock := blockTags[n.Data]
		if isBlock {
			p.newline(d.cfg.LineHeight)
		}
		start := dom.Point{X: p.x, Y: p.y}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			d.layoutNode(c, p)
		}
		d.finishRect(e, start)
		if isBlock {
			p.newline(d.cfg.LineHeight)
		}
	}
}

// finishRect computes the element box as the union of its descendant text
// boxes, falling back to the layout origin, then applies explicit dimensions.
func (d *Document) finishRect(e *element, origin dom.Point) {
	r, found := d.textUnion(e.n)
	if !found {
		r = dom.Rect{X: origin.X, Y: origin.Y}
	}
	if e.style.position == "absolute" {
		r.X, r.Y = e.style.left, e.style.top
	}
	if e.style.hasWidth {
		r.Width = e.style.width
	}
	if e.style.hasHeight {
		r.Height = e.style.height
	}
	e.rect = r
	e.laid = true
}

func (d *Document) textUnion(n *html.Node) (dom.Rect, bool) {
	var r dom.Rect
	found := false
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if t := d.byNode[c]; t != nil && t.laid {
			box := dom.Rect{X: t.x, Y: t.y, Width: t.w, Height: t.h}
			if found {
				r = r.Union(box)
			} else {
				r = box
				found = true
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return r, found
}

func (d *Document) measure(s string) float64 {
	var w float64
	for _, r := range s {
		w += d.runeWidth(r)
	}
	return w
}

// advanceBefore returns the horizontal advance of the text before byteOff.
func (d *Document) advanceBefore(t *textNode, byteOff int) float64 {
	var w float64
	for i, r := range t.n.Data {
		if i >= byteOff {
			break
		}
		w += d.runeWidth(r)
	}
	return w
}

// runeWidth gives the marker characters zero advance so embedded markers do
// not shift the geometry of the text around them.
func (d *Document) runeWidth(r rune) float64 {
	switch {
	case r == '​' || r == '‌' || r == '‍':
		return 0
	case r >= 0xfe00 && r <= 0xfe0f:
		return 0
	}
	return d.cfg.CharWidth
}
