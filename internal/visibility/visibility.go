// Package visibility decides whether a rectangle is genuinely visible to a
// user: not clipped away by an overflow ancestor, not scrolled out of the
// viewport, and not covered by an unrelated element. A rectangle that is
// merely present in the document with positive geometry does not qualify.
package visibility

import (
	"github.com/l10nmonster/lqascan/internal/dom"
)

// Config exposes the two judgment-call constants. Their right values depend
// on font and zoom conditions, so they are parameters rather than fixed law.
type Config struct {
	// ClipThreshold is the fraction of each dimension that must survive an
	// overflow ancestor's clip box. Below it the rectangle counts as clipped.
	ClipThreshold float64
	// CornerInset is how far the four occlusion probes move inward from the
	// rectangle corners, in pixels.
	CornerInset float64
}

// DefaultConfig returns the thresholds used by the service and the CLI.
func DefaultConfig() Config {
	return Config{ClipThreshold: 0.5, CornerInset: 2}
}

// Oracle answers visibility queries against one document. It never mutates
// the document and never propagates a failure: any query error or panic
// yields "not visible".
type Oracle struct {
	doc dom.Document
	cfg Config
}

// New creates an oracle for doc. Zero config fields fall back to defaults.
func New(doc dom.Document, cfg Config) *Oracle {
	def := DefaultConfig()
	if cfg.ClipThreshold <= 0 || cfg.ClipThreshold > 1 {
		cfg.ClipThreshold = def.ClipThreshold
	}
	if cfg.CornerInset < 0 {
		cfg.CornerInset = def.CornerInset
	}
	return &Oracle{doc: doc, cfg: cfg}
}

// IsVisible reports whether rect, owned by owner, is actually on screen.
// rect is viewport-relative.
func (o *Oracle) IsVisible(rect dom.Rect, owner dom.Element) (visible bool) {
	defer func() {
		if recover() != nil {
			visible = false
		}
	}()

	if rect.Empty() || owner == nil {
		return false
	}
	if !o.survivesClipping(rect, owner) {
		return false
	}

	viewport := o.doc.Viewport()
	if rect.Intersect(viewport).Empty() {
		return false
	}

	in := o.cfg.CornerInset
	corners := [4]dom.Point{
		{X: rect.X + in, Y: rect.Y + in},
		{X: rect.Right() - in, Y: rect.Y + in},
		{X: rect.X + in, Y: rect.Bottom() - in},
		{X: rect.Right() - in, Y: rect.Bottom() - in},
	}
	for _, corner := range corners {
		if !viewport.Contains(corner) {
			return false
		}
		hit, err := o.doc.ElementAt(corner)
		if err != nil || hit == nil {
			return false
		}
		if !dom.Related(owner, hit) {
			return false
		}
	}
	return true
}

// survivesClipping walks the ancestor chain up to (excluding) the document
// root and checks rect against every clipping ancestor's box. More than half
// clipped on either axis fails.
func (o *Oracle) survivesClipping(rect dom.Rect, owner dom.Element) bool {
	for anc := owner.Parent(); anc != nil && anc.Tag() != "html"; anc = anc.Parent() {
		style := o.doc.Style(anc)
		if !clips(style.OverflowX) && !clips(style.OverflowY) {
			continue
		}
		box, err := o.doc.ElementRect(anc)
		if err != nil {
			return false
		}
		overlap := rect.Intersect(box)
		if overlap.Empty() {
			return false
		}
		if overlap.Width < rect.Width*o.cfg.ClipThreshold ||
			overlap.Height < rect.Height*o.cfg.ClipThreshold {
			return false
		}
	}
	return true
}

func clips(overflow string) bool {
	switch overflow {
	case "hidden", "scroll", "clip":
		return true
	}
	return false
}
