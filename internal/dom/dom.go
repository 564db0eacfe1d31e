// Package dom defines the narrow render-tree query port the scanner operates
// against, plus the geometry types shared across the module. The walker, the
// visibility oracle and the overlay engine depend only on these interfaces,
// never on a concrete document implementation.
package dom

// Element is an element in the render tree.
type Element interface {
	// Tag returns the lowercase tag name.
	Tag() string
	// Parent returns the parent element, or nil at the top of the tree.
	Parent() Element
}

// TextNode is a text-bearing node in the render tree.
type TextNode interface {
	// Data returns the raw text content of the node.
	Data() string
	// Element returns the owning element, or nil for detached text.
	Element() Element
}

// Style is the computed style of an element, reduced to the properties the
// scanner cares about.
type Style struct {
	Display    string
	Visibility string
	Opacity    float64
	OverflowX  string
	OverflowY  string
	Position   string
}

// Document is the render-tree query capability. All rectangles it returns are
// viewport-relative; Scroll converts them to absolute page coordinates.
type Document interface {
	// ContentRoot returns the element the scan is rooted at, or nil when the
	// document has no usable content container.
	ContentRoot() Element
	// TextNodes returns every text node under the content root in document
	// order. No filtering is applied; callers decide what is scannable.
	TextNodes() []TextNode
	// Style returns the computed style of an element.
	Style(Element) Style
	// RangeRect returns the bounding rectangle of the text span from
	// (start, startOff) to (end, endOff), offsets in bytes of the node text.
	RangeRect(start TextNode, startOff int, end TextNode, endOff int) (Rect, error)
	// ElementRect returns the bounding rectangle of an element.
	ElementRect(Element) (Rect, error)
	// ElementAt returns the topmost element at a viewport point, or nil when
	// nothing is painted there.
	ElementAt(Point) (Element, error)
	// Viewport returns the viewport rectangle, origin (0,0).
	Viewport() Rect
	// Scroll returns the current scroll offset.
	Scroll() Point
}

// Related reports whether b is the same element as a, an ancestor of a, or a
// descendant of a. The occlusion test treats anything else as an occluder.
func Related(a, b Element) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	for p := a.Parent(); p != nil; p = p.Parent() {
		if p == b {
			return true
		}
	}
	for p := b.Parent(); p != nil; p = p.Parent() {
		if p == a {
			return true
		}
	}
	return false
}
