package dom

// Point is a position in page or viewport coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. The JSON shape matches the segment
// geometry emitted by the walker.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ZeroRect is the sentinel geometry for segments that are not visible.
var ZeroRect = Rect{}

// Empty reports whether the rectangle has no positive area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Intersect returns the overlap of two rectangles. The result is empty when
// they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x := max(r.X, o.X)
	y := max(r.Y, o.Y)
	right := min(r.Right(), o.Right())
	bottom := min(r.Bottom(), o.Bottom())
	if right <= x || bottom <= y {
		return ZeroRect
	}
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Union returns the bounding box of two rectangles.
func (r Rect) Union(o Rect) Rect {
	x := min(r.X, o.X)
	y := min(r.Y, o.Y)
	right := max(r.Right(), o.Right())
	bottom := max(r.Bottom(), o.Bottom())
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Translate returns the rectangle shifted by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}
