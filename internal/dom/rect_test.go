package dom

import "testing"

func TestRect_Empty(t *testing.T) {
	if !ZeroRect.Empty() {
		t.Error("ZeroRect must be empty")
	}
	if (Rect{X: 1, Y: 1, Width: 10, Height: 0}).Empty() == false {
		t.Error("zero height means empty")
	}
	if (Rect{Width: 5, Height: 5}).Empty() {
		t.Error("positive area is not empty")
	}
}

func TestRect_Intersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	b := Rect{X: 50, Y: 50, Width: 100, Height: 100}
	got := a.Intersect(b)
	want := Rect{X: 50, Y: 50, Width: 50, Height: 50}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	c := Rect{X: 200, Y: 0, Width: 10, Height: 10}
	if !a.Intersect(c).Empty() {
		t.Error("disjoint rectangles must intersect to empty")
	}
}

func TestRect_Union(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: 5, Width: 10, Height: 10}
	got := a.Union(b)
	want := Rect{X: 0, Y: 0, Width: 30, Height: 15}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 20}
	for _, p := range []Point{{X: 10, Y: 10}, {X: 30, Y: 30}, {X: 20, Y: 20}} {
		if !r.Contains(p) {
			t.Errorf("expected %+v to contain %+v", r, p)
		}
	}
	for _, p := range []Point{{X: 9, Y: 10}, {X: 31, Y: 30}, {X: 20, Y: 40}} {
		if r.Contains(p) {
			t.Errorf("expected %+v not to contain %+v", r, p)
		}
	}
}

func TestRect_Translate(t *testing.T) {
	r := Rect{X: 1, Y: 2, Width: 3, Height: 4}
	got := r.Translate(10, -2)
	want := Rect{X: 11, Y: 0, Width: 3, Height: 4}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

// fakeEl is a minimal Element for relationship tests.
type fakeEl struct {
	tag    string
	parent *fakeEl
}

func (f *fakeEl) Tag() string { return f.tag }
func (f *fakeEl) Parent() Element {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

func TestRelated(t *testing.T) {
	root := &fakeEl{tag: "body"}
	parent := &fakeEl{tag: "div", parent: root}
	child := &fakeEl{tag: "p", parent: parent}
	grandchild := &fakeEl{tag: "b", parent: child}
	sibling := &fakeEl{tag: "aside", parent: root}

	if !Related(child, child) {
		t.Error("an element is related to itself")
	}
	if !Related(child, parent) {
		t.Error("ancestors are related")
	}
	if !Related(child, grandchild) {
		t.Error("descendants are related")
	}
	if Related(child, sibling) {
		t.Error("siblings are not related")
	}
	if Related(nil, child) || Related(child, nil) {
		t.Error("nil is related to nothing")
	}
}
