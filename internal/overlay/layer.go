package overlay

import (
	"encoding/json"
	"sync"

	"github.com/l10nmonster/lqascan/internal/dom"
	"github.com/l10nmonster/lqascan/internal/walker"
)

// Layer is an in-memory Painter: it models the highlight layer as data so a
// headless host can inspect what would be painted.
type Layer struct {
	mu      sync.Mutex
	boxes   []Box
	visible bool
}

// NewLayer creates an empty, hidden layer.
func NewLayer() *Layer {
	return &Layer{}
}

// Paint implements Painter.
func (l *Layer) Paint(boxes []Box) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boxes = make([]Box, len(boxes))
	copy(l.boxes, boxes)
	l.visible = true
}

// Hide implements Painter.
func (l *Layer) Hide() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visible = false
}

// Move implements Painter.
func (l *Layer) Move(i int, r dom.Rect) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i >= 0 && i < len(l.boxes) {
		l.boxes[i].Rect = r
	}
}

// Clear implements Painter.
func (l *Layer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boxes = nil
	l.visible = false
}

// LayerSnapshot is a read-only copy of the painted layer.
type LayerSnapshot struct {
	Visible bool  `json:"visible"`
	Boxes   []Box `json:"boxes"`
}

// Snapshot returns a copy of the layer state.
func (l *Layer) Snapshot() LayerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	boxes := make([]Box, len(l.boxes))
	copy(boxes, l.boxes)
	return LayerSnapshot{Visible: l.visible, Boxes: boxes}
}

// MarshalJSON flattens the segment onto the highlight object and adds the
// match annotation under its reserved key.
func (h Highlight) MarshalJSON() ([]byte, error) {
	seg, err := json.Marshal(h.Segment)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(seg, &m); err != nil {
		return nil, err
	}
	if h.Match != MatchUnknown {
		m["match"] = string(h.Match)
	}
	return json.Marshal(m)
}

// UnmarshalJSON pulls the match annotation out and hands the rest to the
// segment decoder.
func (h *Highlight) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["match"]; ok {
		var match string
		if err := json.Unmarshal(v, &match); err != nil {
			return err
		}
		h.Match = Match(match)
		delete(raw, "match")
	}
	rest, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var seg walker.Segment
	if err := json.Unmarshal(rest, &seg); err != nil {
		return err
	}
	h.Segment = seg
	return nil
}
