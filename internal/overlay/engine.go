// Package overlay renders and maintains the highlight layer over extracted
// segments and keeps it synchronized with the viewport. The engine is an
// explicit state machine over {hidden, visible, peek-hidden}; every command
// is a named transition over state owned exclusively by the engine.
package overlay

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/l10nmonster/lqascan/internal/dom"
	"github.com/l10nmonster/lqascan/internal/walker"
)

// Match is the tri-state translation-memory annotation on a highlight.
type Match string

const (
	MatchUnknown Match = ""
	Matched      Match = "matched"
	Unmatched    Match = "unmatched"
)

// Color returns the highlight color for this match state.
func (m Match) Color() string {
	switch m {
	case Matched:
		return "#43a047"
	case Unmatched:
		return "#fb8c00"
	}
	return "#1e88e5"
}

// Highlight is one stored overlay entry: a segment plus its annotation.
type Highlight struct {
	Segment walker.Segment
	Match   Match
}

// Box is one painted rectangle of the highlight layer.
type Box struct {
	Rect  dom.Rect `json:"rect"`
	Color string   `json:"color"`
}

// Painter is the render/paint capability the engine draws through.
type Painter interface {
	// Paint builds or wholesale-replaces the highlight layer.
	Paint(boxes []Box)
	// Hide hides the layer without discarding it.
	Hide()
	// Move repositions the box at index i.
	Move(i int, r dom.Rect)
	// Clear tears the layer down.
	Clear()
}

// Extractor re-runs a segment extraction pass on demand.
type Extractor interface {
	Extract() (*walker.Result, error)
}

// State names the engine states.
type State string

const (
	StateHidden  State = "hidden"
	StateVisible State = "visible"
	StatePeek    State = "peek-hidden"
)

// Config controls engine behavior.
type Config struct {
	// ResizeDebounce is how long resize events are coalesced before the
	// overlay reconciles against a fresh extraction. Default 250ms.
	ResizeDebounce time.Duration
	// PeekKey is the modifier key driving the transient peek. Default "Alt".
	PeekKey string
	// OnDisable is invoked exactly once each time the overlay disables
	// itself after a resize-induced structural mismatch.
	OnDisable func(reason string)
}

// Engine owns the overlay state for one page session.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	painter   Painter
	extractor Extractor
	log       *slog.Logger

	state      State
	highlights []Highlight
	peekLatch  bool
	resize     *time.Timer
	disables   int
}

// New creates an engine in the hidden state.
func New(painter Painter, extractor Extractor, cfg Config, log *slog.Logger) *Engine {
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = 250 * time.Millisecond
	}
	if cfg.PeekKey == "" {
		cfg.PeekKey = "Alt"
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		cfg:       cfg,
		painter:   painter,
		extractor: extractor,
		log:       log,
		state:     StateHidden,
	}
}

// Show discards any prior layer and builds a new one from segments, keyed by
// index and colored per match annotation.
func (e *Engine) Show(highlights []Highlight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.showLocked(highlights)
}

func (e *Engine) showLocked(highlights []Highlight) {
	stored := make([]Highlight, len(highlights))
	copy(stored, highlights)
	e.painter.Clear()
	e.painter.Paint(boxes(stored))
	e.highlights = stored
	e.state = StateVisible
	e.log.Debug("overlay shown", "segments", len(stored))
}

// Remove tears down the layer and clears stored segments.
func (e *Engine) Remove() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked()
}

func (e *Engine) removeLocked() {
	e.painter.Clear()
	e.highlights = nil
	e.peekLatch = false
	e.state = StateHidden
}

// HideTemporarily hides the layer without discarding stored segments and
// reports whether the overlay actually was visible beforehand.
func (e *Engine) HideTemporarily() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateVisible {
		return false
	}
	e.painter.Hide()
	e.state = StatePeek
	return true
}

// Restore rebuilds and shows the layer from stored segments. It is
// idempotent: with nothing stored the engine stays hidden.
func (e *Engine) Restore() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restoreLocked()
}

func (e *Engine) restoreLocked() {
	if len(e.highlights) == 0 {
		e.state = StateHidden
		return
	}
	e.painter.Paint(boxes(e.highlights))
	e.state = StateVisible
}

// Resize schedules a debounced reconciliation. Repeated calls within the
// debounce window coalesce into one pass.
func (e *Engine) Resize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resize != nil {
		e.resize.Stop()
	}
	e.resize = time.AfterFunc(e.cfg.ResizeDebounce, e.reconcile)
}

// reconcile re-extracts and updates highlight geometry in place when the
// segment count is unchanged. A different count means the document changed
// structurally: positional correspondence cannot be trusted, so the overlay
// disables itself and notifies outward.
func (e *Engine) reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateVisible {
		return
	}

	result, err := e.extractor.Extract()
	if err != nil {
		e.log.Warn("resize reconciliation failed", "error", err)
		e.disableLocked("extraction failed: " + err.Error())
		return
	}
	fresh := result.TextElements
	if len(fresh) != len(e.highlights) {
		e.disableLocked(fmt.Sprintf("segment count changed from %d to %d",
			len(e.highlights), len(fresh)))
		return
	}
	for i, seg := range fresh {
		e.highlights[i].Segment = seg
		e.painter.Move(i, seg.Geometry)
	}
	e.log.Debug("overlay reconciled", "segments", len(fresh))
}

func (e *Engine) disableLocked(reason string) {
	e.removeLocked()
	e.disables++
	e.log.Info("overlay disabled", "reason", reason)
	if e.cfg.OnDisable != nil {
		e.cfg.OnDisable(reason)
	}
}

// KeyDown starts a peek when the designated key goes down while visible.
// The latch ignores auto-repeated down events while already peeking.
func (e *Engine) KeyDown(key string) {
	if key != e.cfg.PeekKey {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.peekLatch || e.state != StateVisible {
		return
	}
	e.peekLatch = true
	e.painter.Hide()
	e.state = StatePeek
}

// KeyUp ends a peek: it re-extracts for fresh geometry, re-attaches each
// stored match annotation by positional index, and shows the merged result.
// When extraction is unavailable the old layer is restored unchanged.
func (e *Engine) KeyUp(key string) {
	if key != e.cfg.PeekKey {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.peekLatch = false
	if e.state != StatePeek {
		return
	}

	result, err := e.extractor.Extract()
	if err != nil {
		e.log.Warn("peek refresh failed, restoring stored layer", "error", err)
		e.restoreLocked()
		return
	}
	merged := make([]Highlight, len(result.TextElements))
	for i, seg := range result.TextElements {
		match := MatchUnknown
		if i < len(e.highlights) {
			match = e.highlights[i].Match
		}
		merged[i] = Highlight{Segment: seg, Match: match}
	}
	e.showLocked(merged)
}

// Close stops any pending reconciliation timer.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resize != nil {
		e.resize.Stop()
		e.resize = nil
	}
}

// Snapshot is a read-only, JSON-safe copy of engine state.
type Snapshot struct {
	State      State       `json:"state"`
	Highlights []Highlight `json:"highlights"`
	Disables   int         `json:"disables"`
}

// Snapshot returns a copy of the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	highlights := make([]Highlight, len(e.highlights))
	copy(highlights, e.highlights)
	return Snapshot{State: e.state, Highlights: highlights, Disables: e.disables}
}

func boxes(highlights []Highlight) []Box {
	out := make([]Box, len(highlights))
	for i, h := range highlights {
		out[i] = Box{Rect: h.Segment.Geometry, Color: h.Match.Color()}
	}
	return out
}
