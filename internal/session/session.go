// Package session ties one page instance together: the parsed document, the
// walker with its oracle, and the overlay engine painting into an in-memory
// layer. Overlay and segment state are local to a session and die with it.
package session

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/l10nmonster/lqascan/internal/htmldom"
	"github.com/l10nmonster/lqascan/internal/overlay"
	"github.com/l10nmonster/lqascan/internal/visibility"
	"github.com/l10nmonster/lqascan/internal/walker"
)

// Config aggregates the per-session configuration of every component.
type Config struct {
	Doc     htmldom.Config
	Oracle  visibility.Config
	Walker  walker.Config
	Overlay overlay.Config
}

// Session is one page instance.
type Session struct {
	ID string

	mu          sync.Mutex // guards doc/walker, the timestamps and lastDisable
	doc         *htmldom.Document
	walker      *walker.Walker
	updated     time.Time
	lastDisable string

	engine *overlay.Engine
	layer  *overlay.Layer
	cfg    Config
	log    *slog.Logger
}

// New parses src as HTML and builds a session around it.
func New(src []byte, cfg Config, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		ID:      NewID(),
		cfg:     cfg,
		updated: time.Now(),
	}
	s.log = log.With("page_id", s.ID)
	if err := s.SetContent(src); err != nil {
		return nil, err
	}
	s.layer = overlay.NewLayer()
	ocfg := cfg.Overlay
	inner := ocfg.OnDisable
	ocfg.OnDisable = func(reason string) {
		s.mu.Lock()
		s.lastDisable = reason
		s.mu.Unlock()
		s.log.Warn("overlay disabled, notifying client", "reason", reason)
		if inner != nil {
			inner(reason)
		}
	}
	s.engine = overlay.New(s.layer, s, ocfg, s.log)
	return s, nil
}

// LastDisable returns the reason of the most recent overlay self-disable, or
// an empty string when the overlay never disabled itself.
func (s *Session) LastDisable() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDisable
}

// SetContent replaces the document, simulating a structural change of the
// page. The overlay engine notices on the next reconciliation.
func (s *Session) SetContent(src []byte) error {
	doc, err := htmldom.Parse(bytes.NewReader(src), s.cfg.Doc)
	if err != nil {
		return err
	}
	oracle := visibility.New(doc, s.cfg.Oracle)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.walker = walker.New(doc, oracle, s.cfg.Walker, s.log)
	s.updated = time.Now()
	return nil
}

// Extract runs a full extraction pass. It implements overlay.Extractor, so
// the engine re-invokes the walker through the session on resize and peek.
func (s *Session) Extract() (*walker.Result, error) {
	s.mu.Lock()
	w := s.walker
	s.updated = time.Now()
	s.mu.Unlock()
	return w.Extract()
}

// SetViewport updates viewport size and scroll offset. The caller follows up
// with Engine().Resize() to trigger reconciliation.
func (s *Session) SetViewport(width, height, scrollX, scrollY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SetViewport(width, height)
	s.doc.SetScroll(scrollX, scrollY)
	s.updated = time.Now()
}

// Engine returns the overlay engine.
func (s *Session) Engine() *overlay.Engine { return s.engine }

// Layer returns the in-memory highlight layer.
func (s *Session) Layer() *overlay.Layer { return s.layer }

// UpdatedAt returns the time of the last session activity.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// Close releases engine resources.
func (s *Session) Close() {
	s.engine.Close()
}
