package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/l10nmonster/lqascan/internal/htmldom"
	"github.com/l10nmonster/lqascan/internal/instrument"
	"github.com/l10nmonster/lqascan/internal/overlay"
	"github.com/l10nmonster/lqascan/internal/session"
	"github.com/l10nmonster/lqascan/internal/visibility"
	"github.com/l10nmonster/lqascan/internal/walker"
)

// handleCreatePage loads a document into a fresh page session. The body is
// the page source: HTML by default, markdown when the Content-Type says so.
func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readPageBody(w, r)
	if !ok {
		return
	}

	sess, err := session.New(src, s.sessionConfig(), s.log)
	if err != nil {
		jsonError(w, "load page: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.store.Put(sess)
	s.log.Info("page loaded", "page_id", sess.ID, "bytes", len(src))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"page_id": sess.ID})
}

// handleReplaceContent swaps the document under an existing session,
// simulating structural DOM change.
func (s *Server) handleReplaceContent(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	src, ok := s.readPageBody(w, r)
	if !ok {
		return
	}
	if err := sess.SetContent(src); err != nil {
		jsonError(w, "load page: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"page_id": sess.ID})
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "pageID")) {
		jsonError(w, "unknown page", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExtract runs one extraction pass. The response is the extraction
// contract verbatim: {textElements} on success, {error} when there is no
// content root to scan.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	result, err := sess.Extract()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, walker.ErrMissingRoot) {
			status = http.StatusUnprocessableEntity
		}
		jsonError(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) readPageBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	src, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "read body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if len(strings.TrimSpace(string(src))) == 0 {
		jsonError(w, "empty page body", http.StatusBadRequest)
		return nil, false
	}
	if isMarkdown(r.Header.Get("Content-Type")) {
		src, err = instrument.MarkdownToHTML(src)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}
	}
	return src, true
}

func isMarkdown(contentType string) bool {
	return strings.Contains(contentType, "markdown")
}

func (s *Server) sessionConfig() session.Config {
	return session.Config{
		Doc: htmldom.Config{
			ViewportWidth:  s.cfg.ViewportWidth,
			ViewportHeight: s.cfg.ViewportHeight,
		},
		Oracle: visibility.Config{
			ClipThreshold: s.cfg.ClipThreshold,
			CornerInset:   s.cfg.CornerInset,
		},
		Walker: walker.Config{
			KeepUnterminated: s.cfg.KeepUnterminated,
		},
		Overlay: overlay.Config{
			ResizeDebounce: s.cfg.ResizeDebounce,
			PeekKey:        s.cfg.PeekKey,
		},
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
