package api

import (
	"encoding/json"
	"net/http"

	"github.com/l10nmonster/lqascan/internal/overlay"
)

// handleOverlayShow builds a new highlight layer. enabled=false is the
// caller's way of switching the overlay off through the same command.
func (s *Server) handleOverlayShow(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)

	var req struct {
		Enabled  bool                `json:"enabled"`
		Segments []overlay.Highlight `json:"segments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !req.Enabled {
		sess.Engine().Remove()
	} else {
		sess.Engine().Show(req.Segments)
	}
	writeState(w, sess.Engine())
}

func (s *Server) handleOverlayRemove(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	sess.Engine().Remove()
	writeState(w, sess.Engine())
}

func (s *Server) handleOverlayHide(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	wasVisible := sess.Engine().HideTemporarily()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"wasVisible": wasVisible})
}

func (s *Server) handleOverlayRestore(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	sess.Engine().Restore()
	writeState(w, sess.Engine())
}

// handleOverlayStatus reports the engine state and what the layer would
// currently paint.
func (s *Server) handleOverlayStatus(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"overlay":        sess.Engine().Snapshot(),
		"layer":          sess.Layer().Snapshot(),
		"disabledReason": sess.LastDisable(),
	})
}

// handleViewport applies a viewport change and schedules the debounced
// overlay reconciliation.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)

	var req struct {
		Width   float64 `json:"width"`
		Height  float64 `json:"height"`
		ScrollX float64 `json:"scroll_x"`
		ScrollY float64 `json:"scroll_y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		jsonError(w, "width and height must be positive", http.StatusBadRequest)
		return
	}

	sess.SetViewport(req.Width, req.Height, req.ScrollX, req.ScrollY)
	sess.Engine().Resize()
	writeState(w, sess.Engine())
}

// handleKeys feeds modifier-key events to the peek interaction.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)

	var req struct {
		Type string `json:"type"`
		Key  string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Type {
	case "down":
		sess.Engine().KeyDown(req.Key)
	case "up":
		sess.Engine().KeyUp(req.Key)
	default:
		jsonError(w, "type must be down or up", http.StatusBadRequest)
		return
	}
	writeState(w, sess.Engine())
}

func writeState(w http.ResponseWriter, engine *overlay.Engine) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"state": engine.Snapshot().State})
}
