package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/l10nmonster/lqascan/internal/config"
	"github.com/l10nmonster/lqascan/internal/marker"
	"github.com/l10nmonster/lqascan/internal/overlay"
	"github.com/l10nmonster/lqascan/internal/session"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:         apiKey,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		ClipThreshold:  0.5,
		CornerInset:    2,
		ResizeDebounce: 20 * time.Millisecond,
		PeekKey:        "Alt",
		MaxUploadBytes: 1 << 20,
	}
	return NewServer(session.NewStore(time.Hour), slog.New(slog.DiscardHandler), cfg)
}

type request struct {
	method      string
	path        string
	body        string
	contentType string
	auth        string
}

func do(t *testing.T, srv *Server, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if req.body != "" {
		body = bytes.NewReader([]byte(req.body))
	} else {
		body = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	if req.auth != "" {
		r.Header.Set("Authorization", req.auth)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func markedHTML(t *testing.T, texts ...string) string {
	t.Helper()
	var sb strings.Builder
	for i, text := range texts {
		wrapped, err := marker.Wrap(text, map[string]any{"id": i})
		if err != nil {
			t.Fatalf("Wrap failed: %v", err)
		}
		sb.WriteString("<p>" + wrapped + "</p>")
	}
	return sb.String()
}

func createPage(t *testing.T, srv *Server, body string) string {
	t.Helper()
	w := do(t, srv, request{method: "POST", path: "/api/pages", body: body})
	if w.Code != http.StatusCreated {
		t.Fatalf("create page: status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		PageID string `json:"page_id"`
	}
	decodeBody(t, w, &resp)
	if resp.PageID == "" {
		t.Fatal("create page: empty page_id")
	}
	return resp.PageID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "")
	w := do(t, srv, request{method: "GET", path: "/health"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreatePageAndExtract(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "hello"))

	w := do(t, srv, request{method: "POST", path: "/api/pages/" + id + "/extract"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		TextElements []map[string]any `json:"textElements"`
	}
	decodeBody(t, w, &resp)
	if len(resp.TextElements) != 1 {
		t.Fatalf("got %d segments, want 1", len(resp.TextElements))
	}
	seg := resp.TextElements[0]
	if seg["text"] != "hello" {
		t.Errorf("text = %v, want hello", seg["text"])
	}
	if seg["id"] != float64(0) {
		t.Errorf("id = %v, want flattened metadata value 0", seg["id"])
	}
	if _, ok := seg["geometry"]; !ok {
		t.Error("segment missing geometry")
	}
}

func TestCreatePage_EmptyBody(t *testing.T) {
	srv := newTestServer(t, "")
	w := do(t, srv, request{method: "POST", path: "/api/pages", body: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreatePage_Markdown(t *testing.T) {
	srv := newTestServer(t, "")
	wrapped, err := marker.Wrap("hello from markdown", map[string]any{"id": "md"})
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	w := do(t, srv, request{
		method:      "POST",
		path:        "/api/pages",
		body:        "# Title\n\n" + wrapped + "\n",
		contentType: "text/markdown",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		PageID string `json:"page_id"`
	}
	decodeBody(t, w, &resp)

	ew := do(t, srv, request{method: "POST", path: "/api/pages/" + resp.PageID + "/extract"})
	var extracted struct {
		TextElements []map[string]any `json:"textElements"`
	}
	decodeBody(t, ew, &extracted)
	if len(extracted.TextElements) != 1 {
		t.Fatalf("got %d segments, want 1 from rendered markdown", len(extracted.TextElements))
	}
	if got := extracted.TextElements[0]["text"]; got != "hello from markdown" {
		t.Errorf("text = %v", got)
	}
}

func TestUnknownPage(t *testing.T) {
	srv := newTestServer(t, "")
	w := do(t, srv, request{method: "POST", path: "/api/pages/01ARZ3NDEKTSV4RRFFQ69G5FAV/extract"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["error"] != "unknown page" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestDeletePage(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "x"))

	w := do(t, srv, request{method: "DELETE", path: "/api/pages/" + id})
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	w = do(t, srv, request{method: "DELETE", path: "/api/pages/" + id})
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestReplaceContent(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "one"))

	w := do(t, srv, request{method: "PUT", path: "/api/pages/" + id + "/content",
		body: markedHTML(t, "one", "two")})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	ew := do(t, srv, request{method: "POST", path: "/api/pages/" + id + "/extract"})
	var extracted struct {
		TextElements []map[string]any `json:"textElements"`
	}
	decodeBody(t, ew, &extracted)
	if len(extracted.TextElements) != 2 {
		t.Errorf("got %d segments, want 2 after content replacement", len(extracted.TextElements))
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "secret")

	if w := do(t, srv, request{method: "GET", path: "/health"}); w.Code != http.StatusOK {
		t.Errorf("health must not require auth, got %d", w.Code)
	}

	w := do(t, srv, request{method: "POST", path: "/api/pages", body: "<p>x</p>"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d, want 401", w.Code)
	}
	w = do(t, srv, request{method: "POST", path: "/api/pages", body: "<p>x</p>",
		auth: "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}
	w = do(t, srv, request{method: "POST", path: "/api/pages", body: "<p>x</p>",
		auth: "Bearer secret"})
	if w.Code != http.StatusCreated {
		t.Errorf("valid key: status = %d, want 201", w.Code)
	}
}

func TestOverlayLifecycle(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "hello"))
	base := "/api/pages/" + id

	// Extracted segments round-trip straight into the show command.
	ew := do(t, srv, request{method: "POST", path: base + "/extract"})
	var extracted struct {
		TextElements []overlay.Highlight `json:"textElements"`
	}
	decodeBody(t, ew, &extracted)
	extracted.TextElements[0].Match = overlay.Matched

	showReq, err := json.Marshal(map[string]any{
		"enabled":  true,
		"segments": extracted.TextElements,
	})
	if err != nil {
		t.Fatalf("marshal show request: %v", err)
	}
	w := do(t, srv, request{method: "POST", path: base + "/overlay/show", body: string(showReq)})
	var state struct {
		State string `json:"state"`
	}
	decodeBody(t, w, &state)
	if state.State != "visible" {
		t.Fatalf("state after show = %s, want visible", state.State)
	}

	w = do(t, srv, request{method: "GET", path: base + "/overlay"})
	var status struct {
		Overlay overlay.Snapshot      `json:"overlay"`
		Layer   overlay.LayerSnapshot `json:"layer"`
	}
	decodeBody(t, w, &status)
	if status.Overlay.State != overlay.StateVisible {
		t.Errorf("overlay state = %s", status.Overlay.State)
	}
	if !status.Layer.Visible || len(status.Layer.Boxes) != 1 {
		t.Errorf("layer = %+v, want visible with 1 box", status.Layer)
	}
	if status.Layer.Boxes[0].Color != "#43a047" {
		t.Errorf("box color = %s, want the matched color", status.Layer.Boxes[0].Color)
	}

	w = do(t, srv, request{method: "POST", path: base + "/overlay/hide"})
	var hid struct {
		WasVisible bool `json:"wasVisible"`
	}
	decodeBody(t, w, &hid)
	if !hid.WasVisible {
		t.Error("wasVisible = false, want true")
	}

	w = do(t, srv, request{method: "POST", path: base + "/overlay/restore"})
	decodeBody(t, w, &state)
	if state.State != "visible" {
		t.Errorf("state after restore = %s, want visible", state.State)
	}

	w = do(t, srv, request{method: "POST", path: base + "/overlay/remove"})
	decodeBody(t, w, &state)
	if state.State != "hidden" {
		t.Errorf("state after remove = %s, want hidden", state.State)
	}
}

func TestOverlayShow_DisabledRemoves(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "hello"))

	w := do(t, srv, request{method: "POST", path: "/api/pages/" + id + "/overlay/show",
		body: `{"enabled":false,"segments":[]}`})
	var state struct {
		State string `json:"state"`
	}
	decodeBody(t, w, &state)
	if state.State != "hidden" {
		t.Errorf("state = %s, want hidden", state.State)
	}
}

// A structural content change between show and the debounced viewport
// reconciliation disables the overlay; the status endpoint must carry the
// reason as a first-class field.
func TestOverlayStatus_ReportsDisable(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "hello"))
	base := "/api/pages/" + id

	ew := do(t, srv, request{method: "POST", path: base + "/extract"})
	var extracted struct {
		TextElements []overlay.Highlight `json:"textElements"`
	}
	decodeBody(t, ew, &extracted)
	showReq, _ := json.Marshal(map[string]any{"enabled": true, "segments": extracted.TextElements})
	do(t, srv, request{method: "POST", path: base + "/overlay/show", body: string(showReq)})

	do(t, srv, request{method: "PUT", path: base + "/content", body: markedHTML(t, "one", "two")})
	do(t, srv, request{method: "POST", path: base + "/viewport",
		body: `{"width":1024,"height":768}`})

	var status struct {
		Overlay        overlay.Snapshot `json:"overlay"`
		DisabledReason string           `json:"disabledReason"`
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := do(t, srv, request{method: "GET", path: base + "/overlay"})
		decodeBody(t, w, &status)
		if status.Overlay.Disables > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("overlay never disabled after the structural change")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status.Overlay.State != overlay.StateHidden {
		t.Errorf("state = %s, want hidden", status.Overlay.State)
	}
	if !strings.Contains(status.DisabledReason, "segment count changed") {
		t.Errorf("disabledReason = %q, want a segment count mismatch", status.DisabledReason)
	}
}

func TestViewport(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "hello"))
	path := "/api/pages/" + id + "/viewport"

	w := do(t, srv, request{method: "POST", path: path,
		body: `{"width":1024,"height":768,"scroll_x":0,"scroll_y":50}`})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = do(t, srv, request{method: "POST", path: path, body: `{"width":0,"height":768}`})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero width: status = %d, want 400", w.Code)
	}
}

func TestKeys(t *testing.T) {
	srv := newTestServer(t, "")
	id := createPage(t, srv, markedHTML(t, "hello"))
	base := "/api/pages/" + id

	ew := do(t, srv, request{method: "POST", path: base + "/extract"})
	var extracted struct {
		TextElements []overlay.Highlight `json:"textElements"`
	}
	decodeBody(t, ew, &extracted)
	showReq, _ := json.Marshal(map[string]any{"enabled": true, "segments": extracted.TextElements})
	do(t, srv, request{method: "POST", path: base + "/overlay/show", body: string(showReq)})

	var state struct {
		State string `json:"state"`
	}
	w := do(t, srv, request{method: "POST", path: base + "/keys", body: `{"type":"down","key":"Alt"}`})
	decodeBody(t, w, &state)
	if state.State != "peek-hidden" {
		t.Errorf("state after keydown = %s, want peek-hidden", state.State)
	}

	w = do(t, srv, request{method: "POST", path: base + "/keys", body: `{"type":"up","key":"Alt"}`})
	decodeBody(t, w, &state)
	if state.State != "visible" {
		t.Errorf("state after keyup = %s, want visible", state.State)
	}

	w = do(t, srv, request{method: "POST", path: base + "/keys", body: `{"type":"press","key":"Alt"}`})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad type: status = %d, want 400", w.Code)
	}
}
