package instrument

import (
	"bytes"
	"strings"
	"testing"

	"github.com/l10nmonster/lqascan/internal/htmldom"
	"github.com/l10nmonster/lqascan/internal/marker"
	"github.com/l10nmonster/lqascan/internal/visibility"
	"github.com/l10nmonster/lqascan/internal/walker"
)

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML([]byte("# Title\n\nSome body text.\n"))
	if err != nil {
		t.Fatalf("MarkdownToHTML failed: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "<h1>Title</h1>") {
		t.Errorf("output missing heading: %s", html)
	}
	if !strings.Contains(html, "<p>Some body text.</p>") {
		t.Errorf("output missing paragraph: %s", html)
	}
}

func TestInjectMarkers_WrapsMatchedElements(t *testing.T) {
	src := []byte(`<p id="a">hello</p><p>other</p>`)
	out, err := InjectMarkers(src, []Rule{
		{Selector: "#a", Metadata: map[string]any{"sid": "s1"}},
	})
	if err != nil {
		t.Fatalf("InjectMarkers failed: %v", err)
	}

	html := string(out)
	if got := strings.Count(html, string(marker.Start)); got != 1 {
		t.Errorf("got %d start markers, want 1: only the matched element is wrapped", got)
	}
	if !strings.Contains(html, string(marker.End)) {
		t.Error("output missing end marker")
	}
	if !strings.Contains(html, "hello") || !strings.Contains(html, "other") {
		t.Errorf("visible text must survive injection: %s", html)
	}
}

func TestInjectMarkers_BadMetadata(t *testing.T) {
	_, err := InjectMarkers([]byte("<p>x</p>"), []Rule{
		{Selector: "p", Metadata: map[string]any{"bad": make(chan int)}},
	})
	if err == nil {
		t.Fatal("expected an error for unmarshalable metadata")
	}
	if !strings.Contains(err.Error(), `rule "p"`) {
		t.Errorf("error %q does not name the failing rule", err)
	}
}

// The producer and the scanner must agree: markers injected here come back
// out of a walker extraction with the same metadata.
func TestInjectMarkers_RoundTripThroughWalker(t *testing.T) {
	html, err := MarkdownToHTML([]byte("A plain paragraph.\n"))
	if err != nil {
		t.Fatalf("MarkdownToHTML failed: %v", err)
	}
	instrumented, err := InjectMarkers(html, []Rule{
		{Selector: "p", Metadata: map[string]any{"sid": "md-1"}},
	})
	if err != nil {
		t.Fatalf("InjectMarkers failed: %v", err)
	}

	doc, err := htmldom.Parse(bytes.NewReader(instrumented), htmldom.Config{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	oracle := visibility.New(doc, visibility.DefaultConfig())
	result, err := walker.New(doc, oracle, walker.Config{}, nil).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(result.TextElements) != 1 {
		t.Fatalf("got %d segments, want 1", len(result.TextElements))
	}
	seg := result.TextElements[0]
	if seg.Text != "A plain paragraph." {
		t.Errorf("Text = %q, want the paragraph text", seg.Text)
	}
	if seg.Metadata["sid"] != "md-1" {
		t.Errorf("Metadata[sid] = %v, want md-1", seg.Metadata["sid"])
	}
	if seg.DecodingError != "" {
		t.Errorf("unexpected decoding error %q", seg.DecodingError)
	}
}
