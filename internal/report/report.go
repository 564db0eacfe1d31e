// Package report renders a visual review report of extracted segments: the
// page box with each highlight rectangle drawn in its match color, followed
// by a listing of segment text, metadata and decoding errors.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/l10nmonster/lqascan/internal/dom"
	"github.com/l10nmonster/lqascan/internal/overlay"
)

const pageWidthMM = 180.0 // drawable width on A4 with margins

// Write renders highlights over the given viewport into a PDF.
func Write(w io.Writer, title string, viewport dom.Rect, highlights []overlay.Highlight) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, title, "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, fmt.Sprintf("%d segments, viewport %.0fx%.0f",
		len(highlights), viewport.Width, viewport.Height), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	drawOverview(pdf, viewport, highlights)
	pdf.Ln(6)
	listSegments(pdf, highlights)

	return pdf.Output(w)
}

// drawOverview scales the viewport to the page width and fills one rectangle
// per visible highlight.
func drawOverview(pdf *gofpdf.Fpdf, viewport dom.Rect, highlights []overlay.Highlight) {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return
	}
	scale := pageWidthMM / viewport.Width
	x0, y0 := pdf.GetXY()

	pdf.SetDrawColor(120, 120, 120)
	pdf.Rect(x0, y0, viewport.Width*scale, viewport.Height*scale, "D")

	for _, h := range highlights {
		g := h.Segment.Geometry
		if g.Empty() {
			continue
		}
		r, gr, b := matchRGB(h.Match)
		pdf.SetFillColor(r, gr, b)
		pdf.Rect(x0+g.X*scale, y0+g.Y*scale, g.Width*scale, g.Height*scale, "F")
	}
	pdf.SetY(y0 + viewport.Height*scale)
}

func listSegments(pdf *gofpdf.Fpdf, highlights []overlay.Highlight) {
	for i, h := range highlights {
		r, g, b := matchRGB(h.Match)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(r, g, b)
		label := fmt.Sprintf("#%d", i+1)
		if h.Match != overlay.MatchUnknown {
			label += " [" + string(h.Match) + "]"
		}
		if h.Segment.Geometry.Empty() {
			label += " (not visible)"
		}
		pdf.MultiCell(0, 5, label, "", "L", false)
		pdf.SetTextColor(0, 0, 0)

		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, h.Segment.Text, "", "L", false)

		if len(h.Segment.Metadata) > 0 {
			meta, err := json.Marshal(h.Segment.Metadata)
			if err == nil {
				pdf.SetFont("Courier", "", 8)
				pdf.MultiCell(0, 4, string(meta), "", "L", false)
			}
		}
		if h.Segment.DecodingError != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.SetTextColor(180, 40, 40)
			pdf.MultiCell(0, 4, "decoding error: "+h.Segment.DecodingError, "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(2)
	}
}

func matchRGB(m overlay.Match) (int, int, int) {
	switch m {
	case overlay.Matched:
		return 67, 160, 71
	case overlay.Unmatched:
		return 251, 140, 0
	}
	return 30, 136, 229
}
