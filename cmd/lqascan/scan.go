package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/l10nmonster/lqascan/internal/htmldom"
	"github.com/l10nmonster/lqascan/internal/overlay"
	"github.com/l10nmonster/lqascan/internal/report"
	"github.com/l10nmonster/lqascan/internal/visibility"
	"github.com/l10nmonster/lqascan/internal/walker"
)

var (
	scanViewportW  float64
	scanViewportH  float64
	scanScrollX    float64
	scanScrollY    float64
	scanOutPath    string
	scanReportPath string
	scanKeepOpen   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Extract marked segments from an instrumented HTML document",
	Long: `Scan lays the document out against a synthetic viewport, walks its text for
marker pairs, and writes the extracted segments as JSON. With --report it
also renders a PDF showing each segment's highlight rectangle.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Float64Var(&scanViewportW, "viewport-width", 1280, "Viewport width in pixels")
	scanCmd.Flags().Float64Var(&scanViewportH, "viewport-height", 800, "Viewport height in pixels")
	scanCmd.Flags().Float64Var(&scanScrollX, "scroll-x", 0, "Horizontal scroll offset")
	scanCmd.Flags().Float64Var(&scanScrollY, "scroll-y", 0, "Vertical scroll offset")
	scanCmd.Flags().StringVar(&scanOutPath, "out", "", "Segments JSON output (default: stdout)")
	scanCmd.Flags().StringVar(&scanReportPath, "report", "", "Also write a PDF review report")
	scanCmd.Flags().BoolVar(&scanKeepOpen, "keep-unterminated", false, "Emit a segment whose end marker is missing")
}

func runScan(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	doc, err := htmldom.Parse(bytes.NewReader(src), htmldom.Config{
		ViewportWidth:  scanViewportW,
		ViewportHeight: scanViewportH,
	})
	if err != nil {
		return err
	}
	doc.SetScroll(scanScrollX, scanScrollY)

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	oracle := visibility.New(doc, visibility.DefaultConfig())
	w := walker.New(doc, oracle, walker.Config{KeepUnterminated: scanKeepOpen}, log)

	result, err := w.Extract()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := writeOutput(scanOutPath, append(data, '\n')); err != nil {
		return err
	}

	if scanReportPath != "" {
		highlights := make([]overlay.Highlight, len(result.TextElements))
		for i, seg := range result.TextElements {
			highlights[i] = overlay.Highlight{Segment: seg}
		}
		f, err := os.Create(scanReportPath)
		if err != nil {
			return err
		}
		if err := writeReport(f, args[0], doc, highlights); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

func writeReport(w io.Writer, title string, doc *htmldom.Document, highlights []overlay.Highlight) error {
	return report.Write(w, title, doc.Viewport(), highlights)
}
