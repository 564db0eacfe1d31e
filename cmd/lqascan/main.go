// Command lqascan is the offline tooling around the marker format: embed
// injects metadata markers into a document, scan extracts the marked
// segments from an instrumented document.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lqascan",
	Short: "Embed and extract hidden text-segment metadata",
	Long: `lqascan works with text fragments that carry hidden structured metadata
encoded as zero-width Unicode markers.

  lqascan embed page.md --meta rules.json --out page.html
  lqascan scan page.html --report review.pdf`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
