package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l10nmonster/lqascan/internal/instrument"
)

var (
	embedMetaPath string
	embedOutPath  string
)

var embedCmd = &cobra.Command{
	Use:   "embed <file>",
	Short: "Inject metadata markers into a markdown or HTML document",
	Long: `Embed renders markdown to HTML (HTML input passes through), then wraps the
text of every element matched by a rule with zero-width markers carrying the
rule's metadata.

The rules file is a JSON array:
  [{"selector": "p", "metadata": {"sid": "intro", "locale": "de"}}]`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().StringVar(&embedMetaPath, "meta", "", "JSON rules file (required)")
	embedCmd.Flags().StringVar(&embedOutPath, "out", "", "Output file (default: stdout)")
	embedCmd.MarkFlagRequired("meta")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if isMarkdownFile(args[0]) {
		src, err = instrument.MarkdownToHTML(src)
		if err != nil {
			return err
		}
	}

	rulesData, err := os.ReadFile(embedMetaPath)
	if err != nil {
		return err
	}
	var rules []instrument.Rule
	if err := json.Unmarshal(rulesData, &rules); err != nil {
		return fmt.Errorf("parsing rules: %w", err)
	}

	out, err := instrument.InjectMarkers(src, rules)
	if err != nil {
		return err
	}
	return writeOutput(embedOutPath, out)
}

func isMarkdownFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "written: %s\n", path)
	return nil
}
