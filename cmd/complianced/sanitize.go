package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/complianced/internal/sanitizer"
)

var sanitizeOutputPath string

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [file]",
	Short: "Strip problematic phrasing from a document",
	Long: `Sanitize replaces absolute claims, superlatives, risk-minimizing
language, and similar problematic phrasing without running the full
correction loop.

Examples:
  # Sanitize a file in place of stdout
  complianced sanitize promo.txt

  # Sanitize from stdin
  cat promo.txt | complianced sanitize -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSanitize,
}

func init() {
	sanitizeCmd.Flags().StringVar(&sanitizeOutputPath, "output", "", "write sanitized text to this file (default stdout)")
}

func runSanitize(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	text, err := readInput(args)
	if err != nil {
		return err
	}

	san, err := sanitizer.New(rt.logger)
	if err != nil {
		return fmt.Errorf("failed to build sanitizer: %w", err)
	}

	// No failing gates means every rule category applies.
	result := san.Sanitize(text, nil)

	if err := writeOutput(sanitizeOutputPath, result.Text); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "replacements: %d, confidence: %.2f\n", len(result.Actions), result.Confidence)
	for _, action := range result.Actions {
		fmt.Fprintf(os.Stderr, "  %s: %q -> %q (x%d)\n", action.Category, action.Original, action.Replacement, action.Count)
	}
	return nil
}
