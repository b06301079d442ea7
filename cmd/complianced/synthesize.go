package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/complianced/internal/audit"
	"github.com/fyrsmithlabs/complianced/internal/confidence"
	"github.com/fyrsmithlabs/complianced/internal/conflict"
	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/sanitizer"
	"github.com/fyrsmithlabs/complianced/internal/synthesis"
)

var (
	synthValidationPath string
	synthModules        []string
	synthDocumentType   string
	synthContext        map[string]string
	synthOutputPath     string
	synthJSON           bool
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize [file]",
	Short: "Correct a document until its compliance gates pass",
	Long: `Synthesize runs the correction loop against a document.

The initial validation verdict comes from --validation (a JSON file produced
by an external evaluation engine). Without it, the built-in marker engine
evaluates the document; that engine is a development heuristic, not a legal
evaluation.

Examples:
  # Correct a financial promotion against the FCA module
  complianced synthesize promo.txt --modules fca_uk --document-type financial

  # Use an external engine's verdict and fill template placeholders
  complianced synthesize promo.txt --validation verdict.json \
    --context firm_name="Acme Capital Ltd" --context frn_number=123456

  # Read from stdin, write the corrected text to a file
  cat promo.txt | complianced synthesize - --output corrected.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSynthesize,
}

func init() {
	synthesizeCmd.Flags().StringVar(&synthValidationPath, "validation", "", "JSON file with the initial validation verdict")
	synthesizeCmd.Flags().StringSliceVar(&synthModules, "modules", nil, "rule modules to validate against (default all)")
	synthesizeCmd.Flags().StringVar(&synthDocumentType, "document-type", "", "document type (financial, privacy, tax, nda, employment)")
	synthesizeCmd.Flags().StringToStringVar(&synthContext, "context", nil, "placeholder values as key=value")
	synthesizeCmd.Flags().StringVar(&synthOutputPath, "output", "", "write corrected text to this file (default stdout)")
	synthesizeCmd.Flags().BoolVar(&synthJSON, "json", false, "print the full result as JSON instead of the corrected text")
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	text, err := readInput(args)
	if err != nil {
		return err
	}

	engine, err := gates.NewMarkerEngine(rt.registry, rt.catalog.Markers(), rt.logger)
	if err != nil {
		return fmt.Errorf("failed to build marker engine: %w", err)
	}

	validation, err := loadValidation(cmd, engine, text)
	if err != nil {
		return err
	}

	san, err := sanitizer.New(rt.logger)
	if err != nil {
		return fmt.Errorf("failed to build sanitizer: %w", err)
	}

	var auditLogger audit.Logger = audit.Nop{}
	if rt.cfg.Audit.Enabled {
		auditLogger = audit.NewZapLogger(rt.logger, rt.cfg.Audit.EventsPerSecond)
	}

	svc, err := synthesis.NewService(
		&synthesis.Config{
			MaxRetries:           rt.cfg.Synthesis.MaxRetries,
			MaxHistory:           rt.cfg.Synthesis.MaxHistory,
			ScoreConfidence:      rt.cfg.Synthesis.ScoreConfidence,
			DetectConflicts:      rt.cfg.Synthesis.DetectConflicts,
			AutoResolveConflicts: rt.cfg.Synthesis.AutoResolveConflicts,
			MaxManualActions:     rt.cfg.Synthesis.MaxManualActions,
		},
		engine,
		rt.catalog,
		san,
		confidence.NewScorer(rt.logger),
		conflict.NewResolver(rt.logger),
		auditLogger,
		rt.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to build synthesis service: %w", err)
	}

	result, err := svc.Synthesize(cmd.Context(), &synthesis.Request{
		Text:         text,
		Validation:   validation,
		Context:      mergeContext(rt.cfg.Placeholders, synthContext),
		Modules:      synthModules,
		DocumentType: synthDocumentType,
	})
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	if synthJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if err := writeOutput(synthOutputPath, result.SynthesizedText); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "outcome: %s (%s)\n", result.Outcome, result.Reason)
	fmt.Fprintf(os.Stderr, "iterations: %d, snippets applied: %d, conflicts: %d\n",
		result.Iterations, len(result.SnippetsApplied), len(result.Conflicts))
	if result.NeedsReview && result.Review != nil {
		fmt.Fprintln(os.Stderr, "manual actions:")
		for _, action := range result.Review.SuggestedActions {
			fmt.Fprintf(os.Stderr, "  - %s\n", action)
		}
	}
	if !result.Success {
		os.Exit(1)
	}
	return nil
}

// loadValidation reads the verdict file, or runs the marker engine when no
// file was given.
func loadValidation(cmd *cobra.Command, engine gates.Engine, text string) (gates.ValidationResult, error) {
	if synthValidationPath == "" {
		validation, err := engine.Check(cmd.Context(), text, synthDocumentType, synthModules)
		if err != nil {
			return nil, fmt.Errorf("initial validation failed: %w", err)
		}
		return validation, nil
	}

	data, err := os.ReadFile(synthValidationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read validation file: %w", err)
	}
	var validation gates.ValidationResult
	if err := json.Unmarshal(data, &validation); err != nil {
		return nil, fmt.Errorf("failed to parse validation file: %w", err)
	}
	return validation, nil
}

// mergeContext layers request context over configured placeholder defaults.
func mergeContext(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
