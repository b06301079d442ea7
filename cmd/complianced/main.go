// Package main implements the complianced CLI for compliance document
// synthesis and sanitization.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/complianced/internal/config"
	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/logging"
	"github.com/fyrsmithlabs/complianced/internal/snippet"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// version information, set at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "complianced",
	Short: "Compliance document synthesis and sanitization",
	Long: `complianced corrects documents that fail legal compliance gates by
inserting template snippets and re-validating until the document passes,
stagnates, or exhausts its retry budget.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/complianced/config.yaml)")
	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(sanitizeCmd)
	rootCmd.AddCommand(snippetsCmd)
	rootCmd.AddCommand(gatesCmd)
}

// runtime bundles the pieces every command needs.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *gates.Registry
	catalog  *snippet.Catalog
}

// newRuntime loads config and builds the logger, registry, and catalog.
func newRuntime() (*runtime, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	registry, err := gates.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load gate registry: %w", err)
	}

	catalog, err := snippet.NewCatalog(registry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build snippet catalog: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		catalog:  catalog,
	}, nil
}

// readInput reads the document from a file argument or stdin when the
// argument is absent or "-".
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

// writeOutput writes text to the output path, or stdout when path is empty
// or "-".
func writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := fmt.Print(text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
