package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var snippetsCmd = &cobra.Command{
	Use:   "snippets",
	Short: "List the snippet catalog",
	Long: `Snippets prints every correction snippet the catalog resolved for the
registered gates, including taxonomy fallbacks and generic placeholders.`,
	Args: cobra.NoArgs,
	RunE: runSnippets,
}

func runSnippets(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSEVERITY\tINSERTION\tPRIORITY\tGENERIC")
	for _, s := range rt.catalog.All() {
		target := string(s.InsertionPoint)
		if s.SectionHeader != "" {
			target += ":" + s.SectionHeader
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", s.Key(), s.Severity, target, s.Priority, s.Generic)
	}
	return w.Flush()
}

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "List the registered rule modules and gates",
	Args:  cobra.NoArgs,
	RunE:  runGates,
}

func runGates(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tGATE\tSEVERITY\tLEGAL SOURCE")
	for _, moduleID := range rt.registry.ModuleIDs() {
		for _, g := range rt.registry.Gates(moduleID) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", moduleID, g.GateID(), g.Severity(), g.LegalSource())
		}
	}
	return w.Flush()
}
