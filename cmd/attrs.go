package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/catalog-reconcile/internal/attrs"
	"github.com/sells-group/catalog-reconcile/internal/canon"
)

var attrsRules bool

var attrsCmd = &cobra.Command{
	Use:   "attrs <name>...",
	Short: "Show the canonical form and attributes of product names",
	Args: func(cmd *cobra.Command, args []string) error {
		if attrsRules {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if attrsRules {
			formatRules(os.Stdout, attrs.RuleNames())
			return nil
		}
		c, err := initCanon()
		if err != nil {
			return err
		}
		formatAttrs(os.Stdout, c, args)
		return nil
	},
}

// formatAttrs writes one block per name: canonical form, class,
// attribute pairs and the generated description.
func formatAttrs(out io.Writer, c *canon.Canonicalizer, names []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, name := range names {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		canonical := c.Canonicalize(name)
		set := attrs.Extract(canonical)
		_, _ = fmt.Fprintf(w, "Name:\t%s\n", name)
		_, _ = fmt.Fprintf(w, "Canonical:\t%s\n", canonical)
		_, _ = fmt.Fprintf(w, "Class:\t%s\n", attrs.Classify(canonical))
		for _, p := range set.Pairs {
			_, _ = fmt.Fprintf(w, "  %s:\t%s\n", p.Key, p.Value)
		}
		if set.Description != "" {
			_, _ = fmt.Fprintf(w, "Description:\t%s\n", set.Description)
		}
	}
	_ = w.Flush()
}

// formatRules lists the dimension rules in the order they are tried.
func formatRules(out io.Writer, names []string) {
	for i, n := range names {
		_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, n)
	}
}

func init() {
	attrsCmd.Flags().BoolVar(&attrsRules, "rules", false, "list the dimension rules in priority order")
	rootCmd.AddCommand(attrsCmd)
}
