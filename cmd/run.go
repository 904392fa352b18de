package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/config"
)

var runOffline bool

var runCmd = &cobra.Command{
	Use:   "run [source]",
	Short: "Run the full pipeline for one source",
	Long:  "Ingests, validates, resolves product identities, synthesizes opening balances, values stock FIFO and reconciles the named source (default " + config.DefaultSource + ").",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		source := sourceArg(args)

		a, err := initApp(ctx, runOffline)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.pipeline.Run(ctx, source)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("reconciliation complete",
			zap.String("source", source),
			zap.String("run_id", result.RunID),
			zap.Int("products", result.Products),
			zap.Int("discrepancies", result.Summary.Discrepancies),
		)
		return writeJSON(os.Stdout, result)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [source]",
	Short: "Validate staged files and quarantine failures",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		source := sourceArg(args)
		src, err := cfg.Source(source)
		if err != nil {
			return err
		}

		a, err := initApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		ds, err := a.pipeline.Validate(ctx, src)
		if ds == nil {
			return err
		}
		if werr := writeJSON(os.Stdout, map[string]any{
			"accepted":    ds.Accepted,
			"quarantined": ds.Quarantined,
		}); werr != nil {
			return werr
		}
		return err
	},
}

func sourceArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return config.DefaultSource
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "skip the remote listing and use staged files only")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
