package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/catalog-reconcile/internal/monitoring"
)

var healthWatch bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check run history against alert thresholds",
	Long:  "Collects failure rate, quarantine and discrepancy counts over the lookback window and sends alerts to the configured webhook. With --watch it repeats every check interval until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mc := cfg.Monitoring
		checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(mc), mc)
		if healthWatch {
			checker.Run(ctx)
			return nil
		}

		report, err := checker.Check(ctx)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, report)
	},
}

func init() {
	healthCmd.Flags().BoolVar(&healthWatch, "watch", false, "keep checking every monitoring.check_interval_secs")
	rootCmd.AddCommand(healthCmd)
}
