package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect or reset the cached remote folder listings",
}

var manifestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached folder listings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initManifest(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := st.ListManifests(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "Manifest is empty.")
			return nil
		}
		formatManifest(os.Stdout, entries)
		return nil
	},
}

var manifestClearCmd = &cobra.Command{
	Use:   "clear [folder-id]",
	Short: "Drop one cached listing, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initManifest(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if len(args) == 1 {
			if err := st.ClearManifest(ctx, args[0]); err != nil {
				return err
			}
			zap.L().Info("manifest entry cleared", zap.String("folder_id", args[0]))
			return nil
		}
		n, err := st.ClearAllManifests(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("manifest cleared", zap.Int("entries", n))
		return nil
	},
}

var manifestRefreshCmd = &cobra.Command{
	Use:   "refresh [source]",
	Short: "Relist every folder of a source, ignoring the cache",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src, err := cfg.Source(sourceArg(args))
		if err != nil {
			return err
		}
		st, err := initManifest(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := initClient(afero.NewOsFs(), st)
		var entries []model.ManifestEntry
		for _, folder := range src.FolderIDs {
			sheets, err := client.Refresh(ctx, folder)
			if err != nil {
				return err
			}
			entries = append(entries, model.ManifestEntry{FolderID: folder, Sheets: sheets})
		}
		formatManifest(os.Stdout, entries)
		return nil
	},
}

// formatManifest writes one line per cached sheet.
func formatManifest(out io.Writer, entries []model.ManifestEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FOLDER\tSHEET\tTABS\tMODIFIED\tSCANNED")
	for _, e := range entries {
		scanned := ""
		if !e.ScannedAt.IsZero() {
			scanned = e.ScannedAt.Format("2006-01-02 15:04")
		}
		for _, s := range e.Sheets {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				e.FolderID,
				s.Name,
				len(s.Tabs),
				s.ModifiedAt.Format("2006-01-02 15:04"),
				scanned,
			)
		}
	}
	_ = w.Flush()
}

func init() {
	manifestCmd.AddCommand(manifestListCmd)
	manifestCmd.AddCommand(manifestClearCmd)
	manifestCmd.AddCommand(manifestRefreshCmd)
	rootCmd.AddCommand(manifestCmd)
}
