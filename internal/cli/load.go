package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// LoadResult reports what one load run imported.
type LoadResult struct {
	Dataset string      `json:"dataset"`
	Tables  []TableLoad `json:"tables"`
}

// TableLoad is the per-table row count of a load run.
type TableLoad struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <manifest.cue>",
		Short: "Load CSV data described by a dataset manifest",
		Long: `Load CSV files into the database as described by a CUE manifest:

  dataset: {
      name: "march-2023"
      sources: [
          {table: "shops", file: "shops.csv"},
          {table: "products", file: "products.csv"},
          {table: "receipts", file: "receipts.csv"},
          {table: "cart_items", file: "cart_items.csv"},
      ]
  }

File paths resolve relative to the manifest. After loading, the
category and shop-group hierarchy closures are rebuilt so grouping by
category or shop group sees every descendant.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runLoad(opts *RootOptions, manifestPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)
	formatter := newFormatter(cmd, opts)

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		_ = formatter.Error(ErrCodeBadManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	formatter.VerboseLog("manifest %s: dataset %q, %d source(s)", manifestPath, manifest.Name, len(manifest.Sources))

	st, err := openStore(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer closeStore(st)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := LoadResult{Dataset: manifest.Name}
	for _, src := range manifest.Sources {
		slog.Info("loading table", "table", src.Table, "file", src.File)
		n, err := st.LoadCSV(ctx, src.Table, src.File)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, fmt.Sprintf("loading %s: %v", src.Table, err), nil)
			return WrapExitError(ExitFailure, "load failed", err)
		}
		result.Tables = append(result.Tables, TableLoad{Table: src.Table, Rows: n})
	}

	slog.Info("rebuilding hierarchy closures")
	if err := st.RebuildClosures(ctx); err != nil {
		_ = formatter.Error(ErrCodeDatabase, fmt.Sprintf("rebuilding closures: %v", err), nil)
		return WrapExitError(ExitFailure, "load failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, t := range result.Tables {
		fmt.Fprintf(formatter.Writer, "%s: %d rows\n", t.Table, t.Rows)
	}
	fmt.Fprintf(formatter.Writer, "Dataset %q loaded.\n", result.Dataset)
	return nil
}
