// Package cli implements the salescope command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/salescope/internal/store"
)

// RootOptions holds global flags shared by all subcommands.
type RootOptions struct {
	Format  string
	Verbose bool
	DBPath  string
}

// NewRootCommand creates the root salescope command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "salescope",
		Short: "Retail sales analytics over a local database",
		Long: `salescope answers grouped sales questions against a local retail
database: pick dimensions (product, shop, supplier, time buckets),
pick metrics (turnover, income, quantities), and optionally compare
against a previous period to get absolute and percent differences.

Data is loaded from CSV exports described by a dataset manifest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q (want text or json)", opts.Format))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose diagnostic output")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "salescope.db", "Path to the SQLite database file")

	cmd.AddCommand(
		NewQueryCommand(opts),
		NewValidateCommand(opts),
		NewLoadCommand(opts),
		NewCatalogCommand(opts),
	)

	return cmd
}

func openStore(opts *RootOptions) (*store.Store, error) {
	slog.Debug("opening database", "path", opts.DBPath)
	return store.Open(opts.DBPath)
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
