package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/salescope/internal/engine"
	"github.com/roach88/salescope/internal/request"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	SearchField string
	SearchValue string
	OrderBy     string
	Totals      bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <request.json>",
		Short: "Run an analytics request against the database",
		Long: `Run an analytics request against the database.

The request file describes dimensions, metrics and date ranges:

  {
    "dimensions": [{"name": "product"}, {"name": "day"}],
    "metrics": [{"name": "turnover"}, {"name": "turnover_diff_percent"}],
    "date_range": ["2023-03-01", "2023-03-31"],
    "prev_date_range": ["2023-02-01", "2023-02-28"]
  }

Example:
  salescope query --db sales.db request.json
  salescope query --db sales.db request.json --order-by -turnover --totals`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SearchField, "search-field", "", "display-name column to search in")
	cmd.Flags().StringVar(&opts.SearchValue, "search", "", "substring to keep rows by (requires --search-field)")
	cmd.Flags().StringVar(&opts.OrderBy, "order-by", "", "metric column to sort by, prefix with - for descending")
	cmd.Flags().BoolVar(&opts.Totals, "totals", false, "append a totals row")

	return cmd
}

func runQuery(opts *QueryOptions, requestPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)
	formatter := newFormatter(cmd, opts.RootOptions)

	req, err := readRequest(requestPath)
	if err != nil {
		_ = formatter.Error(ErrCodeBadRequest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read request", err)
	}

	if (opts.SearchField == "") != (opts.SearchValue == "") {
		msg := "--search-field and --search must be given together"
		_ = formatter.Error(ErrCodeBadRequest, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer closeStore(st)

	eng := engine.New(st)
	result, err := eng.Run(context.Background(), *req, engine.Options{
		SearchField: opts.SearchField,
		SearchValue: opts.SearchValue,
		OrderBy:     opts.OrderBy,
		Totals:      opts.Totals,
	})
	if err != nil {
		return reportRunError(formatter, err)
	}

	formatter.VerboseLog("run %s: %d rows, %d columns", result.Token, len(result.Rows), len(result.Columns))

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	renderTable(cmd, result)
	return nil
}

// reportRunError maps engine failures onto CLI output and exit codes.
// Validation problems are a request failure (exit 1); anything else is
// an internal fault.
func reportRunError(formatter *OutputFormatter, err error) error {
	if verr, ok := request.IsValidationError(err); ok {
		_ = formatter.Error(ErrCodeBadRequest, "request validation failed", verr.Violations)
		return WrapExitError(ExitFailure, "invalid request", err)
	}
	if ierr, ok := engine.IsInternalError(err); ok {
		slog.Error("internal fault", "code", ierr.Code, "token", ierr.Token, "error", err)
		_ = formatter.Error(ErrCodeInternalFault, ierr.Message, map[string]string{"token": ierr.Token})
		return WrapExitError(ExitFailure, "query failed", err)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitFailure, "query failed", err)
}

func readRequest(path string) (*request.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req request.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &req, nil
}

// renderTable prints the result as aligned text columns.
func renderTable(cmd *cobra.Command, result *engine.Result) {
	w := cmd.OutOrStdout()

	widths := make([]int, len(result.Columns))
	for i, col := range result.Columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(result.Rows))
	for r, row := range result.Rows {
		cells[r] = make([]string, len(result.Columns))
		for i, col := range result.Columns {
			s := formatCell(row[col])
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printRow := func(vals []string) {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v + strings.Repeat(" ", widths[i]-len(v))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(result.Columns)
	for _, row := range cells {
		printRow(row)
	}
	fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
