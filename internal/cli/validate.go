package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/salescope/internal/request"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                `json:"valid"`
	Violations []request.Violation `json:"violations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <request.json>",
		Short: "Validate a request file without running it",
		Long: `Validate an analytics request file without touching the database.

All problems are reported at once: unknown dimensions and metrics,
bad filter operators, missing or inverted date ranges.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, requestPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)
	formatter := newFormatter(cmd, opts)

	req, err := readRequest(requestPath)
	if err != nil {
		_ = formatter.Error(ErrCodeBadRequest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read request", err)
	}

	if _, err := request.Validate(*req); err != nil {
		verr, ok := request.IsValidationError(err)
		if !ok {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, "validation failed", err)
		}
		return outputViolations(formatter, verr.Violations)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(ValidationResult{Valid: true}); err != nil {
			return err
		}
		return nil
	}
	fmt.Fprintln(formatter.Writer, "✓ Request valid")
	return nil
}

func outputViolations(formatter *OutputFormatter, violations []request.Violation) error {
	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeBadRequest, "request validation failed",
			ValidationResult{Valid: false, Violations: violations})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d violation(s)", len(violations)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, v := range violations {
		fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", v.Field, v.Code, v.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d violation(s)", len(violations)))
}
