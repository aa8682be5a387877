package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationIssue is one problem found in a component spec.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Components []string          `json:"components,omitempty"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <components-dir>",
		Short: "Validate component specs",
		Long: `Validate the CUE component specs in a directory.

Checks tag names, template ids, parameters, data and method bodies
without mounting anything. Every problem is reported, not just the first.

Exit codes:
  0 - All components valid
  1 - One or more components invalid
  2 - Command error (missing directory, CUE syntax errors, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, errs := LoadComponents(dir, LoadModeCollectAll)
	if result == nil {
		return loadFailure(f, errs)
	}
	f.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	names := make([]string, 0, len(result.Specs))
	for _, spec := range result.Specs {
		f.VerboseLog("Validated component: %s", spec.Name)
		names = append(names, spec.Name)
	}

	if len(errs) > 0 {
		return outputValidationErrors(f, names, toIssues(errs))
	}

	if f.JSON() {
		return f.Success(ValidationResult{Valid: true, Components: names})
	}
	fmt.Fprintf(f.Writer, "✓ All components valid (%d)\n", len(names))
	return nil
}

func toIssues(errs []error) []ValidationIssue {
	issues := make([]ValidationIssue, 0, len(errs))
	for _, err := range errs {
		var le *LoadError
		if !errors.As(err, &le) {
			le = convertCompileError(err)
		}
		issues = append(issues, ValidationIssue{
			Code:    le.Code,
			Field:   le.Field,
			Message: le.Message,
			Line:    le.Line(),
		})
	}
	return issues
}

func outputValidationErrors(f *OutputFormatter, names []string, issues []ValidationIssue) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if f.JSON() {
		if err := f.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Components: names, Errors: issues},
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, is := range issues {
		if is.Line > 0 {
			fmt.Fprintf(f.Writer, "line %d\n", is.Line)
		}
		if is.Field != "" {
			fmt.Fprintf(f.Writer, "  %s: %s: %s\n\n", is.Code, is.Field, is.Message)
		} else {
			fmt.Fprintf(f.Writer, "  %s: %s\n\n", is.Code, is.Message)
		}
	}
	return exitErr
}
