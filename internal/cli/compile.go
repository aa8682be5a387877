package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/keywords/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the parsed component specs.
type CompilationResult struct {
	Components []*compiler.Spec `json:"components"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <components-dir>",
		Short: "Compile CUE component specs",
		Long: `Compile the CUE component specs in a directory and dump them as JSON.

Every method body is parsed, so a successful compile means every
component can be defined on an engine.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, errs := LoadComponents(dir, LoadModeCollectAll)
	if result == nil {
		return loadFailure(f, errs)
	}
	f.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	if len(errs) > 0 {
		return outputCompileErrors(f, errs)
	}

	out := &CompilationResult{Components: result.Specs}
	if opts.Output != "" {
		if err := writeSpecsToFile(out, opts.Output); err != nil {
			return f.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), err)
		}
	}

	if f.JSON() {
		return f.Success(out)
	}

	fmt.Fprintf(f.Writer, "✓ Compiled %d component(s)\n\n", len(out.Components))
	for _, spec := range out.Components {
		tmpl := spec.TemplateID
		if tmpl == "" {
			tmpl = spec.Name
		}
		fmt.Fprintf(f.Writer, "  %s: template %s, %d parameter(s), %d data field(s), %s\n",
			spec.Name, tmpl, len(spec.Parameters), len(spec.Data), methodList(spec))
	}
	if opts.Output != "" {
		fmt.Fprintf(f.Writer, "\nWrote components to %s\n", opts.Output)
	}
	return nil
}

func methodList(spec *compiler.Spec) string {
	if len(spec.Methods) == 0 {
		return "no methods"
	}
	names := make([]string, 0, len(spec.Methods))
	for name := range spec.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("methods %v", names)
}

// outputCompileErrors reports every compile error. Compile errors are
// command errors (exit 2).
func outputCompileErrors(f *OutputFormatter, errs []error) error {
	issues := toIssues(errs)
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if f.JSON() {
		if err := f.Encode(CLIResponse{
			Status: "error",
			Data:   issues,
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(f.Writer, "✗ Compilation failed")
	fmt.Fprintln(f.Writer)
	for _, err := range errs {
		var le *LoadError
		if errors.As(err, &le) && le.Pos.IsValid() {
			fmt.Fprintf(f.Writer, "%s:%d:%d\n", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column())
		}
		fmt.Fprintf(f.Writer, "  %v\n\n", err)
	}
	return exitErr
}

func writeSpecsToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling components: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
