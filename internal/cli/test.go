package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/keywords/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioReport holds the outcome of a single scenario file.
type ScenarioReport struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Passed []string `json:"passed,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run YAML scenarios",
		Long: `Run every YAML scenario of a directory through the test runner.

Each test of a scenario mounts a fresh app, runs its steps and takes a
final snapshot. When golden/<scenario>.golden exists next to the scenario
file, the recorded journal must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  keywords test ./scenarios
  keywords test ./scenarios --filter "counter*"
  keywords test ./scenarios --update
  keywords test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir), err)
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeScanError, err.Error(), err)
	}

	result := TestResult{Scenarios: make([]ScenarioReport, 0, len(files)), Total: len(files)}
	if len(files) == 0 {
		if f.JSON() {
			return f.Success(result)
		}
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	logger := newLogger(opts.RootOptions, f.GetErrWriter())
	for _, file := range files {
		report := runScenarioFile(file, opts, logger)
		printReport(f, report)
		result.Scenarios = append(result.Scenarios, report)
		if report.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	var exitErr error
	if result.Failed > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)}
		}
		if err := f.Encode(resp); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(f.Writer)
	fmt.Fprintf(f.Writer, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if exitErr == nil {
		fmt.Fprintln(f.Writer, "✓ All scenarios passed")
	}
	return exitErr
}

// findScenarioFiles lists scenario files, keeping those whose base name
// (without extension) matches filter.
func findScenarioFiles(dir, filter string) ([]string, error) {
	all, err := harness.FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return all, nil
	}
	if _, err := filepath.Match(filter, ""); err != nil {
		return nil, fmt.Errorf("invalid filter pattern: %w", err)
	}

	var files []string
	for _, path := range all {
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if ok, _ := filepath.Match(filter, name); ok {
			files = append(files, path)
		}
	}
	return files, nil
}

func runScenarioFile(file string, opts *TestOptions, logger *slog.Logger) ScenarioReport {
	report := ScenarioReport{Name: filepath.Base(file)}

	sc, err := harness.LoadScenario(file)
	if err != nil {
		report.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return report
	}
	report.Name = sc.Name

	res, err := harness.RunScenario(sc, harness.WithRunLogger(logger))
	if err != nil {
		report.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return report
	}
	report.Passed = res.Passed
	report.Errors = append(report.Errors, res.Errors...)

	if err := checkGolden(file, res, opts.Update); err != nil {
		report.Errors = append(report.Errors, err.Error())
	}
	report.Pass = len(report.Errors) == 0
	return report
}

// goldenFilePath returns the golden file next to a scenario file.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// checkGolden compares the journal of res with the scenario's golden file,
// or rewrites it under --update. A missing golden file is not an error.
func checkGolden(scenarioFile string, res *harness.ScenarioResult, update bool) error {
	got, err := harness.MarshalGolden(res)
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}
	path := goldenFilePath(scenarioFile)

	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, got, 0644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(got)) {
		return fmt.Errorf("journal does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

func printReport(f *OutputFormatter, r ScenarioReport) {
	if r.Pass {
		f.Printf("✓ %s (%d test(s))\n", r.Name, len(r.Passed))
		return
	}
	f.Printf("✗ %s\n", r.Name)
	for _, e := range r.Errors {
		f.Printf("  %s\n", e)
	}
}
