package harness

import "fmt"

// Failure is a failed test or hook. Description is the joined describe
// path plus the test name, or the hook name for hooks.
type Failure struct {
	Description string
	Err         error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Description, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of running a suite.
type Result struct {
	// ErrorCount is the number of failures across all suites.
	ErrorCount int `json:"error_count"`

	// Passed lists the descriptions of tests that passed, in run order.
	Passed []string `json:"passed"`

	// Failures lists test and hook failures in run order.
	Failures []*Failure `json:"-"`

	// Errors is Failures rendered as strings, for JSON output.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates an empty, passing result.
func NewResult() *Result {
	return &Result{
		Passed: []string{},
		Errors: []string{},
	}
}

// Pass reports whether nothing failed.
func (r *Result) Pass() bool {
	return r.ErrorCount == 0
}

// AddFailure records a failure.
func (r *Result) AddFailure(f *Failure) {
	r.Failures = append(r.Failures, f)
	r.Errors = append(r.Errors, f.Error())
	r.ErrorCount++
}

// AddPass records a passing test.
func (r *Result) AddPass(description string) {
	r.Passed = append(r.Passed, description)
}

// Merge appends other's outcomes to r.
func (r *Result) Merge(other *Result) {
	r.Passed = append(r.Passed, other.Passed...)
	for _, f := range other.Failures {
		r.AddFailure(f)
	}
}
