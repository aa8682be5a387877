package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario drives one app through a list of tests. Each test mounts a
// fresh copy of the app and runs its steps in order.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Document is the path of the HTML document holding the root element
	// and the templates. Relative to the scenario file.
	Document string `yaml:"document,omitempty"`

	// HTML is an inline document, used when Document is empty.
	HTML string `yaml:"html,omitempty"`

	// Components lists CUE files with component specs. Relative to the
	// scenario file.
	Components []string `yaml:"components"`

	// Root is the id of the element the app mounts on.
	Root string `yaml:"root"`

	// Data is the initial app data.
	Data map[string]any `yaml:"data,omitempty"`

	// PlainTags overrides the tags that are never treated as components.
	PlainTags []string `yaml:"plain_tags,omitempty"`

	// RunID prefixes the journal run id of every test. Defaults to Name.
	RunID string `yaml:"run_id,omitempty"`

	// Tests are run in order.
	Tests []TestCase `yaml:"tests"`

	// dir is the directory paths are resolved against.
	dir string
}

// TestCase is one `it` of a scenario.
type TestCase struct {
	It       string `yaml:"it"`
	Disabled bool   `yaml:"disabled,omitempty"`
	Steps    []Step `yaml:"steps"`
}

// Step is exactly one action.
type Step struct {
	// Dispatch fires an event at the first element matching a selector.
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// Flush waits for the next refresh window. The value is the ref.
	Flush *string `yaml:"flush,omitempty"`

	// Refresh schedules a rebuild of the whole app.
	Refresh bool `yaml:"refresh,omitempty"`

	// Expect checks the rendered tree or the app data.
	Expect *ExpectStep `yaml:"expect,omitempty"`

	// Snapshot records the app's HTML in the journal under this name.
	Snapshot string `yaml:"snapshot,omitempty"`
}

// Selector picks the first element whose attribute Attr equals Value.
// An empty Attr selects the app root element.
type Selector struct {
	Attr  string `yaml:"attr,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// String renders the selector as attr=value.
func (s Selector) String() string {
	if s.Attr == "" {
		return "(root)"
	}
	return s.Attr + "=" + s.Value
}

// DispatchStep fires Event at the selected element.
type DispatchStep struct {
	Selector `yaml:",inline"`
	Event    string `yaml:"event"`
}

// ExpectStep checks one thing. Exactly one of HTML, Text, Count or Eval
// must be set.
type ExpectStep struct {
	Selector `yaml:",inline"`

	// HTML is the expected inner HTML of the selected element.
	HTML *string `yaml:"html,omitempty"`

	// Text is the expected text content of the selected element.
	Text *string `yaml:"text,omitempty"`

	// Count is the expected number of elements matching the selector.
	Count *int `yaml:"count,omitempty"`

	// Eval is an expression evaluated against the app instance; its
	// result must strictly equal Equals.
	Eval   string `yaml:"eval,omitempty"`
	Equals any    `yaml:"equals,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.dir = filepath.Dir(path)
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// resolve returns path relative to the scenario file.
func (s *Scenario) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Document == "" && s.HTML == "" {
		return fmt.Errorf("document or html is required")
	}
	if s.Document != "" && s.HTML != "" {
		return fmt.Errorf("document and html are mutually exclusive")
	}
	if s.Root == "" {
		return fmt.Errorf("root is required")
	}
	if len(s.Tests) == 0 {
		return fmt.Errorf("tests list is required and must be non-empty")
	}

	if s.Document != "" {
		if _, err := os.Stat(s.resolve(s.Document)); os.IsNotExist(err) {
			return fmt.Errorf("document not found: %s", s.Document)
		}
	}
	for _, c := range s.Components {
		if _, err := os.Stat(s.resolve(c)); os.IsNotExist(err) {
			return fmt.Errorf("component file not found: %s", c)
		}
	}

	for i, tc := range s.Tests {
		if tc.It == "" {
			return fmt.Errorf("tests[%d]: it is required", i)
		}
		for j, step := range tc.Steps {
			if err := validateStep(step); err != nil {
				return fmt.Errorf("tests[%d].steps[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func validateStep(step Step) error {
	n := 0
	if step.Dispatch != nil {
		n++
		if step.Dispatch.Event == "" {
			return fmt.Errorf("dispatch: event is required")
		}
	}
	if step.Flush != nil {
		n++
	}
	if step.Refresh {
		n++
	}
	if step.Snapshot != "" {
		n++
	}
	if step.Expect != nil {
		n++
		if err := validateExpect(step.Expect); err != nil {
			return err
		}
	}
	if n != 1 {
		return fmt.Errorf("step must have exactly one of dispatch, flush, refresh, expect, snapshot (has %d)", n)
	}
	return nil
}

func validateExpect(e *ExpectStep) error {
	n := 0
	for _, set := range []bool{e.HTML != nil, e.Text != nil, e.Count != nil, e.Eval != ""} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("expect: exactly one of html, text, count, eval is required")
	}
	if e.Count != nil && e.Attr == "" {
		return fmt.Errorf("expect: count needs an attr selector")
	}
	return nil
}
