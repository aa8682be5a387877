package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/keywords/internal/value"
)

// GoldenDir holds golden files, relative to the test's package.
const GoldenDir = "testdata/golden"

// toCanonicalMap converts a result to plain maps so value.MarshalCanonical
// can serialise it deterministically.
func (r *ScenarioResult) toCanonicalMap() map[string]any {
	passed := make([]any, len(r.Passed))
	for i, p := range r.Passed {
		passed[i] = p
	}
	errs := make([]any, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}

	snaps := make([]any, len(r.Snapshots))
	for i, s := range r.Snapshots {
		snaps[i] = map[string]any{
			"run_id": s.RunID,
			"seq":    s.Seq,
			"name":   s.Name,
			"html":   s.HTML,
			"digest": s.Digest,
		}
	}

	entries := make([]any, len(r.Entries))
	for i, e := range r.Entries {
		m := map[string]any{
			"run_id": e.RunID,
			"seq":    e.Seq,
			"kind":   e.Kind,
		}
		for k, v := range map[string]string{
			"component":   e.Component,
			"template_id": e.TemplateID,
			"ref":         e.Ref,
			"target":      e.Target,
			"event":       e.Event,
		} {
			if v != "" {
				m[k] = v
			}
		}
		if e.Kind == "window" {
			m["window"] = e.Window
			m["tasks"] = e.Tasks
			m["failed"] = e.Failed
		}
		entries[i] = m
	}

	return map[string]any{
		"scenario":    r.Name,
		"error_count": r.ErrorCount,
		"passed":      passed,
		"errors":      errs,
		"snapshots":   snaps,
		"entries":     entries,
	}
}

// MarshalGolden serialises a result the way golden files store it.
func MarshalGolden(r *ScenarioResult) ([]byte, error) {
	return value.MarshalCanonical(r.toCanonicalMap())
}

// RunWithGolden runs a scenario and compares its journal against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario, opts ...RunOption) (*ScenarioResult, error) {
	t.Helper()

	result, err := RunScenario(sc, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, sc.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *ScenarioResult) error {
	t.Helper()

	out, err := MarshalGolden(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, out)
	return nil
}
