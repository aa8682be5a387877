package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Counter(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/counter.yaml")
	require.NoError(t, err)

	assert.Equal(t, "counter", sc.Name)
	assert.Equal(t, "app", sc.Root)
	assert.Equal(t, []string{"counter.cue"}, sc.Components)
	require.Len(t, sc.Tests, 2)

	steps := sc.Tests[1].Steps
	require.Len(t, steps, 5)
	require.NotNil(t, steps[0].Dispatch)
	assert.Equal(t, Selector{Attr: "$ref", Value: "btn"}, steps[0].Dispatch.Selector)
	assert.Equal(t, "click", steps[0].Dispatch.Event)
	require.NotNil(t, steps[1].Flush)
	assert.Equal(t, "", *steps[1].Flush)
	require.NotNil(t, steps[3].Expect)
	assert.Equal(t, "count", steps[3].Expect.Eval)
	assert.Equal(t, 1, steps[3].Expect.Equals)
	assert.Equal(t, "clicked", steps[4].Snapshot)

	assert.Equal(t, filepath.Join("testdata", "scenarios", "counter.html"), sc.resolve(sc.Document))
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\nhtml: <p></p>\nroot: r\ntests: [{it: a}]\nsteps: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "html: <p></p>\nroot: r\ntests: [{it: a}]\n",
			wantErr: "name is required",
		},
		{
			name:    "no document",
			content: "name: x\nroot: r\ntests: [{it: a}]\n",
			wantErr: "document or html is required",
		},
		{
			name:    "both documents",
			content: "name: x\ndocument: a.html\nhtml: <p></p>\nroot: r\ntests: [{it: a}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing root",
			content: "name: x\nhtml: <p></p>\ntests: [{it: a}]\n",
			wantErr: "root is required",
		},
		{
			name:    "no tests",
			content: "name: x\nhtml: <p></p>\nroot: r\n",
			wantErr: "tests list is required",
		},
		{
			name:    "missing document file",
			content: "name: x\ndocument: nope.html\nroot: r\ntests: [{it: a}]\n",
			wantErr: "document not found",
		},
		{
			name:    "missing component file",
			content: "name: x\nhtml: <p></p>\ncomponents: [nope.cue]\nroot: r\ntests: [{it: a}]\n",
			wantErr: "component file not found",
		},
		{
			name:    "test without it",
			content: "name: x\nhtml: <p></p>\nroot: r\ntests: [{steps: []}]\n",
			wantErr: "tests[0]: it is required",
		},
		{
			name:    "step with two actions",
			content: "name: x\nhtml: <p></p>\nroot: r\ntests: [{it: a, steps: [{flush: '', snapshot: s}]}]\n",
			wantErr: "exactly one of dispatch",
		},
		{
			name:    "empty step",
			content: "name: x\nhtml: <p></p>\nroot: r\ntests: [{it: a, steps: [{}]}]\n",
			wantErr: "has 0",
		},
		{
			name:    "dispatch without event",
			content: "name: x\nhtml: <p></p>\nroot: r\ntests: [{it: a, steps: [{dispatch: {attr: id, value: b}}]}]\n",
			wantErr: "event is required",
		},
		{
			name:    "expect with two checks",
			content: "name: x\nhtml: <p></p>\nroot: r\ntests: [{it: a, steps: [{expect: {text: a, html: b}}]}]\n",
			wantErr: "exactly one of html, text",
		},
		{
			name:    "count without selector",
			content: "name: x\nhtml: <p></p>\nroot: r\ntests: [{it: a, steps: [{expect: {count: 1}}]}]\n",
			wantErr: "count needs an attr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, files, filepath.Join("testdata", "scenarios", "counter.yaml"))
	for _, f := range files {
		assert.NotEqual(t, ".cue", filepath.Ext(f))
	}
}

func TestSelector_String(t *testing.T) {
	assert.Equal(t, "(root)", Selector{}.String())
	assert.Equal(t, "$ref=btn", Selector{Attr: "$ref", Value: "btn"}.String())
}
