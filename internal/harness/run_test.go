package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keywords/internal/journal"
)

const listCUE = `
component: "todo-list": {
	data: title: "todo"
	methods: add: { params: ["item"], body: "this.items = this.items.concat(item); this.items" }
}
`

const listHTML = `<todo-list id="app"></todo-list>` +
	`<template id="todo-list"><p $ref="title">{{title}}</p>` +
	`<ul $ref="items"><li $for="item of items">{{item}}</li></ul>` +
	`<p $ref="add" $event:click="[add(next), $refreshByRef('items')]">add</p></template>`

func listScenario(t *testing.T, tests ...TestCase) *Scenario {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "list.cue"), []byte(listCUE), 0o644))
	return &Scenario{
		Name:       "list",
		HTML:       listHTML,
		Components: []string{"list.cue"},
		Root:       "app",
		Data:       map[string]any{"items": []any{"a"}, "next": "b"},
		PlainTags:  []string{"p", "ul", "li", "template"},
		Tests:      tests,
		dir:        dir,
	}
}

func text(s string) *string { return &s }
func count(n int) *int      { return &n }
func flush() *string        { return text("") }

func TestRunScenario_Counter(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/counter.yaml")
	require.NoError(t, err)

	result, err := RunScenario(sc)
	require.NoError(t, err)

	assert.True(t, result.Pass(), "errors: %v", result.Errors)
	assert.Equal(t, []string{"counter renders the initial count", "counter increments on click"}, result.Passed)
	require.Len(t, result.Snapshots, 3)
	assert.Equal(t, "clicked", result.Snapshots[1].Name)
	assert.Contains(t, result.Snapshots[1].HTML, `<span $ref="count"><span $ref="count">1</span></span>`)
}

func TestRunScenario_ForAndPlainTags(t *testing.T) {
	sc := listScenario(t, TestCase{
		It: "adds an item",
		Steps: []Step{
			{Expect: &ExpectStep{Selector: Selector{Attr: "$ref", Value: "title"}, Text: text("todo")}},
			{Expect: &ExpectStep{Selector: Selector{Attr: "$for", Value: "item of items"}, Count: count(1)}},
			{Dispatch: &DispatchStep{Selector: Selector{Attr: "$ref", Value: "add"}, Event: "click"}},
			{Flush: flush()},
			{Expect: &ExpectStep{Selector: Selector{Attr: "$ref", Value: "items"}, HTML: text(`<ul $ref="items"><li $for="item of items">a</li><li $for="item of items">b</li></ul>`)}},
			{Expect: &ExpectStep{Eval: "items.length", Equals: 2}},
		},
	})

	result, err := RunScenario(sc)
	require.NoError(t, err)
	assert.True(t, result.Pass(), "errors: %v", result.Errors)
}

func TestRunScenario_TestsAreIsolated(t *testing.T) {
	click := Step{Dispatch: &DispatchStep{Selector: Selector{Attr: "$ref", Value: "add"}, Event: "click"}}
	check := Step{Expect: &ExpectStep{Eval: "items.length", Equals: 2}}

	sc := listScenario(t,
		TestCase{It: "first", Steps: []Step{click, check}},
		TestCase{It: "second", Steps: []Step{click, check}},
	)

	result, err := RunScenario(sc)
	require.NoError(t, err)
	assert.True(t, result.Pass(), "each test mounts a fresh app: %v", result.Errors)
}

func TestRunScenario_FailingExpectation(t *testing.T) {
	sc := listScenario(t,
		TestCase{It: "wrong", Steps: []Step{
			{Expect: &ExpectStep{Eval: "title", Equals: "nope"}},
		}},
		TestCase{It: "right", Steps: []Step{
			{Expect: &ExpectStep{Eval: "title", Equals: "todo"}},
		}},
		TestCase{It: "skipped", Disabled: true},
	)

	result, err := RunScenario(sc)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, []string{"list right"}, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `step 0: "todo" does not equal "nope"`)
}

func TestRunScenario_StepErrors(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{
			name:    "dispatch without match",
			step:    Step{Dispatch: &DispatchStep{Selector: Selector{Attr: "$ref", Value: "none"}, Event: "click"}},
			wantErr: "no element matches $ref=none",
		},
		{
			name:    "expect without match",
			step:    Step{Expect: &ExpectStep{Selector: Selector{Attr: "$ref", Value: "none"}, Text: text("x")}},
			wantErr: "no element matches",
		},
		{
			name:    "eval error",
			step:    Step{Expect: &ExpectStep{Eval: "missing.field", Equals: 1}},
			wantErr: "missing",
		},
		{
			name:    "count mismatch",
			step:    Step{Expect: &ExpectStep{Selector: Selector{Attr: "$ref", Value: "title"}, Count: count(2)}},
			wantErr: "1 does not equal 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RunScenario(listScenario(t, TestCase{It: "t", Steps: []Step{tt.step}}))
			require.NoError(t, err)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func TestRunScenario_RefreshFailuresFailTheTest(t *testing.T) {
	sc := listScenario(t, TestCase{It: "bad ref", Steps: []Step{
		{Expect: &ExpectStep{Eval: "$refreshByRef('nowhere')", Equals: nil}},
		{Flush: flush()},
	}})

	result, err := RunScenario(sc)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "nowhere")

	var windows []journal.Entry
	for _, e := range result.Entries {
		if e.Kind == "window" {
			windows = append(windows, e)
		}
	}
	require.Len(t, windows, 1)
	assert.Equal(t, 1, windows[0].Failed)
}

func TestRunScenario_MountFailure(t *testing.T) {
	sc := listScenario(t,
		TestCase{It: "one"},
		TestCase{It: "two"},
	)
	sc.Root = "missing"

	result, err := RunScenario(sc)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ErrorCount, "a failing beforeEach stops the suite")
	assert.Empty(t, result.Passed)
	assert.Contains(t, result.Errors[0], "$beforeEach")
}

func TestRunScenario_RefreshAndSnapshot(t *testing.T) {
	sc := listScenario(t, TestCase{It: "refresh", Steps: []Step{
		{Refresh: true},
		{Flush: flush()},
		{Snapshot: "after"},
	}})

	result, err := RunScenario(sc)
	require.NoError(t, err)
	require.True(t, result.Pass(), "errors: %v", result.Errors)

	kinds := make([]string, len(result.Entries))
	for i, e := range result.Entries {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []string{"mount", "refresh", "window"}, kinds)

	require.Len(t, result.Snapshots, 2)
	assert.Equal(t, "after", result.Snapshots[0].Name)
	assert.Equal(t, "final", result.Snapshots[1].Name)
	assert.NotEqual(t, result.Snapshots[0].Digest, result.Snapshots[1].Digest, "the name is part of the digest")
}

func TestRunScenario_WithStore(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	sc := listScenario(t, TestCase{It: "a"}, TestCase{It: "b"})
	sc.RunID = "custom"

	_, err = RunScenario(sc, WithStore(store))
	require.NoError(t, err)

	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []journal.Run{
		{ID: "custom-1", Label: "list", Root: "app"},
		{ID: "custom-2", Label: "list", Root: "app"},
	}, runs)
}

func TestRunScenario_Deterministic(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/counter.yaml")
	require.NoError(t, err)

	first, err := RunScenario(sc)
	require.NoError(t, err)
	second, err := RunScenario(sc)
	require.NoError(t, err)

	a, err := MarshalGolden(first)
	require.NoError(t, err)
	b, err := MarshalGolden(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEngineFlusher_NoApp(t *testing.T) {
	f := &engineFlusher{}
	assert.Error(t, f.Flush(""))
}
