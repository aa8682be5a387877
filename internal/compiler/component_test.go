package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keywords/internal/expr"
)

func TestParseComponentBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		component: "todo-list": {
			template: "todo-template"
			parameters: ["title", "size"]

			data: {
				count: 2
				ratio: 0.5
				items: ["a", "b"]
				owner: { name: "ada" }
			}

			methods: {
				inc: "this.count += 1"
				add: {
					params: ["n"]
					body: "this.count = this.count + n; this.count"
				}
			}
		}
	`)
	require.NoError(t, v.Err())

	spec, err := ParseComponent(v.LookupPath(cue.ParsePath(`component."todo-list"`)))
	require.NoError(t, err)

	assert.Equal(t, "todo-list", spec.Name)
	assert.Equal(t, "todo-template", spec.TemplateID)
	assert.Equal(t, []string{"title", "size"}, spec.Parameters)
	assert.Equal(t, 2.0, spec.Data["count"], "numbers are normalised to float64")
	assert.Equal(t, 0.5, spec.Data["ratio"])
	assert.Equal(t, []any{"a", "b"}, spec.Data["items"])
	assert.Equal(t, map[string]any{"name": "ada"}, spec.Data["owner"])

	require.Contains(t, spec.Methods, "inc")
	assert.Empty(t, spec.Methods["inc"].Params)
	assert.Equal(t, []string{"n"}, spec.Methods["add"].Params)
}

func TestCompileComponentMethods(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		component: counter: {
			data: count: 1
			methods: add: { params: ["n"], body: "this.count = this.count + n; this.count" }
		}
	`)
	require.NoError(t, v.Err())

	interp := expr.NewInterpreter()
	def, err := CompileComponent(v.LookupPath(cue.ParsePath("component.counter")), interp)
	require.NoError(t, err)

	assert.Equal(t, "counter", def.Name)
	assert.Empty(t, def.TemplateID, "the engine fills the default")

	add, ok := def.Data["add"].(expr.Method)
	require.True(t, ok, "methods compile to expr.Method, got %T", def.Data["add"])

	data := map[string]any{"count": 1.0}
	got, err := add(data, 4.0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
	assert.Equal(t, 5.0, data["count"])
}

func TestParseComponentInvalidMethod(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		component: broken: {
			methods: oops: { params: ["x"] }
		}
	`)
	require.NoError(t, v.Err())

	_, err := ParseComponent(v.LookupPath(cue.ParsePath("component.broken")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "methods.oops", ce.Field)
}

func TestParseComponentNonConcreteData(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		component: loose: {
			data: count: int
		}
	`)
	require.NoError(t, v.Err())

	_, err := ParseComponent(v.LookupPath(cue.ParsePath("component.loose")))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "data.count", ce.Field)
}

func TestCompileComponentRejectsInvalidSpec(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		component: "Bad Name": {
			methods: m: "this.x +"
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileComponent(v.LookupPath(cue.ParsePath(`component."Bad Name"`)), expr.NewInterpreter())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}
