package expr

import (
	"testing"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keywords/internal/value"
)

func TestInterpreter_Evaluate(t *testing.T) {
	in := NewInterpreter()
	scope := Scope{
		"count": 3.0,
		"name":  "ada",
		"items": []any{"a", "b", "c"},
		"user":  map[string]any{"name": "grace", "age": 42.0},
		"empty": value.Null,
	}

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"arithmetic", "1 + 2 * 3", 7.0},
		{"parens", "(1 + 2) * 3", 9.0},
		{"modulo", "count % 2", 1.0},
		{"concat", "'hi ' + name", "hi ada"},
		{"number concat", "'n' + count", "n3"},
		{"comparison", "count >= 3", true},
		{"strict equality", "count === '3'", false},
		{"loose equality", "count == '3'", true},
		{"ternary", "count > 5 ? 'big' : 'small'", "small"},
		{"and short circuit", "0 && missing", 0.0},
		{"or returns operand", "'' || 'fallback'", "fallback"},
		{"nullish", "empty ?? 'dflt'", "dflt"},
		{"member", "user.name", "grace"},
		{"index", "items[1]", "b"},
		{"length", "items.length", 3.0},
		{"string length", "name.length", 3.0},
		{"missing key", "user.email", nil},
		{"not", "!count", false},
		{"negate", "-count", -3.0},
		{"typeof undeclared", "typeof nope", "undefined"},
		{"typeof number", "typeof count", "number"},
		{"join", "items.join('-')", "a-b-c"},
		{"includes", "items.includes('c')", true},
		{"array concat", "items.concat(['d'], 'e')", []any{"a", "b", "c", "d", "e"}},
		{"array plus array is a string", "[1] + [2]", "12"},
		{"upper", "name.toUpperCase()", "ADA"},
		{"undefined literal", "undefined", nil},
		{"null literal", "null", value.Null},
		{"array literal", "[1, 'two']", []any{1.0, "two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := in.Evaluate(tt.expr, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpreter_ObjectLiteralKeepsOrder(t *testing.T) {
	in := NewInterpreter()

	got, err := in.Evaluate("{b: 1, a: 2, 'c d': x}", Scope{"x": true})
	require.NoError(t, err)

	obj, ok := got.(*linkedhashmap.Map)
	require.True(t, ok, "object literal should be an ordered map, got %T", got)
	assert.Equal(t, []any{"b", "a", "c d"}, obj.Keys())
	v, _ := obj.Get("c d")
	assert.Equal(t, true, v)
}

func TestInterpreter_ShorthandObject(t *testing.T) {
	in := NewInterpreter()

	got, err := in.Evaluate("{x, y,}", Scope{"x": 1.0, "y": 2.0})
	require.NoError(t, err)
	keys, _ := value.Keys(got)
	assert.Equal(t, []string{"x", "y"}, keys)
}

func TestInterpreter_Errors(t *testing.T) {
	in := NewInterpreter()

	tests := []struct {
		name  string
		expr  string
		check func(error) bool
	}{
		{"unknown identifier", "missing + 1", IsReferenceError},
		{"unterminated string", "'abc", IsSyntaxError},
		{"trailing input", "1 2", IsSyntaxError},
		{"bad assignment", "1 = 2", IsSyntaxError},
		{"unclosed paren", "(1 + 2", IsSyntaxError},
		{"property of undefined", "nothing.x", func(err error) bool {
			var ee *Error
			return assert.ErrorAs(t, err, &ee) && ee.Kind == KindType
		}},
		{"call non-function", "count()", func(err error) bool {
			var ee *Error
			return assert.ErrorAs(t, err, &ee) && ee.Kind == KindType
		}},
	}

	scope := Scope{"nothing": nil, "count": 1.0}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := in.Evaluate(tt.expr, scope)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestInterpreter_Assignment(t *testing.T) {
	in := NewInterpreter()
	data := map[string]any{"count": 1.0}
	scope := Scope{"data": data, "n": 5.0}

	_, err := in.Evaluate("data.count += 2", scope)
	require.NoError(t, err)
	assert.Equal(t, 3.0, data["count"])

	_, err = in.Evaluate("n = n - 1", scope)
	require.NoError(t, err)
	assert.Equal(t, 4.0, scope["n"])
}

func TestInterpreter_Calls(t *testing.T) {
	in := NewInterpreter()

	var calls int
	inc := Func(func(args ...any) (any, error) {
		calls++
		return float64(calls), nil
	})

	got, err := in.Evaluate("inc() + inc()", Scope{"inc": inc})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
	assert.Equal(t, 2, calls)
}

func TestInterpreter_MethodReceiver(t *testing.T) {
	in := NewInterpreter()

	m, err := in.Method([]string{"step"}, "this.count = this.count + step; this.count")
	require.NoError(t, err)

	data := map[string]any{"count": 1.0}

	// Called off an object: the object is the receiver.
	data["bump"] = m
	got, err := in.Evaluate("data.bump(2)", Scope{"data": data})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	// Bound: the receiver is fixed regardless of how it is called.
	got, err = in.Evaluate("bump(10)", Scope{"bump": Bind(m, data)})
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)
	assert.Equal(t, 13.0, data["count"])
}

func TestInterpreter_MethodSyntaxError(t *testing.T) {
	in := NewInterpreter()

	_, err := in.Method(nil, "this.count +")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))
}

func TestInterpreter_ParseCache(t *testing.T) {
	in := NewInterpreter()

	for i := 0; i < 3; i++ {
		got, err := in.Evaluate("x * 2", Scope{"x": float64(i)})
		require.NoError(t, err)
		assert.Equal(t, float64(i*2), got)
	}
	assert.Len(t, in.exprs, 1)
}

func TestInterpreter_ImplementsEvaluator(t *testing.T) {
	var ev Evaluator = NewInterpreter()

	got, err := ev.Evaluate("a.b[0]", Scope{"a": map[string]any{"b": []any{"ok"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
