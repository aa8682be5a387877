package expr

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/roach88/keywords/internal/value"
)

// Scope maps the free variables of an expression to their values.
// Nothing outside the scope is visible to an expression.
type Scope map[string]any

// Evaluator evaluates an expression string against a scope.
type Evaluator interface {
	Evaluate(expression string, scope Scope) (any, error)
}

// Func is a callable value with its receiver already fixed.
type Func func(args ...any) (any, error)

// Method is a callable value whose receiver is supplied at call time.
// A Method read off an object and called as obj.m() receives obj; data
// functions are bound to the instance data before evaluation.
type Method func(this any, args ...any) (any, error)

// Bind fixes the receiver of m.
func Bind(m Method, this any) Func {
	return func(args ...any) (any, error) {
		return m(this, args...)
	}
}

// Interpreter parses and evaluates expressions. Parsed trees are cached
// by source text, so the same template expression is parsed once.
//
// Thread-safety: an Interpreter may be shared; evaluation itself holds no
// interpreter state.
type Interpreter struct {
	mu     sync.RWMutex
	exprs  map[string]Node
	bodies map[string]Node
}

// NewInterpreter returns an interpreter with an empty parse cache.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		exprs:  make(map[string]Node),
		bodies: make(map[string]Node),
	}
}

// Evaluate parses expression as a single expression and evaluates it.
func (in *Interpreter) Evaluate(expression string, scope Scope) (any, error) {
	n, err := in.parse(expression, in.exprs, Parse)
	if err != nil {
		return nil, err
	}
	return Eval(n, expression, scope)
}

// EvaluateBody evaluates a ;-separated body and returns the value of the
// last expression.
func (in *Interpreter) EvaluateBody(body string, scope Scope) (any, error) {
	n, err := in.parse(body, in.bodies, ParseBody)
	if err != nil {
		return nil, err
	}
	return Eval(n, body, scope)
}

// Method compiles body into a Method. The receiver is visible as `this`
// and the arguments under the given parameter names; missing arguments
// are undefined.
func (in *Interpreter) Method(params []string, body string) (Method, error) {
	if _, err := in.parse(body, in.bodies, ParseBody); err != nil {
		return nil, err
	}
	return func(this any, args ...any) (any, error) {
		scope := Scope{"this": this}
		for i, name := range params {
			if i < len(args) {
				scope[name] = args[i]
			} else {
				scope[name] = nil
			}
		}
		return in.EvaluateBody(body, scope)
	}, nil
}

func (in *Interpreter) parse(src string, cache map[string]Node, parse func(string) (Node, error)) (Node, error) {
	in.mu.RLock()
	n, ok := cache[src]
	in.mu.RUnlock()
	if ok {
		return n, nil
	}
	n, err := parse(src)
	if err != nil {
		return nil, err
	}
	in.mu.Lock()
	cache[src] = n
	in.mu.Unlock()
	return n, nil
}

// Eval evaluates a parsed tree. src is only used for error messages.
func Eval(n Node, src string, scope Scope) (any, error) {
	if scope == nil {
		scope = Scope{}
	}
	e := &evaluator{src: src, scope: scope}
	return e.eval(n)
}

type evaluator struct {
	src   string
	scope Scope
}

func (e *evaluator) eval(n Node) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *Ident:
		v, ok := e.scope[n.Name]
		if !ok {
			return nil, referenceError(e.src, n.At, n.Name)
		}
		return v, nil
	case *This:
		return e.scope["this"], nil
	case *ArrayLit:
		out := make([]any, len(n.Elems))
		for i, elem := range n.Elems {
			v, err := e.eval(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *ObjectLit:
		obj := linkedhashmap.New()
		for i, key := range n.Keys {
			v, err := e.eval(n.Values[i])
			if err != nil {
				return nil, err
			}
			obj.Put(key, v)
		}
		return obj, nil
	case *Member:
		obj, key, err := e.member(n)
		if err != nil {
			return nil, err
		}
		return e.get(obj, key, n.At)
	case *Call:
		return e.call(n)
	case *Unary:
		return e.unary(n)
	case *Binary:
		l, err := e.eval(n.L)
		if err != nil {
			return nil, err
		}
		r, err := e.eval(n.R)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, l, r), nil
	case *Logical:
		l, err := e.eval(n.L)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "&&":
			if !value.Truthy(l) {
				return l, nil
			}
		case "||":
			if value.Truthy(l) {
				return l, nil
			}
		case "??":
			if l != nil && l != value.Null {
				return l, nil
			}
		}
		return e.eval(n.R)
	case *Conditional:
		test, err := e.eval(n.Test)
		if err != nil {
			return nil, err
		}
		if value.Truthy(test) {
			return e.eval(n.Then)
		}
		return e.eval(n.Else)
	case *Assign:
		return e.assign(n)
	case *Sequence:
		var last any
		for _, item := range n.List {
			v, err := e.eval(item)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	}
	return nil, typeError(e.src, n.Pos(), "unsupported expression %T", n)
}

func (e *evaluator) member(n *Member) (obj any, key string, err error) {
	obj, err = e.eval(n.Object)
	if err != nil {
		return nil, "", err
	}
	prop, err := e.eval(n.Property)
	if err != nil {
		return nil, "", err
	}
	return obj, value.String(prop), nil
}

func (e *evaluator) get(obj any, key string, pos int) (any, error) {
	switch o := obj.(type) {
	case nil, value.NullValue:
		return nil, typeError(e.src, pos, "cannot read properties of %s (reading %q)", value.String(obj), key)
	case map[string]any:
		return o[key], nil
	case Scope:
		return o[key], nil
	case *linkedhashmap.Map:
		v, _ := o.Get(key)
		return v, nil
	case []any:
		if key == "length" {
			return float64(len(o)), nil
		}
		if i, err := strconv.Atoi(key); err == nil {
			if i >= 0 && i < len(o) {
				return o[i], nil
			}
			return nil, nil
		}
		return arrayMethod(o, key), nil
	case string:
		runes := []rune(o)
		if key == "length" {
			return float64(len(runes)), nil
		}
		if i, err := strconv.Atoi(key); err == nil {
			if i >= 0 && i < len(runes) {
				return string(runes[i]), nil
			}
			return nil, nil
		}
		return stringMethod(o, key), nil
	}
	return nil, nil
}

func (e *evaluator) set(obj any, key string, v any, pos int) error {
	switch o := obj.(type) {
	case map[string]any:
		o[key] = v
	case Scope:
		o[key] = v
	case *linkedhashmap.Map:
		o.Put(key, v)
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(o) {
			return typeError(e.src, pos, "cannot set index %q of an array of length %d", key, len(o))
		}
		o[i] = v
	default:
		return typeError(e.src, pos, "cannot set properties of %s (setting %q)", value.String(obj), key)
	}
	return nil
}

func (e *evaluator) call(n *Call) (any, error) {
	var (
		fn   any
		this any
		err  error
	)
	if m, ok := n.Callee.(*Member); ok {
		var key string
		this, key, err = e.member(m)
		if err != nil {
			return nil, err
		}
		fn, err = e.get(this, key, m.At)
	} else {
		fn, err = e.eval(n.Callee)
	}
	if err != nil {
		return nil, err
	}

	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		if args[i], err = e.eval(a); err != nil {
			return nil, err
		}
	}

	switch f := fn.(type) {
	case Func:
		return f(args...)
	case Method:
		return f(this, args...)
	case func(args ...any) (any, error):
		return f(args...)
	}
	return nil, typeError(e.src, n.At, "%s is not a function", value.TypeOf(fn))
}

func (e *evaluator) unary(n *Unary) (any, error) {
	if n.Op == "typeof" {
		if id, ok := n.X.(*Ident); ok {
			v, ok := e.scope[id.Name]
			if !ok {
				return "undefined", nil
			}
			return value.TypeOf(v), nil
		}
	}
	x, err := e.eval(n.X)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "!":
		return !value.Truthy(x), nil
	case "-":
		return -value.ToNumber(x), nil
	case "+":
		return value.ToNumber(x), nil
	case "typeof":
		return value.TypeOf(x), nil
	}
	return nil, typeError(e.src, n.At, "unknown operator %s", n.Op)
}

func (e *evaluator) assign(n *Assign) (any, error) {
	v, err := e.eval(n.Value)
	if err != nil {
		return nil, err
	}
	switch t := n.Target.(type) {
	case *Ident:
		if n.Op != "=" {
			cur, ok := e.scope[t.Name]
			if !ok {
				return nil, referenceError(e.src, t.At, t.Name)
			}
			v = binary(n.Op[:1], cur, v)
		}
		e.scope[t.Name] = v
		return v, nil
	case *Member:
		obj, key, err := e.member(t)
		if err != nil {
			return nil, err
		}
		if n.Op != "=" {
			cur, err := e.get(obj, key, t.At)
			if err != nil {
				return nil, err
			}
			v = binary(n.Op[:1], cur, v)
		}
		if err := e.set(obj, key, v, t.At); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, syntaxError(e.src, n.At, "invalid assignment target")
}

func binary(op string, l, r any) any {
	switch op {
	case "+":
		if isStringy(l) || isStringy(r) {
			return value.String(l) + value.String(r)
		}
		return value.ToNumber(l) + value.ToNumber(r)
	case "-":
		return value.ToNumber(l) - value.ToNumber(r)
	case "*":
		return value.ToNumber(l) * value.ToNumber(r)
	case "/":
		return value.ToNumber(l) / value.ToNumber(r)
	case "%":
		return math.Mod(value.ToNumber(l), value.ToNumber(r))
	case "==":
		return value.LooseEqual(l, r)
	case "!=":
		return !value.LooseEqual(l, r)
	case "===":
		return value.StrictEqual(l, r)
	case "!==":
		return !value.StrictEqual(l, r)
	case "<", "<=", ">", ">=":
		c, ok := value.Compare(l, r)
		if !ok {
			return false
		}
		switch op {
		case "<":
			return c < 0
		case "<=":
			return c <= 0
		case ">":
			return c > 0
		}
		return c >= 0
	}
	return nil
}

// isStringy reports whether + should concatenate rather than add.
func isStringy(v any) bool {
	switch v.(type) {
	case string, []any, map[string]any, *linkedhashmap.Map:
		return true
	}
	return false
}

func arrayMethod(arr []any, name string) any {
	switch name {
	case "join":
		return Func(func(args ...any) (any, error) {
			sep := ","
			if len(args) > 0 && args[0] != nil {
				sep = value.String(args[0])
			}
			parts := make([]string, len(arr))
			for i, elem := range arr {
				if elem != nil && elem != value.Null {
					parts[i] = value.String(elem)
				}
			}
			return strings.Join(parts, sep), nil
		})
	case "includes":
		return Func(func(args ...any) (any, error) {
			return indexOf(arr, args) >= 0, nil
		})
	case "indexOf":
		return Func(func(args ...any) (any, error) {
			return float64(indexOf(arr, args)), nil
		})
	case "concat":
		// Array arguments are spread one level, others appended as is
		return Func(func(args ...any) (any, error) {
			out := append([]any(nil), arr...)
			for _, a := range args {
				if more, ok := a.([]any); ok {
					out = append(out, more...)
				} else {
					out = append(out, a)
				}
			}
			return out, nil
		})
	}
	return nil
}

func indexOf(arr []any, args []any) int {
	var needle any
	if len(args) > 0 {
		needle = args[0]
	}
	for i, elem := range arr {
		if value.StrictEqual(elem, needle) {
			return i
		}
	}
	return -1
}

func stringMethod(s string, name string) any {
	switch name {
	case "toUpperCase":
		return Func(func(...any) (any, error) { return strings.ToUpper(s), nil })
	case "toLowerCase":
		return Func(func(...any) (any, error) { return strings.ToLower(s), nil })
	case "trim":
		return Func(func(...any) (any, error) { return strings.TrimSpace(s), nil })
	case "includes":
		return Func(func(args ...any) (any, error) {
			if len(args) == 0 {
				return false, nil
			}
			return strings.Contains(s, value.String(args[0])), nil
		})
	}
	return nil
}
