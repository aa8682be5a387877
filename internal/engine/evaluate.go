package engine

import (
	"strings"

	"github.com/roach88/keywords/internal/dom"
	"github.com/roach88/keywords/internal/expr"
	"github.com/roach88/keywords/internal/value"
)

// Scope assembles the names visible to an expression evaluated in inst.
//
// Later entries shadow earlier ones:
//  1. inst.Data, with expr.Method values bound to inst.Data
//  2. component parameters not already defined, read from inst.Element
//  3. extra
//  4. $refreshByRef and $flush
func (e *Engine) Scope(inst *Instance, extra expr.Scope) expr.Scope {
	scope := make(expr.Scope, len(inst.Data)+len(extra)+2)
	for k, v := range inst.Data {
		if m, ok := v.(expr.Method); ok {
			v = expr.Bind(m, inst.Data)
		}
		scope[k] = v
	}

	if inst.Component != nil {
		for _, name := range inst.Component.Parameters {
			if _, ok := scope[name]; ok {
				continue
			}
			var v any
			if inst.Element != nil {
				if s, ok := dom.Attr(inst.Element, name); ok {
					v = s
				}
			}
			scope[name] = v
		}
	}

	for k, v := range extra {
		scope[k] = v
	}

	scope["$refreshByRef"] = expr.Func(func(args ...any) (any, error) {
		var ref string
		if len(args) > 0 {
			ref = value.String(args[0])
		}
		e.RefreshByRef(inst, ref)
		return nil, nil
	})
	scope["$flush"] = expr.Func(func(args ...any) (any, error) {
		var ref string
		if len(args) > 0 && args[0] != nil {
			ref = value.String(args[0])
		}
		return e.scheduler.Flush(ref), nil
	})
	return scope
}

// Evaluate evaluates expression against inst's scope plus extra.
func (e *Engine) Evaluate(inst *Instance, expression string, extra expr.Scope) (any, error) {
	v, err := e.evaluator.Evaluate(expression, e.Scope(inst, extra))
	if err != nil {
		return nil, newEvalError(expression, err)
	}
	return v, nil
}

// Interpolate replaces every {{ expression }} span in text with the
// stringified value of the expression, left to right. A {{ with no
// closing }} leaves the rest of the text as it is.
func (e *Engine) Interpolate(inst *Instance, text string) (string, error) {
	var b strings.Builder
	pos := 0
	for {
		open := strings.Index(text[pos:], "{{")
		if open < 0 {
			break
		}
		open += pos
		end := strings.Index(text[open+2:], "}}")
		if end < 0 {
			break
		}
		end += open + 2

		b.WriteString(text[pos:open])
		v, err := e.Evaluate(inst, text[open+2:end], nil)
		if err != nil {
			return "", err
		}
		b.WriteString(value.String(v))
		pos = end + 2
	}
	b.WriteString(text[pos:])
	return b.String(), nil
}
