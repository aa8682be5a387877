// Package expr evaluates the expressions embedded in templates:
// directive values such as $if="count > 0" and {{ }} interpolations.
//
// The grammar is a small, side-effect-aware subset of JavaScript
// expressions: literals, array and object literals, member access,
// calls, the usual unary/binary/logical operators, the conditional
// operator and assignment. There are no statements, loops or function
// literals, and the only free variables are the names in the Scope the
// caller supplies. Anything else is a ReferenceError.
//
// Values are plain Go values: float64 numbers, strings, bools, nil for
// undefined, value.Null, []any, map[string]any, ordered objects
// (*linkedhashmap.Map, produced by object literals) and the callable
// types Func and Method.
package expr
