package expr

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes expression failures.
type ErrorKind string

const (
	// KindSyntax is a malformed expression.
	KindSyntax ErrorKind = "SyntaxError"

	// KindReference is a name that is not part of the evaluation scope.
	KindReference ErrorKind = "ReferenceError"

	// KindType is an operation applied to a value that does not support it,
	// such as calling a non-function or reading a property of undefined.
	KindType ErrorKind = "TypeError"
)

// Error is returned for any failure to parse or evaluate an expression.
type Error struct {
	Kind    ErrorKind
	Message string
	Expr    string
	Pos     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("%s: %s (at %d in %q)", e.Kind, e.Message, e.Pos, e.Expr)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsReferenceError reports whether err is an undefined-name error.
func IsReferenceError(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindReference
}

// IsSyntaxError reports whether err is a parse failure.
func IsSyntaxError(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindSyntax
}

func syntaxError(src string, pos int, msg string) *Error {
	return &Error{Kind: KindSyntax, Message: msg, Expr: src, Pos: pos}
}

func referenceError(src string, pos int, name string) *Error {
	return &Error{Kind: KindReference, Message: name + " is not defined", Expr: src, Pos: pos}
}

func typeError(src string, pos int, format string, args ...any) *Error {
	return &Error{Kind: KindType, Message: fmt.Sprintf(format, args...), Expr: src, Pos: pos}
}
