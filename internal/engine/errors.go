package engine

import (
	"errors"
	"fmt"
)

// RenderError represents an error detected while defining, mounting or
// rendering components.
//
// Render errors include:
//   - Definition: a component without a name, an incomplete directive
//   - Resolution: unknown component tag, missing template, missing $ref
//   - Directive conflict: two node-generating directives on one element,
//     $else-if/$else without an open $if
//   - Evaluation: an expression that fails to parse or evaluate
//
// All of them abort the current render pass.
type RenderError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Component is the component being defined or mounted, if known.
	Component string

	// TemplateID identifies the template involved, if any.
	TemplateID string

	// Err is the underlying cause (an *expr.Error for evaluation failures).
	Err error
}

// ErrorCode categorizes render errors.
type ErrorCode string

const (
	// ErrCodeInvalidDefinition indicates a component or directive definition
	// is missing a required field.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"

	// ErrCodeUnknownComponent indicates a tag that is neither a plain tag
	// nor a defined component.
	ErrCodeUnknownComponent ErrorCode = "UNKNOWN_COMPONENT"

	// ErrCodeMissingTemplate indicates a component's template id does not
	// resolve to a node.
	ErrCodeMissingTemplate ErrorCode = "MISSING_TEMPLATE"

	// ErrCodeMissingRef indicates RefreshByRef found no node for the ref.
	ErrCodeMissingRef ErrorCode = "MISSING_REF"

	// ErrCodeDirectiveConflict indicates two node-generating directives
	// matched the same element.
	ErrCodeDirectiveConflict ErrorCode = "DIRECTIVE_CONFLICT"

	// ErrCodeOrphanElse indicates $else-if or $else with no open $if in the
	// same parent scope.
	ErrCodeOrphanElse ErrorCode = "ORPHAN_ELSE"

	// ErrCodeInvalidDirective indicates a directive value that cannot be
	// interpreted, such as a malformed $for binding.
	ErrCodeInvalidDirective ErrorCode = "INVALID_DIRECTIVE"

	// ErrCodeInvalidMount indicates MountApp was given no element.
	ErrCodeInvalidMount ErrorCode = "INVALID_MOUNT"

	// ErrCodeEvalFailed indicates an expression failed to parse or evaluate.
	ErrCodeEvalFailed ErrorCode = "EVAL_FAILED"
)

// Error implements the error interface.
func (e *RenderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Component != "" {
		msg += fmt.Sprintf(" (component=%s)", e.Component)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is a RenderError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownComponent returns true if err reports an undefined component tag.
func IsUnknownComponent(err error) bool {
	return HasCode(err, ErrCodeUnknownComponent)
}

// IsMissingTemplate returns true if err reports an unresolvable template id.
func IsMissingTemplate(err error) bool {
	return HasCode(err, ErrCodeMissingTemplate)
}

// IsDirectiveConflict returns true if two node-generating directives matched
// one element.
func IsDirectiveConflict(err error) bool {
	return HasCode(err, ErrCodeDirectiveConflict)
}

// IsOrphanElse returns true if err reports a broken $if chain.
func IsOrphanElse(err error) bool {
	return HasCode(err, ErrCodeOrphanElse)
}

func newError(code ErrorCode, format string, args ...any) *RenderError {
	return &RenderError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// newEvalError wraps an expression failure. Errors that are already
// RenderErrors (raised by a nested render inside a bound function) pass
// through unchanged.
func newEvalError(expression string, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{
		Code:    ErrCodeEvalFailed,
		Message: fmt.Sprintf("evaluating %q", expression),
		Err:     err,
	}
}
