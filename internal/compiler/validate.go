package compiler

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/roach88/keywords/internal/expr"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value for validation

	// Component errors (E101-E109)
	ErrComponentNameInvalid = "E101" // name is not a valid tag name
	ErrInvalidTemplateID    = "E102" // template id contains whitespace
	ErrInvalidParameter     = "E103" // parameter is not an identifier
	ErrDuplicateName        = "E104" // duplicate parameter, or method shadowing data
	ErrInvalidMethodBody    = "E105" // method body does not parse
	ErrInvalidMethodParam   = "E106" // method parameter is not an identifier
)

var (
	tagNamePattern    = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	whitespacePattern = regexp.MustCompile(`\s`)
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a parsed component spec.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *Spec:
		return validateSpec(spec)
	case Spec:
		return validateSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateSpec(spec *Spec) []ValidationError {
	var errs []ValidationError
	line := spec.Pos.Line()

	if !tagNamePattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("%q is not a valid tag name (lower-case letters, digits and dashes)", spec.Name),
			Code:    ErrComponentNameInvalid,
			Line:    line,
		})
	}

	if whitespacePattern.MatchString(spec.TemplateID) {
		errs = append(errs, ValidationError{
			Field:   "template",
			Message: fmt.Sprintf("template id %q contains whitespace", spec.TemplateID),
			Code:    ErrInvalidTemplateID,
			Line:    line,
		})
	}

	seen := make(map[string]bool)
	for i, p := range spec.Parameters {
		field := fmt.Sprintf("parameters[%d]", i)
		if !identifierPattern.MatchString(p) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q is not an identifier", p),
				Code:    ErrInvalidParameter,
				Line:    line,
			})
		}
		if seen[p] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate parameter %q", p),
				Code:    ErrDuplicateName,
				Line:    line,
			})
		}
		seen[p] = true
	}

	// Deterministic order for error output
	names := make([]string, 0, len(spec.Methods))
	for name := range spec.Methods {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := spec.Methods[name]
		field := "methods." + name
		mline := m.Pos.Line()
		if mline == 0 {
			mline = line
		}

		if _, ok := spec.Data[name]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("method %q shadows a data field", name),
				Code:    ErrDuplicateName,
				Line:    mline,
			})
		}
		for _, p := range m.Params {
			if !identifierPattern.MatchString(p) {
				errs = append(errs, ValidationError{
					Field:   field + ".params",
					Message: fmt.Sprintf("%q is not an identifier", p),
					Code:    ErrInvalidMethodParam,
					Line:    mline,
				})
			}
		}
		if _, err := expr.ParseBody(m.Body); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".body",
				Message: err.Error(),
				Code:    ErrInvalidMethodBody,
				Line:    mline,
			})
		}
	}

	return errs
}
