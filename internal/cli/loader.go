package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/keywords/internal/compiler"
	"github.com/roach88/keywords/internal/engine"
	"github.com/roach88/keywords/internal/expr"
)

// LoadMode controls how errors are handled while loading components.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult holds the components loaded from a directory.
type LoadResult struct {
	Specs       []*compiler.Spec
	Definitions []*engine.ComponentDefinition
	CUEValue    cue.Value
	FileCount   int
}

// LoadError is a loading or validation failure with a CLI error code.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Line returns the source line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// Error codes shared by all commands. Validation failures reuse the
// compiler's E1xx codes.
const (
	ErrCodeGeneric      = "E001" // generic/unknown error
	ErrCodeScanError    = "E002" // directory scan error
	ErrCodeNoFiles      = "E003" // no CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // file write error
	ErrCodeNoComponents = "E008" // no component field in the CUE value
	ErrCodeBadData      = "E009" // data file unreadable or not an object
	ErrCodeMountFailed  = "E010" // app mount or render failed
	ErrCodeJournal      = "E011" // journal open/read/write failed

	ErrCodeInvalidData   = "E110" // non-concrete or unsupported data value
	ErrCodeInvalidMethod = "E111" // malformed method declaration
)

// LoadComponents loads, validates and compiles every component spec in
// dir. Load failures (missing directory, no files, CUE errors) return a
// nil result.
func LoadComponents(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("components directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing components directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	v, err := compiler.BuildValue(dir, nil)
	if err != nil {
		le := convertCompileError(err)
		le.Code = ErrCodeBuildFailed
		return nil, []error{le}
	}

	values, err := compiler.ComponentValues(v)
	if err != nil {
		return nil, []error{convertCompileError(err)}
	}
	if len(values) == 0 {
		return nil, []error{&LoadError{
			Code:    ErrCodeNoComponents,
			Message: fmt.Sprintf("no %q field found in %s", compiler.ComponentsField, dir),
		}}
	}

	result := &LoadResult{CUEValue: v, FileCount: len(files)}
	interp := expr.NewInterpreter()
	var errs []error

	for _, cv := range values {
		spec, err := compiler.ParseComponent(cv)
		if err != nil {
			errs = append(errs, convertCompileError(err))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Specs = append(result.Specs, spec)

		if verrs := compiler.Validate(spec); len(verrs) > 0 {
			for _, ve := range verrs {
				errs = append(errs, &LoadError{
					Code:    ve.Code,
					Field:   spec.Name + "." + ve.Field,
					Message: ve.Message,
					Pos:     spec.Pos,
				})
			}
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		def, err := compiler.Compile(spec, interp)
		if err != nil {
			errs = append(errs, convertCompileError(err))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Definitions = append(result.Definitions, def)
	}
	return result, errs
}

// convertCompileError converts a compiler error to a LoadError with
// position info.
func convertCompileError(err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return &LoadError{
			Code:    MapFieldToErrorCode(ce.Field),
			Field:   ce.Field,
			Message: ce.Message,
			Pos:     ce.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeLoadFailed
	case field == "component":
		return compiler.ErrComponentNameInvalid
	case field == "template":
		return compiler.ErrInvalidTemplateID
	case strings.HasPrefix(field, "parameters"):
		return compiler.ErrInvalidParameter
	case strings.HasPrefix(field, "data"):
		return ErrCodeInvalidData
	case strings.HasPrefix(field, "methods"):
		return ErrCodeInvalidMethod
	default:
		return ErrCodeGeneric
	}
}

// loadFailure reports the first error of a failed load.
func loadFailure(f *OutputFormatter, errs []error) error {
	var le *LoadError
	if errors.As(errs[0], &le) {
		return f.fail(ExitCommandError, le.Code, le.Message, nil)
	}
	return f.fail(ExitCommandError, ErrCodeGeneric, errs[0].Error(), nil)
}
