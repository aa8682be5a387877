package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/keywords/internal/engine"
	"github.com/roach88/keywords/internal/expr"
	"github.com/roach88/keywords/internal/value"
)

// Spec is a component spec as written in CUE, before methods are
// compiled into callables.
type Spec struct {
	Name       string            `json:"name"`
	TemplateID string            `json:"template_id,omitempty"`
	Parameters []string          `json:"parameters,omitempty"`
	Data       map[string]any    `json:"data,omitempty"`
	Methods    map[string]Method `json:"methods,omitempty"`
	Pos        token.Pos         `json:"-"`
}

// Method is a data function: a ;-separated expression body evaluated with
// the instance data as `this` and the arguments bound to Params.
type Method struct {
	Params []string  `json:"params,omitempty"`
	Body   string    `json:"body"`
	Pos    token.Pos `json:"-"`
}

// ParseComponent reads a CUE component value into a Spec.
//
// The CUE value should be the component struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`component: "todo-list": { data: { items: [] } }`)
//	spec, err := ParseComponent(v.LookupPath(cue.ParsePath(`component."todo-list"`)))
//
// Fields:
//
//	template:   string, the template id (defaults to the name)
//	parameters: [...string], element attributes lifted into the scope
//	data:       {...}, static data merged into every instance
//	methods:    name: "body" | { params: [...string], body: string }
func ParseComponent(v cue.Value) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &Spec{Pos: v.Pos()}

	// Component name is the struct label
	sels := v.Path().Selectors()
	if len(sels) > 0 {
		spec.Name = sels[len(sels)-1].Unquoted()
	}
	if spec.Name == "" {
		return nil, &CompileError{Field: "component", Message: "component name is required", Pos: v.Pos()}
	}

	if tv := v.LookupPath(cue.ParsePath("template")); tv.Exists() {
		id, err := tv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.TemplateID = id
	}

	var err error
	if spec.Parameters, err = parseStringList(v, "parameters"); err != nil {
		return nil, err
	}
	if spec.Data, err = parseData(v); err != nil {
		return nil, err
	}
	if spec.Methods, err = parseMethods(v); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseStringList reads an optional list of strings at field.
func parseStringList(v cue.Value, field string) ([]string, error) {
	pv := v.LookupPath(cue.ParsePath(field))
	if !pv.Exists() {
		return nil, nil
	}
	iter, err := pv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var params []string
	for iter.Next() {
		p, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		params = append(params, p)
	}
	return params, nil
}

// parseData decodes the data struct field by field so each value is
// normalised to engine values (float64 numbers, []any, map[string]any).
func parseData(v cue.Value) (map[string]any, error) {
	dv := v.LookupPath(cue.ParsePath("data"))
	if !dv.Exists() {
		return nil, nil
	}
	iter, err := dv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	data := make(map[string]any)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		fv := iter.Value()
		if !fv.IsConcrete() {
			return nil, &CompileError{
				Field:   "data." + name,
				Message: "data values must be concrete",
				Pos:     fv.Pos(),
			}
		}
		var raw any
		if err := fv.Decode(&raw); err != nil {
			return nil, formatCUEError(err)
		}
		norm, err := value.Normalize(raw)
		if err != nil {
			return nil, &CompileError{Field: "data." + name, Message: err.Error(), Pos: fv.Pos()}
		}
		data[name] = norm
	}
	return data, nil
}

func parseMethods(v cue.Value) (map[string]Method, error) {
	mv := v.LookupPath(cue.ParsePath("methods"))
	if !mv.Exists() {
		return nil, nil
	}
	iter, err := mv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	methods := make(map[string]Method)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		fv := iter.Value()
		m := Method{Pos: fv.Pos()}

		// Shorthand: a bare string is a body with no parameters
		if body, err := fv.String(); err == nil {
			m.Body = body
			methods[name] = m
			continue
		}

		bv := fv.LookupPath(cue.ParsePath("body"))
		if !bv.Exists() {
			return nil, &CompileError{
				Field:   "methods." + name,
				Message: "method must be a string or an object with a body field",
				Pos:     fv.Pos(),
			}
		}
		if m.Body, err = bv.String(); err != nil {
			return nil, formatCUEError(err)
		}
		if m.Params, err = parseStringList(fv, "params"); err != nil {
			return nil, err
		}
		methods[name] = m
	}
	return methods, nil
}

// Compile turns a Spec into an engine definition, compiling method bodies
// with interp.
func Compile(spec *Spec, interp *expr.Interpreter) (*engine.ComponentDefinition, error) {
	def := &engine.ComponentDefinition{
		Name:       spec.Name,
		TemplateID: spec.TemplateID,
		Parameters: append([]string(nil), spec.Parameters...),
		Data:       make(map[string]any, len(spec.Data)+len(spec.Methods)),
	}
	for k, v := range spec.Data {
		def.Data[k] = v
	}
	for name, m := range spec.Methods {
		fn, err := interp.Method(m.Params, m.Body)
		if err != nil {
			return nil, &CompileError{
				Field:   "methods." + name,
				Message: err.Error(),
				Pos:     m.Pos,
			}
		}
		def.Data[name] = fn
	}
	return def, nil
}

// CompileComponent parses and compiles a CUE component value.
func CompileComponent(v cue.Value, interp *expr.Interpreter) (*engine.ComponentDefinition, error) {
	spec, err := ParseComponent(v)
	if err != nil {
		return nil, err
	}
	if errs := Validate(spec); len(errs) > 0 {
		first := errs[0]
		return nil, &CompileError{Field: first.Field, Message: first.Message, Pos: spec.Pos}
	}
	return Compile(spec, interp)
}

// CompileError represents an error compiling a component spec.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
