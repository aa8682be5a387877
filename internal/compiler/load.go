package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/keywords/internal/engine"
	"github.com/roach88/keywords/internal/expr"
)

// ComponentsField is the top-level CUE field holding component specs.
const ComponentsField = "component"

// BuildValue loads CUE files into a single value. Paths are relative to
// dir; an empty list loads every file of the package in dir.
func BuildValue(dir string, files []string) (cue.Value, error) {
	args := files
	if len(args) == 0 {
		args = []string{"."}
	}

	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// ComponentValues returns the component structs under ComponentsField in
// label order.
func ComponentValues(v cue.Value) ([]cue.Value, error) {
	cv := v.LookupPath(cue.ParsePath(ComponentsField))
	if !cv.Exists() {
		return nil, nil
	}
	iter, err := cv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []cue.Value
	for iter.Next() {
		out = append(out, iter.Value())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return label(out[i]) < label(out[j])
	})
	return out, nil
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].Unquoted()
}

// CompileAll compiles every component in v. With collect set, it keeps
// going after a failure and returns every error; otherwise it stops at
// the first.
func CompileAll(v cue.Value, interp *expr.Interpreter, collect bool) ([]*engine.ComponentDefinition, []error) {
	values, err := ComponentValues(v)
	if err != nil {
		return nil, []error{err}
	}

	var defs []*engine.ComponentDefinition
	var errs []error
	for _, cv := range values {
		def, err := CompileComponent(cv, interp)
		if err != nil {
			errs = append(errs, err)
			if !collect {
				return defs, errs
			}
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
