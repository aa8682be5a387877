package directive

import (
	"fmt"

	"github.com/emirpasic/gods/lists/singlylinkedlist"
)

// DefinitionError reports a directive that cannot be registered.
type DefinitionError struct {
	Name    string
	Message string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	if e.Name == "" {
		return "directive: " + e.Message
	}
	return fmt.Sprintf("directive %q: %s", e.Name, e.Message)
}

// Registry holds the three directive lists.
//
// INVARIANT: Register pushes to the FRONT of each list, and Match returns
// the first definition whose test accepts the attribute. The most recently
// registered directive therefore wins when several match, which lets a
// caller override a built-in by registering a replacement after it.
//
// Registration happens before any render; the registry is read-only
// afterwards and is not synchronised.
type Registry[C any] struct {
	generating *singlylinkedlist.List
	regular    *singlylinkedlist.List
	appEntry   *singlylinkedlist.List
}

// NewRegistry returns an empty registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		generating: singlylinkedlist.New(),
		regular:    singlylinkedlist.New(),
		appEntry:   singlylinkedlist.New(),
	}
}

// Register validates def and adds it to the front of its list, and to
// the front of the app-entry list when Options.AppEntry is set.
func (r *Registry[C]) Register(def Definition[C]) error {
	if def.Test == nil {
		return &DefinitionError{Name: def.Name, Message: "missing test"}
	}
	if def.Options.GeneratesNodes {
		if def.Generate == nil {
			return &DefinitionError{Name: def.Name, Message: "node-generating directive missing generator"}
		}
		r.generating.Prepend(def)
	} else {
		if def.Process == nil {
			return &DefinitionError{Name: def.Name, Message: "missing processor"}
		}
		r.regular.Prepend(def)
	}
	if def.Options.AppEntry {
		r.appEntry.Prepend(def)
	}
	return nil
}

// MatchGenerating returns the node-generating directive for attr.
func (r *Registry[C]) MatchGenerating(attr Attribute) (Definition[C], bool) {
	return match[C](r.generating, attr)
}

// MatchRegular returns the regular directive for attr.
func (r *Registry[C]) MatchRegular(attr Attribute) (Definition[C], bool) {
	return match[C](r.regular, attr)
}

// MatchAppEntry returns the app-entry directive for attr.
func (r *Registry[C]) MatchAppEntry(attr Attribute) (Definition[C], bool) {
	return match[C](r.appEntry, attr)
}

// Names lists registered directive names in match order, for diagnostics.
func (r *Registry[C]) Names() (generating, regular, appEntry []string) {
	return names[C](r.generating), names[C](r.regular), names[C](r.appEntry)
}

func match[C any](list *singlylinkedlist.List, attr Attribute) (Definition[C], bool) {
	_, found := list.Find(func(_ int, v interface{}) bool {
		return v.(Definition[C]).Test(attr)
	})
	if found == nil {
		return Definition[C]{}, false
	}
	return found.(Definition[C]), true
}

func names[C any](list *singlylinkedlist.List) []string {
	out := make([]string, 0, list.Size())
	list.Each(func(_ int, v interface{}) {
		out = append(out, v.(Definition[C]).Name)
	})
	return out
}
