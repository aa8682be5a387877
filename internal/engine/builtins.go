package engine

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/roach88/keywords/internal/directive"
	"github.com/roach88/keywords/internal/dom"
	"github.com/roach88/keywords/internal/value"
)

// builtins returns the built-in directives in registration order.
func builtins() []directive.Definition[*Context] {
	return []directive.Definition[*Context]{
		{
			Name:    "$attr",
			Test:    directive.Prefixed("$attr:"),
			Process: processAttr,
		},
		{
			Name:    "$data",
			Test:    directive.Named("$data"),
			Process: processData,
			Options: directive.Options{AppEntry: true},
		},
		{
			Name:    "$event",
			Test:    directive.Prefixed("$event:"),
			Process: processEvent,
		},
		{
			Name:     "$for",
			Test:     directive.Named("$for"),
			Generate: generateFor,
			Options:  directive.Options{GeneratesNodes: true},
		},
		{
			Name: "$if",
			Test: func(a directive.Attribute) bool {
				return a.Name == "$if" || a.Name == "$else-if" || a.Name == "$else"
			},
			Process: processIf,
		},
	}
}

// $attr:<name>="expr" sets attribute <name> to the stringified value.
func processAttr(c *Context, n *html.Node, attr directive.Attribute) (directive.Result, error) {
	name := attr.Arg()
	if name == "" {
		return directive.Skip, invalidDirective(attr, "missing attribute name")
	}
	v, err := c.Evaluate(attr.Value, nil)
	if err != nil {
		return directive.Skip, err
	}
	dom.SetAttr(n, name, value.String(v))
	return directive.Continue, nil
}

// $data="expr" merges the keys of a mapping into the instance data.
func processData(c *Context, _ *html.Node, attr directive.Attribute) (directive.Result, error) {
	v, err := c.Evaluate(attr.Value, nil)
	if err != nil {
		return directive.Skip, err
	}
	keys, vals, ok := value.Entries(v)
	if !ok {
		return directive.Skip, invalidDirective(attr, fmt.Sprintf("expected a mapping, got %s", value.TypeOf(v)))
	}
	for i, k := range keys {
		c.Instance.Data[k] = vals[i]
	}
	return directive.Continue, nil
}

// $event:<name>="expr" evaluates expr each time <name> is dispatched on
// the node.
func processEvent(c *Context, n *html.Node, attr directive.Attribute) (directive.Result, error) {
	name := attr.Arg()
	if name == "" {
		return directive.Skip, invalidDirective(attr, "missing event name")
	}
	e, inst, expression := c.Engine, c.Instance, attr.Value
	e.tree.Listen(n, name, func() error {
		_, err := e.Evaluate(inst, expression, nil)
		return err
	})
	return directive.Continue, nil
}

// $for="item of coll" / $for="key in coll" produces one clone of the
// element per iteration, with the children rendered against the instance
// data extended by the iteration binding. It cannot share an element with
// $if, $else-if or $else: a conditional would run once per clone.
func generateFor(c *Context, attr directive.Attribute) (directive.Generated, error) {
	for _, a := range directive.Attributes(c.Template) {
		switch a.Name {
		case "$if", "$else-if", "$else":
			return directive.Generated{}, invalidDirective(attr, "cannot be combined with "+a.Name)
		}
	}
	iter, op, collection, err := parseForBinding(attr.Value)
	if err != nil {
		return directive.Generated{}, invalidDirective(attr, err.Error())
	}

	coll, err := c.Evaluate(collection, nil)
	if err != nil {
		return directive.Generated{}, err
	}

	var items []any
	switch op {
	case "of":
		elems, ok := value.Elements(coll)
		if !ok {
			return directive.Generated{}, invalidDirective(attr, fmt.Sprintf("%s is not iterable", value.TypeOf(coll)))
		}
		items = elems
	case "in":
		keys, ok := value.Keys(coll)
		if !ok {
			return directive.Generated{}, invalidDirective(attr, fmt.Sprintf("cannot enumerate keys of %s", value.TypeOf(coll)))
		}
		for _, k := range keys {
			items = append(items, k)
		}
	}

	nodes := make([]*html.Node, 0, len(items))
	for _, item := range items {
		inst := c.Instance.with(iter, item)
		clone := dom.Clone(c.Template)
		if err := c.Engine.renderChildren(inst, c.Template, clone); err != nil {
			return directive.Generated{}, err
		}
		nodes = append(nodes, clone)
	}
	return directive.Generated{Nodes: nodes, ContinueToChildren: false}, nil
}

// parseForBinding splits "iter op collection". The iteration variable
// must be declared explicitly.
func parseForBinding(s string) (iter, op, collection string, err error) {
	s = strings.TrimSpace(s)
	iter, rest, ok := strings.Cut(s, " ")
	if !ok {
		return "", "", "", fmt.Errorf("expected \"<name> of|in <collection>\", got %q", s)
	}
	op, collection, _ = strings.Cut(strings.TrimSpace(rest), " ")
	collection = strings.TrimSpace(collection)

	if !isIdentifier(iter) {
		return "", "", "", fmt.Errorf("invalid iteration variable %q", iter)
	}
	if op != "of" && op != "in" {
		return "", "", "", fmt.Errorf("expected of or in after %q, got %q", iter, op)
	}
	if collection == "" {
		return "", "", "", fmt.Errorf("missing collection")
	}
	return iter, op, collection, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// ifChain is the state of one $if/$else-if/$else sequence.
type ifChain struct {
	matched bool
}

// chainKey scopes a chain to the template parent of the element, so
// sibling conditionals share one chain.
func chainKey(tmpl *html.Node) string {
	p := tmpl.Parent
	if p == nil {
		return ""
	}
	if id, ok := dom.Attr(p, "id"); ok {
		return id
	}
	return fmt.Sprintf("%p", p)
}

func processIf(c *Context, _ *html.Node, attr directive.Attribute) (directive.Result, error) {
	e := c.Engine
	key := chainKey(c.Template)

	switch attr.Name {
	case "$if":
		v, err := c.Evaluate(attr.Value, nil)
		if err != nil {
			return directive.Skip, err
		}
		matched := value.Truthy(v)
		e.chains[key] = &ifChain{matched: matched}
		return result(matched), nil

	case "$else-if":
		chain, ok := e.chains[key]
		if !ok {
			return directive.Skip, orphanElse(attr)
		}
		if chain.matched {
			return directive.Skip, nil
		}
		v, err := c.Evaluate(attr.Value, nil)
		if err != nil {
			return directive.Skip, err
		}
		matched := value.Truthy(v)
		chain.matched = matched
		return result(matched), nil

	default: // $else
		chain, ok := e.chains[key]
		if !ok {
			return directive.Skip, orphanElse(attr)
		}
		delete(e.chains, key)
		return result(!chain.matched), nil
	}
}

func result(show bool) directive.Result {
	if show {
		return directive.Continue
	}
	return directive.Skip
}

func orphanElse(attr directive.Attribute) error {
	return &RenderError{
		Code:    ErrCodeOrphanElse,
		Message: fmt.Sprintf("%s without $if", attr.Name),
	}
}

func invalidDirective(attr directive.Attribute, msg string) error {
	return &RenderError{
		Code:    ErrCodeInvalidDirective,
		Message: fmt.Sprintf("%s=%q: %s", attr.Name, attr.Value, msg),
	}
}
