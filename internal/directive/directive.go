// Package directive defines attribute-matching rules and the ordered
// registry the template walker dispatches through.
//
// A directive is keyed by a predicate over one attribute. There are
// three kinds, held in three ordered lists:
//
//   - node-generating directives decide the whole output node list of an
//     element (for example iteration);
//   - regular directives act on each output node (attribute bindings,
//     events, conditionals);
//   - app-entry directives are regular or generating directives that also
//     run once against the application root before the first mount.
//
// Definitions are generic over the walker context C they receive, so this
// package does not depend on the engine.
package directive

import (
	"strings"

	"golang.org/x/net/html"
)

// Attribute is one name/value pair of a template element.
type Attribute struct {
	Name  string
	Value string
}

// Arg returns the part of the name after the first colon: "class" for
// "$attr:class". It is empty when the name has no colon.
func (a Attribute) Arg() string {
	_, arg, _ := strings.Cut(a.Name, ":")
	return arg
}

// Attributes converts the attributes of n, in document order.
func Attributes(n *html.Node) []Attribute {
	out := make([]Attribute, 0, len(n.Attr))
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		out = append(out, Attribute{Name: a.Key, Value: a.Val})
	}
	return out
}

// Result is what a regular directive reports for one node.
type Result struct {
	// ContinueToChildren is false when the node's children must not be
	// walked (a false $if, for example).
	ContinueToChildren bool
}

var (
	// Continue lets the walker render the node's children.
	Continue = Result{ContinueToChildren: true}

	// Skip keeps the node but leaves it empty.
	Skip = Result{}
)

// Generated is what a node-generating directive produces for one
// template element.
type Generated struct {
	Nodes []*html.Node

	// ContinueToChildren is true when the walker should still render the
	// template children into every generated node. A directive that has
	// already rendered them reports false.
	ContinueToChildren bool
}

// Options classify a definition.
type Options struct {
	GeneratesNodes bool
	AppEntry       bool
}

// Definition is one directive. Exactly one of Process and Generate is
// used, chosen by Options.GeneratesNodes.
type Definition[C any] struct {
	Name string

	// Test reports whether the directive handles attr.
	Test func(attr Attribute) bool

	// Process runs once per output node for a regular directive.
	Process func(c C, node *html.Node, attr Attribute) (Result, error)

	// Generate runs once per template element for a node-generating
	// directive.
	Generate func(c C, attr Attribute) (Generated, error)

	Options Options
}

// Named matches attributes called exactly name.
func Named(name string) func(Attribute) bool {
	return func(a Attribute) bool { return a.Name == name }
}

// Prefixed matches attributes whose name starts with prefix.
func Prefixed(prefix string) func(Attribute) bool {
	return func(a Attribute) bool { return strings.HasPrefix(a.Name, prefix) }
}
