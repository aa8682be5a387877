// Package dom is the concrete tree the engine renders into.
//
// Nodes are golang.org/x/net/html nodes. The package adds what the parser
// does not provide: lookup by id, shallow cloning, event subscription and
// dispatch, and serialisation of a subtree.
//
// <template> content is parsed as ordinary children of the template
// element, so template content is reached with Children like any other
// subtree.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Handler is invoked when an event is dispatched to the node it was
// registered on.
type Handler func() error

// Document owns a parsed tree and the event listeners attached to its
// nodes.
//
// Thread-safety: a Document is not safe for concurrent use. The engine
// only touches it from its run loop.
type Document struct {
	root      *html.Node
	listeners map[*html.Node]map[string][]Handler
}

// Parse parses a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString parses a full HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument wraps an existing tree.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		listeners: make(map[*html.Node]map[string][]Handler),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// GetElementByID returns the first element in document order whose id
// attribute equals id, or nil. Template content is searched too.
func (d *Document) GetElementByID(id string) *html.Node {
	var found *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode {
			if v, ok := Attr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// Listen subscribes h to event on n. Handlers run in subscription order.
func (d *Document) Listen(n *html.Node, event string, h Handler) {
	byEvent, ok := d.listeners[n]
	if !ok {
		byEvent = make(map[string][]Handler)
		d.listeners[n] = byEvent
	}
	byEvent[event] = append(byEvent[event], h)
}

// Dispatch runs every handler subscribed to event on n. All handlers run
// even when one fails; the failures are joined.
func (d *Document) Dispatch(n *html.Node, event string) error {
	var errs []error
	for _, h := range d.listeners[n][event] {
		if err := h(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListenerCount returns how many handlers are subscribed to event on n.
func (d *Document) ListenerCount(n *html.Node, event string) int {
	return len(d.listeners[n][event])
}

// RemoveChildren detaches every child of n and drops the listeners of
// the removed subtree.
func (d *Document) RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, func(m *html.Node) bool {
			delete(d.listeners, m)
			return true
		})
		n.RemoveChild(c)
		c = next
	}
}

// Walk visits n and its descendants in document order. Returning false
// from visit skips the node's children.
func Walk(n *html.Node, visit func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, visit)
	}
}

// Clone returns a detached shallow copy of n: same type, tag, namespace,
// text and attributes, no children and no id.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, 0, len(n.Attr))
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == "id" {
				continue
			}
			c.Attr = append(c.Attr, a)
		}
	}
	return c
}

// Attr returns the value of the attribute called name.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute name on n, adding it when absent.
func SetAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

// RemoveAttr deletes attribute name from n.
func RemoveAttr(n *html.Node, name string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Children returns a snapshot of n's children.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// AppendChild appends child to parent, detaching it from any previous
// parent first.
func AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

// IsTemplate reports whether n is a <template> element, whose children
// are inert content.
func IsTemplate(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Template
}

// Tag returns the lower-cased tag name of an element.
func Tag(n *html.Node) string {
	return strings.ToLower(n.Data)
}

// NewText returns a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// TextContent concatenates the text of n's descendants.
func TextContent(n *html.Node) string {
	var b strings.Builder
	Walk(n, func(m *html.Node) bool {
		if m.Type == html.TextNode {
			b.WriteString(m.Data)
		}
		return true
	})
	return b.String()
}

// Render serialises n and its descendants.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// InnerHTML serialises n's children.
func InnerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// OuterHTML serialises n.
func OuterHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
