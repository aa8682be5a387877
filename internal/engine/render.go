package engine

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/roach88/keywords/internal/directive"
	"github.com/roach88/keywords/internal/dom"
)

// Render turns one template node into zero or more live nodes bound to
// inst.
//
//   - comments produce nothing
//   - text produces one interpolated copy
//   - an element is handed to at most one node-generating directive;
//     without one it produces one clone (never carrying the template id)
//   - each remaining attribute is matched against the regular directives,
//     which run once per produced node and may veto the children
//   - children are rendered into every produced node, in order
//   - produced elements that are not plain tags are mounted as components
//   - a <template> element yields the children of its produced nodes
//
// Any error aborts the pass.
func (e *Engine) Render(inst *Instance, tmpl *html.Node) ([]*html.Node, error) {
	switch tmpl.Type {
	case html.CommentNode, html.DoctypeNode:
		return nil, nil
	case html.TextNode:
		text, err := e.Interpolate(inst, tmpl.Data)
		if err != nil {
			return nil, err
		}
		return []*html.Node{dom.NewText(text)}, nil
	case html.ElementNode:
	default:
		// document nodes are never template content
		return nil, nil
	}

	c := &Context{Engine: e, Instance: inst, Template: tmpl}
	attrs := directive.Attributes(tmpl)

	nodes, walkChildren, generatedBy, err := e.generate(c, attrs)
	if err != nil {
		return nil, err
	}
	if generatedBy < 0 {
		nodes = []*html.Node{dom.Clone(tmpl)}
	}

	for i, attr := range attrs {
		if i == generatedBy {
			continue
		}
		def, ok := e.directives.MatchRegular(attr)
		if !ok {
			continue
		}
		for _, n := range nodes {
			res, err := def.Process(c, n, attr)
			if err != nil {
				return nil, err
			}
			if !res.ContinueToChildren {
				walkChildren = false
			}
		}
	}

	if walkChildren {
		for _, n := range nodes {
			if err := e.renderChildren(inst, tmpl, n); err != nil {
				return nil, err
			}
		}
	}

	if len(nodes) > 0 && !e.plainTags[dom.Tag(nodes[0])] {
		for _, n := range nodes {
			if _, err := e.Mount(inst, n); err != nil {
				return nil, err
			}
		}
	}

	if dom.IsTemplate(tmpl) {
		var children []*html.Node
		for _, n := range nodes {
			children = append(children, dom.Children(n)...)
		}
		for _, child := range children {
			child.Parent.RemoveChild(child)
		}
		return children, nil
	}
	return nodes, nil
}

// generate runs the node-generating directive for the element, if any.
// It returns the index of the attribute that fired, or -1.
func (e *Engine) generate(c *Context, attrs []directive.Attribute) ([]*html.Node, bool, int, error) {
	var (
		nodes        []*html.Node
		walkChildren = true
		firedAt      = -1
		firedName    string
	)
	for i, attr := range attrs {
		def, ok := e.directives.MatchGenerating(attr)
		if !ok {
			continue
		}
		if firedAt >= 0 {
			return nil, false, -1, &RenderError{
				Code:    ErrCodeDirectiveConflict,
				Message: fmt.Sprintf("two node-generating directives on <%s>: %s and %s", c.Template.Data, firedName, attr.Name),
			}
		}
		g, err := def.Generate(c, attr)
		if err != nil {
			return nil, false, -1, err
		}
		nodes, walkChildren = g.Nodes, g.ContinueToChildren
		firedAt, firedName = i, attr.Name
	}
	return nodes, walkChildren, firedAt, nil
}

// renderChildren renders every child of tmpl into parent.
func (e *Engine) renderChildren(inst *Instance, tmpl, parent *html.Node) error {
	for child := tmpl.FirstChild; child != nil; child = child.NextSibling {
		produced, err := e.Render(inst, child)
		if err != nil {
			return err
		}
		for _, p := range produced {
			dom.AppendChild(parent, p)
		}
	}
	return nil
}

// FindElementsByAttr returns the outermost elements at or below node whose
// attribute attr equals val. It does not descend below a match. Template
// content is searched.
func FindElementsByAttr(node *html.Node, attr, val string) []*html.Node {
	var out []*html.Node
	dom.Walk(node, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if v, ok := dom.Attr(n, attr); ok && v == val {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// RefreshByRef schedules a rebuild of the live node marked $ref=ref in
// inst's element from the template node with the same mark. The live
// node is emptied and the nodes produced by rendering the template node
// are appended to it, so they carry their own directive effects while the
// live node keeps what it had.
func (e *Engine) RefreshByRef(inst *Instance, ref string) {
	e.scheduler.Schedule(RefreshTask{
		Ref:      ref,
		Instance: inst,
		Callback: func() error {
			return e.refreshRef(inst, ref)
		},
	})
}

func (e *Engine) refreshRef(inst *Instance, ref string) error {
	var tmplNode, live *html.Node
	if found := FindElementsByAttr(inst.template, "$ref", ref); len(found) > 0 {
		tmplNode = found[0]
	}
	if found := FindElementsByAttr(inst.Element, "$ref", ref); len(found) > 0 {
		live = found[0]
	}
	if tmplNode == nil || live == nil {
		return &RenderError{
			Code:      ErrCodeMissingRef,
			Message:   fmt.Sprintf("no node with $ref=%q", ref),
			Component: inst.Component.Name,
		}
	}

	e.tree.RemoveChildren(live)
	produced, err := e.Render(inst, tmplNode)
	if err != nil {
		return err
	}
	for _, p := range produced {
		dom.AppendChild(live, p)
	}

	e.logger.Debug("ref refreshed", "component", inst.Component.Name, "ref", ref)
	e.record(Event{Kind: EventRefresh, Component: inst.Component.Name, Ref: ref})
	return nil
}
