package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/keywords/internal/directive"
	"github.com/roach88/keywords/internal/dom"
	"github.com/roach88/keywords/internal/expr"
	"github.com/roach88/keywords/internal/loop"
)

// Tree is the concrete node tree the engine renders into.
// Implemented by *dom.Document.
type Tree interface {
	// GetElementByID finds an element by its id attribute, including
	// inside template content.
	GetElementByID(id string) *html.Node

	// Listen subscribes a handler to a named event on a node.
	Listen(n *html.Node, event string, h dom.Handler)

	// RemoveChildren detaches every child of n.
	RemoveChildren(n *html.Node)
}

// DefaultPlainTags are the tags rendered as-is. Any other element tag
// produced by a template is mounted as a component.
var DefaultPlainTags = []string{
	"body", "div", "template", "table", "tr", "th", "td", "span", "tbody",
}

// Initializer is a component's setup hook. It runs on every mount after
// the instance data is merged and before the template is rendered.
type Initializer func(inst *Instance) error

// ComponentDefinition describes a component.
type ComponentDefinition struct {
	// Name is the tag the component is mounted for. Required.
	Name string

	// TemplateID is the id of the template node. Defaults to Name.
	TemplateID string

	// Initializer defaults to a no-op.
	Initializer Initializer

	// Data is merged over the parent instance's data on every mount.
	// expr.Method values are bound to the instance data on evaluation.
	Data map[string]any

	// Parameters name attributes of the mounted element that are visible
	// to expressions when the data does not define them.
	Parameters []string
}

// component is a registered definition plus engine-private meta.
type component struct {
	def         ComponentDefinition
	idsAssigned bool
	template    *html.Node
}

// Instance is one mounted occurrence of a component.
type Instance struct {
	Component *ComponentDefinition

	// Data is this instance's own copy: the parent's data with the
	// component's data spread over it.
	Data map[string]any

	// Element is the live node the instance is mounted onto.
	Element *html.Node

	template *html.Node
}

// Template returns the resolved template node of the instance.
func (i *Instance) Template() *html.Node {
	return i.template
}

// with returns a copy of the instance whose data is a shallow copy
// extended with name=v.
func (i *Instance) with(name string, v any) *Instance {
	data := make(map[string]any, len(i.Data)+1)
	for k, val := range i.Data {
		data[k] = val
	}
	data[name] = v
	cp := *i
	cp.Data = data
	return &cp
}

// Mounted is the result of mounting a component onto an element.
type Mounted struct {
	Instance *Instance
	Element  *html.Node
	Template *html.Node
}

// Context is what directive processors receive for one template element.
type Context struct {
	Engine   *Engine
	Instance *Instance

	// Template is the template element carrying the attribute.
	Template *html.Node
}

// Evaluate evaluates expression in the context's instance.
func (c *Context) Evaluate(expression string, extra expr.Scope) (any, error) {
	return c.Engine.Evaluate(c.Instance, expression, extra)
}

// Engine is a self-contained renderer: component registry, directive
// registry, if-chain state and refresh scheduler. Independent engines may
// coexist.
//
// Thread-safety: an Engine is used from one goroutine, the one driving
// its loop. See Scheduler for the exceptions.
type Engine struct {
	tree       Tree
	evaluator  expr.Evaluator
	directives *directive.Registry[*Context]
	components map[string]*component
	plainTags  map[string]bool
	chains     map[string]*ifChain
	loop       *loop.Loop
	scheduler  *Scheduler
	logger     *slog.Logger
	journal    Journal
	onError    func(error)
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithPlainTags adds tags to the plain-tag allow-list.
func WithPlainTags(tags ...string) Option {
	return func(e *Engine) {
		for _, t := range tags {
			e.plainTags[strings.ToLower(t)] = true
		}
	}
}

// WithLoop sets the run loop refresh windows are posted to.
// Default: a fresh loop.New().
func WithLoop(l *loop.Loop) Option {
	return func(e *Engine) {
		e.loop = l
	}
}

// WithErrorHandler receives errors from refresh callbacks, which have no
// caller to return to. They are logged either way.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.onError = fn
	}
}

// WithJournal records mounts, refreshes and windows.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithEvaluator replaces the expression evaluator.
// Default: expr.NewInterpreter().
func WithEvaluator(ev expr.Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// New creates an Engine rendering into tree, with the built-in
// directives registered.
func New(tree Tree, opts ...Option) *Engine {
	e := &Engine{
		tree:       tree,
		directives: directive.NewRegistry[*Context](),
		components: make(map[string]*component),
		plainTags:  make(map[string]bool),
		chains:     make(map[string]*ifChain),
		logger:     slog.Default(),
	}
	for _, t := range DefaultPlainTags {
		e.plainTags[t] = true
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.evaluator == nil {
		e.evaluator = expr.NewInterpreter()
	}
	if e.loop == nil {
		e.loop = loop.New(loop.WithLogger(e.logger))
	}
	e.scheduler = newScheduler(e.loop, e.logger, e.reportError, e.record)

	for _, def := range builtins() {
		if err := e.directives.Register(def); err != nil {
			// builtins are static; failing here is a programming error
			panic(err)
		}
	}
	return e
}

// Loop returns the run loop the engine schedules refreshes on.
func (e *Engine) Loop() *loop.Loop {
	return e.loop
}

// Scheduler returns the engine's refresh scheduler.
func (e *Engine) Scheduler() *Scheduler {
	return e.scheduler
}

// Tree returns the tree the engine renders into.
func (e *Engine) Tree() Tree {
	return e.tree
}

// RegisterDirective adds a directive. It takes precedence over every
// directive registered before it.
func (e *Engine) RegisterDirective(def directive.Definition[*Context]) error {
	if err := e.directives.Register(def); err != nil {
		return &RenderError{Code: ErrCodeInvalidDefinition, Message: "invalid directive", Err: err}
	}
	return nil
}

// Define registers a component. Redefining a name replaces the previous
// definition.
func (e *Engine) Define(def ComponentDefinition) error {
	if def.Name == "" {
		return newError(ErrCodeInvalidDefinition, "component definition must define a name")
	}
	def.Name = strings.ToLower(def.Name)
	if def.TemplateID == "" {
		def.TemplateID = def.Name
	}
	if def.Initializer == nil {
		def.Initializer = func(*Instance) error { return nil }
	}
	if _, exists := e.components[def.Name]; exists {
		e.logger.Debug("component redefined", "component", def.Name)
	}
	e.components[def.Name] = &component{def: def}
	return nil
}

// Component returns the definition registered under name.
func (e *Engine) Component(name string) (ComponentDefinition, bool) {
	c, ok := e.components[strings.ToLower(name)]
	if !ok {
		return ComponentDefinition{}, false
	}
	return c.def, true
}

// Mount instantiates the component named by element's tag under parent,
// renders its template and appends the result to element.
//
// parent may be nil for a root mount with no inherited data.
func (e *Engine) Mount(parent *Instance, element *html.Node) (*Mounted, error) {
	comp, err := e.lookup(element)
	if err != nil {
		return nil, err
	}
	tmpl, err := e.resolveTemplate(comp)
	if err != nil {
		return nil, err
	}

	data := make(map[string]any)
	if parent != nil {
		for k, v := range parent.Data {
			data[k] = v
		}
	}
	for k, v := range comp.def.Data {
		data[k] = v
	}

	def := comp.def
	inst := &Instance{
		Component: &def,
		Data:      data,
		Element:   element,
		template:  tmpl,
	}

	if err := def.Initializer(inst); err != nil {
		return nil, &RenderError{
			Code:      ErrCodeEvalFailed,
			Message:   "initializer failed",
			Component: def.Name,
			Err:       err,
		}
	}

	nodes, err := e.Render(inst, tmpl)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		dom.AppendChild(element, n)
	}

	e.logger.Debug("component mounted", "component", def.Name, "template", def.TemplateID, "nodes", len(nodes))
	e.record(Event{Kind: EventMount, Component: def.Name, TemplateID: def.TemplateID})

	return &Mounted{Instance: inst, Element: element, Template: tmpl}, nil
}

func (e *Engine) lookup(element *html.Node) (*component, error) {
	name := dom.Tag(element)
	comp, ok := e.components[name]
	if !ok {
		return nil, &RenderError{
			Code:      ErrCodeUnknownComponent,
			Message:   fmt.Sprintf("undefined component: %s", name),
			Component: name,
		}
	}
	return comp, nil
}

// resolveTemplate finds the component's template and, the first time,
// assigns structural ids to its descendants.
func (e *Engine) resolveTemplate(comp *component) (*html.Node, error) {
	if comp.idsAssigned && comp.template != nil {
		return comp.template, nil
	}
	tmpl := e.tree.GetElementByID(comp.def.TemplateID)
	if tmpl == nil {
		return nil, &RenderError{
			Code:       ErrCodeMissingTemplate,
			Message:    fmt.Sprintf("cannot find template with id: %s", comp.def.TemplateID),
			Component:  comp.def.Name,
			TemplateID: comp.def.TemplateID,
		}
	}
	AssignIDs(tmpl, comp.def.TemplateID)
	comp.idsAssigned = true
	comp.template = tmpl
	return tmpl, nil
}

// AssignIDs gives every element below tmpl the id "<templateID>$<n>",
// numbering in document order from 1. It returns the number of ids
// assigned.
func AssignIDs(tmpl *html.Node, templateID string) int {
	n := 0
	for c := tmpl.FirstChild; c != nil; c = c.NextSibling {
		dom.Walk(c, func(m *html.Node) bool {
			if m.Type == html.ElementNode {
				n++
				dom.SetAttr(m, "id", fmt.Sprintf("%s$%d", templateID, n))
			}
			return true
		})
	}
	return n
}

// App is a mounted application root.
type App struct {
	*Mounted
	engine *Engine
}

// MountApp mounts the application root. App-entry directives on element
// run first against data, so they can add fields before the first render.
func (e *Engine) MountApp(element *html.Node, data map[string]any) (*App, error) {
	if element == nil {
		return nil, newError(ErrCodeInvalidMount, "mounting invalid element")
	}
	comp, err := e.lookup(element)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = make(map[string]any)
	}

	def := comp.def
	prelim := &Instance{Component: &def, Data: data, Element: element}
	c := &Context{Engine: e, Instance: prelim, Template: element}
	for _, attr := range directive.Attributes(element) {
		d, ok := e.directives.MatchAppEntry(attr)
		if !ok || d.Process == nil {
			continue
		}
		if _, err := d.Process(c, element, attr); err != nil {
			return nil, err
		}
	}

	m, err := e.Mount(prelim, element)
	if err != nil {
		return nil, err
	}
	e.logger.Info("app mounted", "component", def.Name)
	return &App{Mounted: m, engine: e}, nil
}

// Refresh schedules a clear-and-rebuild of the app's root subtree.
func (a *App) Refresh() {
	e := a.engine
	e.scheduler.Schedule(RefreshTask{
		Instance: a.Instance,
		Callback: func() error {
			e.tree.RemoveChildren(a.Element)
			nodes, err := e.Render(a.Instance, a.Template)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				dom.AppendChild(a.Element, n)
			}
			e.record(Event{Kind: EventRefresh, Component: a.Instance.Component.Name})
			return nil
		},
	})
}

func (e *Engine) reportError(err error) {
	if e.onError != nil {
		e.onError(err)
	}
}
