package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"golang.org/x/net/html"

	"github.com/roach88/keywords/internal/compiler"
	"github.com/roach88/keywords/internal/dom"
	"github.com/roach88/keywords/internal/engine"
	"github.com/roach88/keywords/internal/expr"
	"github.com/roach88/keywords/internal/journal"
	"github.com/roach88/keywords/internal/testutil"
	"github.com/roach88/keywords/internal/value"
)

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name string `json:"name"`
	*Result

	// Snapshots are the journal snapshots of every test, in run order.
	// Each test ends with a snapshot named "final".
	Snapshots []journal.Snapshot `json:"snapshots"`

	// Entries are the journal entries of every test, in run order.
	Entries []journal.Entry `json:"entries"`
}

// RunOption configures RunScenario.
type RunOption func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	store  *journal.Store
}

// WithRunLogger sets the logger handed to the engine and the suite.
// Defaults to a logger that discards everything.
func WithRunLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithStore records into s instead of a fresh in-memory journal.
func WithStore(s *journal.Store) RunOption {
	return func(c *runConfig) {
		c.store = s
	}
}

// engineFlusher drives the current test's loop on the calling goroutine
// until the next window drains.
type engineFlusher struct {
	eng *engine.Engine
}

func (f *engineFlusher) Flush(ref string) error {
	if f.eng == nil {
		return errors.New("flush: no app mounted")
	}
	done := f.eng.Scheduler().Flush(ref)
	for {
		select {
		case <-done:
			return nil
		default:
		}
		if f.eng.Loop().RunPending() == 0 {
			select {
			case <-done:
				return nil
			default:
				return errors.New("flush: loop went idle before the window drained")
			}
		}
	}
}

// mountedApp is the state of one test.
type mountedApp struct {
	doc      *dom.Document
	eng      *engine.Engine
	app      *engine.App
	recorder *journal.Recorder
	errs     []error
}

// RunScenario runs every test of a scenario through a Suite.
//
// Each scenario runs against a fresh in-memory journal unless WithStore
// is given. Run ids and seq numbers are deterministic, so the same
// scenario always produces the same journal.
func RunScenario(sc *Scenario, opts ...RunOption) (*ScenarioResult, error) {
	cfg := &runConfig{logger: testutil.QuietLogger()}
	for _, opt := range opts {
		opt(cfg)
	}

	store := cfg.store
	if store == nil {
		var err error
		store, err = journal.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
		}
		defer store.Close()
	}

	source, err := sc.loadDocument()
	if err != nil {
		return nil, err
	}
	components, err := sc.loadComponents()
	if err != nil {
		return nil, err
	}

	prefix := sc.RunID
	if prefix == "" {
		prefix = sc.Name
	}

	ctx := context.Background()
	flusher := &engineFlusher{}
	suite := NewSuite(WithFlusher(flusher), WithLogger(cfg.logger))

	var current *mountedApp
	var runIDs []string
	testIndex := 0

	suite.Describe(sc.Name, func() {
		suite.BeforeEach(func() error {
			testIndex++
			runID := fmt.Sprintf("%s-%d", prefix, testIndex)
			runIDs = append(runIDs, runID)

			m, err := mountScenario(ctx, sc, source, components, store, runID, cfg.logger)
			if m != nil {
				flusher.eng = m.eng
			}
			current = m
			return err
		})

		for _, tc := range sc.Tests {
			tc := tc
			if tc.Disabled {
				suite.ItDisabled(tc.It, nil)
				continue
			}
			suite.It(tc.It, func() error {
				for i, step := range tc.Steps {
					if err := current.run(suite, step); err != nil {
						return fmt.Errorf("step %d: %w", i, err)
					}
				}
				return errors.Join(current.errs...)
			})
		}

		suite.AfterEach(func() error {
			if current == nil || current.app == nil {
				return nil
			}
			_, err := current.snapshot("final")
			return err
		})

		suite.AfterAll(func(errorCount int) error {
			cfg.logger.Info("scenario finished", "scenario", sc.Name, "errors", errorCount)
			return nil
		})
	})

	result := &ScenarioResult{
		Name:      sc.Name,
		Result:    suite.Run(),
		Snapshots: []journal.Snapshot{},
		Entries:   []journal.Entry{},
	}

	for _, id := range runIDs {
		snaps, err := store.Snapshots(ctx, id)
		if err != nil {
			return nil, err
		}
		result.Snapshots = append(result.Snapshots, snaps...)

		entries, err := store.Entries(ctx, id, "")
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entries...)
	}
	return result, nil
}

func (sc *Scenario) loadDocument() (string, error) {
	if sc.HTML != "" {
		return sc.HTML, nil
	}
	b, err := os.ReadFile(sc.resolve(sc.Document))
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(b), nil
}

// loadComponents builds the scenario's CUE value once. Components are
// compiled per test so no data is shared between mounts.
func (sc *Scenario) loadComponents() (cue.Value, error) {
	if len(sc.Components) == 0 {
		return cue.Value{}, nil
	}
	// Paths stay relative to the scenario directory, which CUE loads from
	files := make([]string, len(sc.Components))
	for i, c := range sc.Components {
		if filepath.IsAbs(c) || strings.HasPrefix(c, ".") {
			files[i] = c
		} else {
			files[i] = "./" + c
		}
	}
	v, err := compiler.BuildValue(sc.dir, files)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to load components: %w", err)
	}
	return v, nil
}

func mountScenario(ctx context.Context, sc *Scenario, source string, components cue.Value, store *journal.Store, runID string, logger *slog.Logger) (*mountedApp, error) {
	doc, err := dom.ParseString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	recorder, err := journal.NewRecorder(ctx, store, sc.Name, sc.Root,
		journal.WithClock(testutil.NewDeterministicClock()),
		journal.WithRunIDs(testutil.NewFixedRunID(runID)),
	)
	if err != nil {
		return nil, err
	}

	m := &mountedApp{doc: doc, recorder: recorder}
	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithJournal(recorder),
		engine.WithErrorHandler(func(err error) { m.errs = append(m.errs, err) }),
	}
	if len(sc.PlainTags) > 0 {
		engOpts = append(engOpts, engine.WithPlainTags(sc.PlainTags...))
	}
	m.eng = engine.New(doc, engOpts...)

	if components.Exists() {
		defs, errs := compiler.CompileAll(components, expr.NewInterpreter(), false)
		if len(errs) > 0 {
			return m, errs[0]
		}
		for _, def := range defs {
			if err := m.eng.Define(*def); err != nil {
				return m, err
			}
		}
	}

	data, err := value.NormalizeObject(sc.Data)
	if err != nil {
		return m, fmt.Errorf("scenario data: %w", err)
	}

	m.app, err = m.eng.MountApp(doc.GetElementByID(sc.Root), data)
	return m, err
}

func (m *mountedApp) run(suite *Suite, step Step) error {
	if m == nil || m.app == nil {
		return errors.New("no app mounted")
	}
	switch {
	case step.Dispatch != nil:
		return m.dispatch(step.Dispatch)
	case step.Flush != nil:
		return suite.Flush(*step.Flush)
	case step.Refresh:
		m.app.Refresh()
		return nil
	case step.Snapshot != "":
		_, err := m.snapshot(step.Snapshot)
		return err
	case step.Expect != nil:
		return m.expect(step.Expect)
	}
	return errors.New("empty step")
}

func (m *mountedApp) find(sel Selector) []*html.Node {
	if sel.Attr == "" {
		return []*html.Node{m.app.Element}
	}
	return engine.FindElementsByAttr(m.app.Element, sel.Attr, sel.Value)
}

func (m *mountedApp) dispatch(d *DispatchStep) error {
	nodes := m.find(d.Selector)
	if len(nodes) == 0 {
		return fmt.Errorf("dispatch %s: no element matches %s", d.Event, d.Selector)
	}
	if err := m.recorder.RecordDispatch(d.Selector.String(), d.Event); err != nil {
		return err
	}
	return m.doc.Dispatch(nodes[0], d.Event)
}

func (m *mountedApp) expect(e *ExpectStep) error {
	if e.Eval != "" {
		got, err := m.eng.Evaluate(m.app.Instance, e.Eval, nil)
		if err != nil {
			return err
		}
		want, err := value.Normalize(e.Equals)
		if err != nil {
			return err
		}
		return Expect(got).ToEqual(want)
	}

	nodes := m.find(e.Selector)
	if e.Count != nil {
		return Expect(float64(len(nodes))).ToEqual(float64(*e.Count))
	}
	if len(nodes) == 0 {
		return fmt.Errorf("expect: no element matches %s", e.Selector)
	}

	if e.Text != nil {
		return Expect(strings.TrimSpace(dom.TextContent(nodes[0]))).ToEqual(*e.Text)
	}
	got, err := dom.InnerHTML(nodes[0])
	if err != nil {
		return err
	}
	return Expect(got).ToEqual(*e.HTML)
}

func (m *mountedApp) snapshot(name string) (journal.Snapshot, error) {
	out, err := dom.InnerHTML(m.app.Element)
	if err != nil {
		return journal.Snapshot{}, err
	}
	return m.recorder.Snapshot(name, out, m.app.Instance.Data)
}
