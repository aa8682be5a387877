package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// TestFunc is a test body or a before/after hook.
type TestFunc func() error

// AfterAllFunc receives the number of failures of the suite it closes.
type AfterAllFunc func(errorCount int) error

// Flusher waits until the next refresh window has drained.
type Flusher interface {
	Flush(ref string) error
}

type runlet struct {
	description string
	run         TestFunc
}

type afterAllRunlet struct {
	description string
	run         AfterAllFunc
}

// block is one Describe: its tests plus the hooks in effect, which
// include every hook registered on enclosing describes before it opened.
type block struct {
	tests      []runlet
	beforeAll  []runlet
	beforeEach []runlet
	afterEach  []runlet
	afterAll   []afterAllRunlet
	only       bool
}

func (b *block) child(only bool) *block {
	return &block{
		beforeAll:  append([]runlet(nil), b.beforeAll...),
		beforeEach: append([]runlet(nil), b.beforeEach...),
		afterEach:  append([]runlet(nil), b.afterEach...),
		afterAll:   append([]afterAllRunlet(nil), b.afterAll...),
		only:       only || b.only,
	}
}

// Suite registers describes, tests and hooks, and runs them.
//
// Registration is synchronous: Describe runs its body immediately, and
// the tests it registers run later in Run. A describe is queued for
// running when its body returns, so nested describes run before the
// tests of the describe that encloses them.
//
// Suite is not safe for concurrent use.
type Suite struct {
	stack   []*block
	names   []string
	list    []*block
	onlys   []*block
	flusher Flusher
	logger  *slog.Logger
}

// Option configures a Suite.
type Option func(*Suite)

// WithFlusher sets what Flush waits on.
func WithFlusher(f Flusher) Option {
	return func(s *Suite) {
		s.flusher = f
	}
}

// WithLogger sets the logger used to report failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Suite) {
		s.logger = l
	}
}

// NewSuite creates an empty suite.
func NewSuite(opts ...Option) *Suite {
	s := &Suite{
		stack:  []*block{{}},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Suite) top() *block {
	return s.stack[len(s.stack)-1]
}

func (s *Suite) describe(description string, only bool, body func()) {
	b := s.top().child(only)
	s.stack = append(s.stack, b)
	s.names = append(s.names, description)

	body()

	s.names = s.names[:len(s.names)-1]
	s.stack = s.stack[:len(s.stack)-1]

	if len(b.tests) == 0 {
		return
	}
	if b.only {
		s.onlys = append(s.onlys, b)
	} else {
		s.list = append(s.list, b)
	}
}

// Describe registers a group of tests.
func (s *Suite) Describe(description string, body func()) {
	s.describe(description, false, body)
}

// DescribeOnly registers a group of tests. When any DescribeOnly group
// exists, Run runs only those groups. Groups nested inside one are also
// only groups.
func (s *Suite) DescribeOnly(description string, body func()) {
	s.describe(description, true, body)
}

// DescribeDisabled registers nothing. The body is not called.
func (s *Suite) DescribeDisabled(description string, body func()) {}

func (s *Suite) describeName(extra string) string {
	parts := append(append([]string(nil), s.names...), extra)
	return strings.Join(parts, " ")
}

// It registers a test in the enclosing describe.
//
// Tests registered outside any describe are not dropped. They form an
// implicit group that runs after all others, and is skipped when some
// describe is marked only.
func (s *Suite) It(description string, test TestFunc) {
	b := s.top()
	b.tests = append(b.tests, runlet{description: s.describeName(description), run: test})
}

// ItDisabled registers nothing.
func (s *Suite) ItDisabled(description string, test TestFunc) {}

// BeforeAll runs fn once before the tests of the enclosing describe.
func (s *Suite) BeforeAll(fn TestFunc) {
	b := s.top()
	b.beforeAll = append(b.beforeAll, runlet{description: s.describeName("$beforeAll"), run: fn})
}

// BeforeEach runs fn before every test of the enclosing describe.
func (s *Suite) BeforeEach(fn TestFunc) {
	b := s.top()
	b.beforeEach = append(b.beforeEach, runlet{description: s.describeName("$beforeEach"), run: fn})
}

// AfterEach runs fn after every test of the enclosing describe.
func (s *Suite) AfterEach(fn TestFunc) {
	b := s.top()
	b.afterEach = append(b.afterEach, runlet{description: s.describeName("$afterEach"), run: fn})
}

// AfterAll runs fn once after the enclosing describe, with its error count.
func (s *Suite) AfterAll(fn AfterAllFunc) {
	b := s.top()
	b.afterAll = append(b.afterAll, afterAllRunlet{description: s.describeName("$afterAll"), run: fn})
}

// ErrNoFlusher is returned by Flush when the suite has no Flusher.
var ErrNoFlusher = errors.New("harness: suite has no flusher")

// Flush waits for the next refresh window. The ref is passed through.
func (s *Suite) Flush(ref string) error {
	if s.flusher == nil {
		return ErrNoFlusher
	}
	return s.flusher.Flush(ref)
}

// Run runs the registered groups sequentially and returns the outcome.
//
// Within a group, a failing beforeAll skips every test, and a failing
// beforeEach or afterEach stops the remaining tests. A failing test does
// not. Later groups always run. afterAll hooks run for every group and
// get the group's failure count; their own failures are reported after
// the count is taken.
func (s *Suite) Run() *Result {
	groups := s.list
	if len(s.onlys) > 0 {
		groups = s.onlys
	} else if root := s.stack[0]; len(root.tests) > 0 {
		groups = append(append([]*block(nil), groups...), root)
	}

	result := NewResult()
	for _, b := range groups {
		s.runBlock(b, result)
	}
	return result
}

func (s *Suite) runBlock(b *block, result *Result) {
	var failures []*Failure

	if f := s.runHooks(b.beforeAll); f != nil {
		failures = append(failures, f)
	} else {
		for _, test := range b.tests {
			if f := s.runHooks(b.beforeEach); f != nil {
				failures = append(failures, f)
				break
			}
			if f := s.runOne(test); f != nil {
				failures = append(failures, f)
			} else {
				result.AddPass(test.description)
			}
			if f := s.runHooks(b.afterEach); f != nil {
				failures = append(failures, f)
				break
			}
		}
	}

	errorCount := len(failures)
	for _, f := range failures {
		result.AddFailure(f)
	}

	for _, hook := range b.afterAll {
		run := hook.run
		if err := call(func() error { return run(errorCount) }); err != nil {
			f := &Failure{Description: hook.description, Err: err}
			s.logger.Warn("test failure", "test", f.Description, "error", err)
			result.AddFailure(f)
			break
		}
	}
}

// runHooks runs hooks in order and stops at the first failure.
func (s *Suite) runHooks(hooks []runlet) *Failure {
	for _, h := range hooks {
		if f := s.runOne(h); f != nil {
			return f
		}
	}
	return nil
}

func (s *Suite) runOne(r runlet) *Failure {
	err := call(r.run)
	if err == nil {
		return nil
	}
	s.logger.Warn("test failure", "test", r.description, "error", err)
	return &Failure{Description: r.description, Err: err}
}

// call turns a panic in fn into an error.
func call(fn TestFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
