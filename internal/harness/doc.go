// Package harness is a small BDD test runner for keyword apps plus a
// YAML scenario format that drives mounted apps through it.
//
// # Suites
//
// A Suite registers describes, tests and hooks, then runs them in order:
//
//	s := harness.NewSuite(harness.WithFlusher(f))
//	s.Describe("counter", func() {
//	    s.BeforeEach(mount)
//	    s.It("increments", func() error {
//	        click()
//	        if err := s.Flush(""); err != nil {
//	            return err
//	        }
//	        return harness.Expect(count()).ToEqual(1.0)
//	    })
//	})
//	result := s.Run()
//
// Hooks registered on a describe apply to every describe nested in it
// afterwards. If any DescribeOnly group exists, only those run.
//
// # Scenario Format
//
//	name: counter
//	description: "clicking increments"
//	document: counter.html
//	components: [counter.cue]
//	root: app
//	data: { start: 1 }
//	tests:
//	  - it: increments on click
//	    steps:
//	      - dispatch: { attr: "$ref", value: inc, event: click }
//	      - flush: ""
//	      - expect: { attr: "$ref", value: count, text: "2" }
//	      - expect: { eval: "count", equals: 2 }
//	      - snapshot: after-click
//
// Every test mounts a fresh app and records into a journal with a
// deterministic clock and run id. RunWithGolden compares the recorded
// journal against testdata/golden/{name}.golden.
package harness
