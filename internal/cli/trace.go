package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/keywords/internal/engine"
	"github.com/roach88/keywords/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Run      string // optional - show a single run
	Kind     string // optional - filter entries by kind
}

// RunTrace is the journal of one run.
type RunTrace struct {
	Run       journal.Run        `json:"run"`
	Entries   []journal.Entry    `json:"entries"`
	Snapshots []journal.Snapshot `json:"snapshots"`
	Stats     TraceStats         `json:"stats"`
}

// TraceStats summarises a run.
type TraceStats struct {
	Mounts     int `json:"mounts"`
	Refreshes  int `json:"refreshes"`
	Dispatches int `json:"dispatches"`
	Windows    int `json:"windows"`
	Tasks      int `json:"tasks"`
	Failed     int `json:"failed"`
}

// TraceResult holds the trace output.
type TraceResult struct {
	Runs []RunTrace `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the render journal",
		Long: `Print what the engine recorded into a journal.

For every run (or only --run) the output lists the entries in sequence
order: mounts, refreshes, dispatched events and refresh windows,
followed by the snapshots and a summary.

Examples:
  keywords trace --db ./journal.db
  keywords trace --db ./journal.db --run counter-2
  keywords trace --db ./journal.db --kind window --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show entries of this kind (mount|refresh|window|dispatch)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("journal not found: %s", opts.Database), err)
	}
	st, err := journal.Open(opts.Database)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer st.Close()

	result, err := buildTrace(ctx, st, opts.Run, opts.Kind)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeJournal, err.Error(), err)
	}

	if f.JSON() {
		return f.Success(result)
	}
	if len(result.Runs) == 0 {
		if opts.Run != "" {
			fmt.Fprintf(f.Writer, "No run found: %s\n", opts.Run)
		} else {
			fmt.Fprintln(f.Writer, "Journal is empty.")
		}
		return nil
	}
	for i, rt := range result.Runs {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		writeRunTrace(f.Writer, rt, opts.Verbose)
	}
	return nil
}

func buildTrace(ctx context.Context, st *journal.Store, runID, kind string) (TraceResult, error) {
	runs, err := st.Runs(ctx)
	if err != nil {
		return TraceResult{}, fmt.Errorf("failed to list runs: %w", err)
	}

	result := TraceResult{Runs: []RunTrace{}}
	for _, run := range runs {
		if runID != "" && run.ID != runID {
			continue
		}
		entries, err := st.Entries(ctx, run.ID, kind)
		if err != nil {
			return TraceResult{}, fmt.Errorf("failed to read entries of %s: %w", run.ID, err)
		}
		snaps, err := st.Snapshots(ctx, run.ID)
		if err != nil {
			return TraceResult{}, fmt.Errorf("failed to read snapshots of %s: %w", run.ID, err)
		}
		result.Runs = append(result.Runs, RunTrace{
			Run:       run,
			Entries:   entries,
			Snapshots: snaps,
			Stats:     stats(entries),
		})
	}
	return result, nil
}

func stats(entries []journal.Entry) TraceStats {
	var s TraceStats
	for _, e := range entries {
		switch e.Kind {
		case string(engine.EventMount):
			s.Mounts++
		case string(engine.EventRefresh):
			s.Refreshes++
		case journal.KindDispatch:
			s.Dispatches++
		case string(engine.EventWindow):
			s.Windows++
			s.Tasks += e.Tasks
			s.Failed += e.Failed
		}
	}
	return s
}

func writeRunTrace(w io.Writer, rt RunTrace, verbose bool) {
	fmt.Fprintf(w, "Run: %s", rt.Run.ID)
	if rt.Run.Label != "" {
		fmt.Fprintf(w, " (%s)", rt.Run.Label)
	}
	fmt.Fprintf(w, " root=#%s\n", rt.Run.Root)

	fmt.Fprintln(w, "Entries:")
	if len(rt.Entries) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, e := range rt.Entries {
		fmt.Fprintf(w, "  [%d] %s\n", e.Seq, formatEntry(e))
	}

	if len(rt.Snapshots) > 0 {
		fmt.Fprintln(w, "Snapshots:")
		for _, s := range rt.Snapshots {
			fmt.Fprintf(w, "  [%d] %s %s\n", s.Seq, s.Name, truncateDigest(s.Digest))
			if verbose {
				fmt.Fprintf(w, "      %s\n", s.HTML)
			}
		}
	}

	fmt.Fprintf(w, "Stats: %d mount(s), %d refresh(es), %d dispatch(es), %d window(s), %d task(s), %d failed\n",
		rt.Stats.Mounts, rt.Stats.Refreshes, rt.Stats.Dispatches, rt.Stats.Windows, rt.Stats.Tasks, rt.Stats.Failed)
}

func formatEntry(e journal.Entry) string {
	switch e.Kind {
	case string(engine.EventWindow):
		return fmt.Sprintf("window %d: %d task(s), %d failed", e.Window, e.Tasks, e.Failed)
	case journal.KindDispatch:
		return fmt.Sprintf("dispatch %s -> %s", e.Event, e.Target)
	case string(engine.EventRefresh):
		if e.Ref != "" {
			return fmt.Sprintf("refresh %s ref=%s", e.Component, e.Ref)
		}
		return "refresh " + e.Component
	default:
		if e.TemplateID != "" && e.TemplateID != e.Component {
			return fmt.Sprintf("%s %s template=%s", e.Kind, e.Component, e.TemplateID)
		}
		return e.Kind + " " + e.Component
	}
}

func truncateDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
