package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/keywords/internal/dom"
	"github.com/roach88/keywords/internal/engine"
	"github.com/roach88/keywords/internal/journal"
	"github.com/roach88/keywords/internal/value"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Root       string
	Components string
	Data       string
	Database   string
	Label      string
	PlainTags  []string
	Document   bool // print the whole document instead of the root element

	// RunIDs overrides the journal run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs journal.RunIDGenerator
}

// RenderResult is the JSON payload of the render command.
type RenderResult struct {
	HTML    string   `json:"html"`
	RunID   string   `json:"run_id,omitempty"`
	Windows int      `json:"windows"`
	Errors  []string `json:"errors,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <document.html>",
		Short: "Mount an app and print the rendered HTML",
		Long: `Mount the application root of an HTML document and print the result.

Components are loaded from the CUE files of --components. Initial data
comes from a YAML or JSON object file. The loop is drained before
printing, so every scheduled refresh has run.

With --db, mounts, refreshes and windows are recorded in a SQLite
journal together with a final snapshot of the app.

Examples:
  keywords render index.html --root app --components ./components
  keywords render index.html --root app --data data.yaml --db ./journal.db
  keywords render index.html --root app --plain-tags div,ul,li,template`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "id of the application root element (required)")
	_ = cmd.MarkFlagRequired("root")
	cmd.Flags().StringVar(&opts.Components, "components", "", "directory of CUE component specs")
	cmd.Flags().StringVar(&opts.Data, "data", "", "YAML or JSON file with the initial app data")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to a SQLite journal")
	cmd.Flags().StringVar(&opts.Label, "label", "", "journal run label (defaults to the document path)")
	cmd.Flags().StringSliceVar(&opts.PlainTags, "plain-tags", nil, "tags rendered as plain elements instead of components")
	cmd.Flags().BoolVar(&opts.Document, "document", false, "print the whole document")

	return cmd
}

func runRender(opts *RenderOptions, docPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := os.Open(docPath)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("document not found: %s", docPath), err)
	}
	doc, err := dom.Parse(src)
	src.Close()
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("parsing document: %v", err), err)
	}

	data, err := readData(opts.Data)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeBadData, err.Error(), err)
	}

	var renderErrs []error
	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithErrorHandler(func(err error) {
			logger.Warn("refresh failed", "error", err)
			renderErrs = append(renderErrs, err)
		}),
	}
	if len(opts.PlainTags) > 0 {
		engOpts = append(engOpts, engine.WithPlainTags(opts.PlainTags...))
	}

	var recorder *journal.Recorder
	if opts.Database != "" {
		store, err := journal.Open(opts.Database)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				logger.Error("error closing journal", "error", cerr)
			}
		}()

		label := opts.Label
		if label == "" {
			label = docPath
		}
		var recOpts []journal.RecorderOption
		if opts.RunIDs != nil {
			recOpts = append(recOpts, journal.WithRunIDs(opts.RunIDs))
		}
		recorder, err = journal.NewRecorder(ctx, store, label, opts.Root, recOpts...)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeJournal, "failed to start journal run", err)
		}
		engOpts = append(engOpts, engine.WithJournal(recorder))
		f.VerboseLog("Recording run %s into %s", recorder.RunID(), opts.Database)
	}

	eng := engine.New(doc, engOpts...)

	if opts.Components != "" {
		result, errs := LoadComponents(opts.Components, LoadModeFailFast)
		if result == nil {
			return loadFailure(f, errs)
		}
		if len(errs) > 0 {
			return outputCompileErrors(f, errs)
		}
		for _, def := range result.Definitions {
			if err := eng.Define(*def); err != nil {
				return f.fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
			}
			f.VerboseLog("Defined component: %s", def.Name)
		}
	}

	app, err := eng.MountApp(doc.GetElementByID(opts.Root), data)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeMountFailed, fmt.Sprintf("mounting #%s: %v", opts.Root, err), err)
	}

	drain(eng)

	inner, err := dom.InnerHTML(app.Element)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}

	out := RenderResult{Windows: eng.Scheduler().Windows()}
	if opts.Document {
		out.HTML, err = dom.OuterHTML(doc.Root())
	} else {
		out.HTML, err = dom.OuterHTML(app.Element)
	}
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}

	if recorder != nil {
		out.RunID = recorder.RunID()
		if _, err := recorder.Snapshot("final", inner, app.Instance.Data); err != nil {
			return f.fail(ExitCommandError, ErrCodeJournal, "failed to write snapshot", err)
		}
	}
	for _, e := range renderErrs {
		out.Errors = append(out.Errors, e.Error())
	}

	if f.JSON() {
		if err := f.Success(out); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, out.HTML)
		for _, e := range out.Errors {
			fmt.Fprintf(f.GetErrWriter(), "✗ %s\n", e)
		}
	}

	if len(renderErrs) > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d refresh(es) failed", len(renderErrs)), errors.Join(renderErrs...))
	}
	return nil
}

// readData reads an object from a YAML or JSON file into engine values.
// An empty path yields empty data.
func readData(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("data file %s must hold an object: %w", path, err)
	}
	data, err := value.NormalizeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("data file %s: %w", path, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// newLogger builds the command logger: a text handler on w, debug level
// under --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// drain runs loop turns until none are left, so every scheduled
// refresh window has closed.
func drain(eng *engine.Engine) {
	for {
		if eng.Loop().RunPending() == 0 {
			return
		}
	}
}
