package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"runtime/debug"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ansel1/llmtest/config"
	"github.com/ansel1/llmtest/coverage"
	"github.com/ansel1/llmtest/engine"
	"github.com/ansel1/llmtest/gomod"
	"github.com/ansel1/llmtest/logging"
	"github.com/ansel1/llmtest/output"
	"github.com/ansel1/llmtest/report"
	"github.com/ansel1/llmtest/results"
	"github.com/ansel1/llmtest/tui"
)

var version = "dev"

// Exit statuses.
const (
	exitOK      = 0
	exitFailed  = 1 // failing tests, an error section, or the report could not be written
	exitInvalid = 2 // bad usage, configuration or input
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// invalidError marks errors caused by the invocation rather than the run.
type invalidError struct {
	err error
}

func (e *invalidError) Error() string { return e.err.Error() }
func (e *invalidError) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return &invalidError{err: fmt.Errorf(format, args...)}
}

type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	lookupEnv      config.LookupEnv

	code int
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, lookupEnv: os.LookupEnv, code: exitOK}
	return a.execute(args)
}

func (a *app) execute(args []string) int {
	root := a.command()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		var cfgErr *config.Error
		var invErr *invalidError
		// cobra reports a stray argument as an unknown subcommand
		if errors.As(err, &cfgErr) || errors.As(err, &invErr) || strings.HasPrefix(err.Error(), "unknown command") {
			return exitInvalid
		}
		return exitFailed
	}
	return a.code
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "llmtest",
		Short: "Summarize go test -json output for language models",
		Long: `llmtest reads the output of go test -json and writes a compact report:
what passed, what failed and where, flaky and skipped tests, and optionally
coverage. Pipe go test -json ./... into it, or read a saved stream with -f.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &invalidError{err: err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd.Context(), cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &invalidError{err: err}
	})
	config.Flags(root.Flags())

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "llmtest %s\n", buildVersion())
		},
	})
	return root
}

func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func (a *app) report(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Resolve(cmd.Flags(), a.lookupEnv)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, a.stderr)
	defer log.Sync()
	logSources(log, cfg)

	if cfg.Replay && cfg.Input == "" {
		return invalid("--replay requires --input")
	}

	input := a.stdin
	if cfg.Input != "" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return invalid("opening input: %w", err)
		}
		defer f.Close()
		input = f
		if cfg.Replay {
			input = engine.NewReplayReader(f, cfg.Rate)
		}
	}

	opts := []engine.Option{engine.WithLogger(log)}
	if cfg.OutFile != "" {
		f, err := os.Create(cfg.OutFile)
		if err != nil {
			return invalid("creating output file: %w", err)
		}
		defer f.Close()
		opts = append(opts, engine.WithRawOutput(f))
	}
	if cfg.JSONFile != "" {
		f, err := os.Create(cfg.JSONFile)
		if err != nil {
			return invalid("creating JSON file: %w", err)
		}
		defer f.Close()
		opts = append(opts, engine.WithJSONOutput(f))
	}

	module, err := gomod.Find(cfg.Root)
	if err != nil {
		log.Debug("locations will use import paths", zap.Error(err))
	} else {
		log.Debug("module found", zap.String("path", module.Path), zap.String("root", module.Root))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	collector := results.NewCollector(results.WithLogger(log))
	events := engine.NewEngine(opts...).Stream(ctx, input)

	var program *tea.Program
	if cfg.Progress && isTerminal(a.stderr) {
		program = tea.NewProgram(tui.NewModel(collector),
			tea.WithOutput(a.stderr), tea.WithInput(nil), tea.WithContext(ctx))
		go tui.Forward(program, collector.Subscribe())
	}

	var cov *report.Coverage
	g := new(errgroup.Group)
	g.Go(func() error {
		collector.ProcessEvents(events)
		return nil
	})
	if cfg.CoverProfile != "" {
		g.Go(func() error {
			var err error
			cov, err = coverage.Load(cfg.CoverProfile, coverage.Options{Module: module, Verbose: cfg.CoverageVerbose})
			if err != nil {
				return &invalidError{err: err}
			}
			log.Debug("coverage loaded", zap.String("profile", cfg.CoverProfile), zap.Int("files", len(cov.Files)))
			return nil
		})
	}
	if program != nil {
		g.Go(func() error {
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				log.Warn("progress display failed", zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if errs := collector.Errors(); len(errs) > 0 {
		return &invalidError{err: errors.Join(errs...)}
	}

	var locator *results.Locator
	if module.Root != "" {
		locator = results.NewLocator(module)
	}
	snap := collector.Snapshot(results.SnapshotOptions{
		Filter:  cfg.Filter,
		Timing:  cfg.Timing,
		Module:  module,
		Locator: locator,
	})
	snap.Coverage = cov

	doc, err := report.Assemble(snap)
	if err != nil {
		return fmt.Errorf("assembling report: %w", err)
	}
	log.Debug("report assembled", zap.Strings("sections", doc.Sections()))

	sink := output.Sink{Path: cfg.Output, Stdout: a.stdout}
	var colorizer *output.Colorizer
	if !sink.IsFile() {
		tty := isTerminal(a.stdout)
		colorizer = output.NewColorizer(output.ColorOptions{
			Color:      cfg.UseColor(tty),
			Hyperlinks: cfg.Hyperlinks && tty,
			Root:       module.Root,
		})
	}
	if err := writeReport(doc, sink, colorizer); err != nil {
		return err
	}
	log.Debug("report written", zap.Stringer("to", sink))

	if doc.Error != "" || len(doc.Failing) > 0 {
		a.code = exitFailed
	}
	return nil
}

// writeReport encodes doc and writes it to sink, colorized when colorizer
// is set. Nothing is written when encoding fails.
func writeReport(doc *report.Document, sink output.Sink, colorizer *output.Colorizer) error {
	text, err := doc.Text()
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if colorizer != nil {
		text = colorizer.Colorize(text)
	}
	return sink.Write(text)
}

func logSources(log *zap.Logger, cfg *config.Config) {
	if cfg.File != "" {
		log.Debug("config file", zap.String("path", cfg.File))
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Sources)) {
		log.Debug("option", zap.String("key", k), zap.String("source", string(cfg.Sources[k])))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
