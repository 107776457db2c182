package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bjaus/mailmerge"
)

var (
	Version = "dev"
	Commit  = "none"
)

const watchDebounce = 200 * time.Millisecond

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	config   string
	inspect  bool
	watch    bool
	version  bool
	template string
	data     string
	sheet    string
	query    string
	output   string
	strategy string
	workers  int
	onError  string
	report   string
	logLevel string
}

func parseFlags(args []string, stderr io.Writer) (*flags, map[string]bool, error) {
	f := &flags{}
	fs := flag.NewFlagSet("mailmerge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "config file (.yaml, .yml or .toml)")
	fs.BoolVar(&f.inspect, "inspect", false, "list template placeholders and their data columns, then exit")
	fs.BoolVar(&f.watch, "watch", false, "merge again whenever the template or data file changes")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.StringVar(&f.template, "template", "", "HTML template file")
	fs.StringVar(&f.data, "data", "", "data file (.xlsx, .csv, .tsv or SQLite database)")
	fs.StringVar(&f.sheet, "sheet", "", "worksheet name (default: first sheet)")
	fs.StringVar(&f.query, "query", "", "SQL query for SQLite data")
	fs.StringVar(&f.output, "output", "", `output file, "-" for stdout`)
	fs.StringVar(&f.strategy, "strategy", "", "rendering strategy: scan, replace or segment")
	fs.IntVar(&f.workers, "workers", 0, "number of rendering goroutines")
	fs.StringVar(&f.onError, "on-error", "", "row error policy: abort or skip")
	fs.StringVar(&f.report, "report", "", "report format: table, markdown, json or yaml")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

// loadConfig reads the config file, if any, and applies the flags that were
// given on the command line.
func loadConfig(f *flags, set map[string]bool) (*mailmerge.Config, error) {
	cfg := mailmerge.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = mailmerge.LoadConfig(f.config); err != nil {
			return nil, err
		}
	}
	if set["template"] {
		cfg.Template = f.template
	}
	if set["data"] {
		cfg.Data = f.data
	}
	if set["sheet"] {
		cfg.Sheet = f.sheet
	}
	if set["query"] {
		cfg.Query = f.query
	}
	if set["output"] {
		cfg.Output = f.output
	}
	if set["strategy"] {
		cfg.Strategy = mailmerge.Strategy(f.strategy)
	}
	if set["workers"] {
		cfg.Workers = f.workers
	}
	if set["on-error"] {
		cfg.OnError = mailmerge.ErrorPolicy(f.onError)
	}
	if set["report"] {
		cfg.Report = mailmerge.Format(f.report)
	}
	if set["log-level"] {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Template == "" {
		return nil, fmt.Errorf("%w: no template given", mailmerge.ErrInvalidConfig)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: log level %q", mailmerge.ErrInvalidConfig, level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if f.version {
		fmt.Fprintf(stdout, "mailmerge %s (%s)\n", Version, Commit)
		return 0
	}
	cfg, err := loadConfig(f, set)
	if err != nil {
		fmt.Fprintln(stderr, "mailmerge:", err)
		return 2
	}
	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, "mailmerge:", err)
		return 2
	}

	a := &app{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}
	switch {
	case f.inspect:
		err = a.inspect(ctx)
	case f.watch:
		paths := []string{cfg.Template}
		if cfg.Data != "" {
			paths = append(paths, cfg.Data)
		}
		err = mailmerge.Watch(ctx, paths, watchDebounce, logger, a.merge)
	default:
		err = a.merge(ctx)
	}
	if err != nil {
		logger.Error("mailmerge failed", "error", err)
		return 1
	}
	return 0
}

type app struct {
	cfg    *mailmerge.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func (a *app) parseTemplate() (*mailmerge.Template, error) {
	sc, err := a.cfg.Scanner()
	if err != nil {
		return nil, err
	}
	return sc.ParseFile(a.cfg.Template)
}

// merge runs one merge and writes the report. With output "-" the page goes
// to stdout and the report to stderr.
func (a *app) merge(ctx context.Context) (err error) {
	tmpl, err := a.parseTemplate()
	if err != nil {
		return err
	}
	src, err := openSource(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, src.Close()) }()

	var sink mailmerge.Sink
	reportTo := a.stdout
	if a.cfg.Output == "-" {
		sink = mailmerge.NewHTMLSink(a.stdout, a.cfg.DocumentOptions()...)
		reportTo = a.stderr
	} else {
		sink = mailmerge.NewFileSink(a.cfg.Output, a.cfg.DocumentOptions()...)
	}

	opts := append(a.cfg.MergeOptions(), mailmerge.WithLogger(a.logger))
	rep, err := mailmerge.Merge(ctx, tmpl, src, sink, opts...)
	if err != nil {
		return err
	}
	return mailmerge.WriteReport(reportTo, a.cfg.Report, rep)
}

// inspect lists the template placeholders. When data is configured each
// placeholder is matched against its fields and unmatched placeholders make
// the command fail.
func (a *app) inspect(ctx context.Context) (err error) {
	tmpl, err := a.parseTemplate()
	if err != nil {
		return err
	}
	var fields []string
	if a.cfg.Data != "" {
		src, err := openSource(ctx, a.cfg)
		if err != nil {
			return err
		}
		fields = src.Fields()
		if err := src.Close(); err != nil {
			return err
		}
	}
	placeholders := mailmerge.Inspect(tmpl, fields)
	if err := mailmerge.WriteInspection(a.stdout, a.cfg.Report, placeholders); err != nil {
		return err
	}
	if a.cfg.Data == "" {
		return nil
	}
	return mailmerge.Validate(tmpl.Names(), fields)
}
