package mailmerge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RowError is a row that failed to render.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

// Unwrap returns the render error.
func (e *RowError) Unwrap() error { return e.Err }

// Merger renders every row of a [Source] with one template and appends the
// documents to a [Sink] in source order.
type Merger struct {
	tmpl     *Template
	strategy Strategy
	policy   ErrorPolicy
	workers  int
	logger   *slog.Logger
}

// Option configures a [Merger].
type Option func(*Merger)

// WithStrategy selects the rendering strategy. Default: [Segmented].
func WithStrategy(s Strategy) Option {
	return func(m *Merger) { m.strategy = s }
}

// WithErrorPolicy selects what happens to rows that fail to render.
// Default: [Abort].
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(m *Merger) { m.policy = p }
}

// WithWorkers sets the number of goroutines rendering rows. Documents are
// still appended in source order. Default: 1.
func WithWorkers(n int) Option {
	return func(m *Merger) { m.workers = n }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) { m.logger = l }
}

// NewMerger returns a Merger for tmpl.
func NewMerger(tmpl *Template, opts ...Option) (*Merger, error) {
	m := &Merger{
		tmpl:     tmpl,
		strategy: Segmented,
		policy:   Abort,
		workers:  1,
	}
	for _, opt := range opts {
		opt(m)
	}
	if _, err := ParseStrategy(string(m.strategy)); err != nil {
		return nil, err
	}
	if _, err := ParseErrorPolicy(string(m.policy)); err != nil {
		return nil, err
	}
	if m.workers < 1 {
		return nil, fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, m.workers)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m, nil
}

// Merge renders tmpl for every row of src into sink. See [Merger.Merge].
func Merge(ctx context.Context, tmpl *Template, src Source, sink Sink, opts ...Option) (Report, error) {
	m, err := NewMerger(tmpl, opts...)
	if err != nil {
		return Report{}, err
	}
	return m.Merge(ctx, src, sink)
}

type renderFunc func(Record) (string, error)

// prepare picks the render path for fields. The segmented strategy binds the
// template to the field order up front and fails if a placeholder has no
// column. The permissive strategies only warn.
func (m *Merger) prepare(ctx context.Context, fields []string) (renderFunc, error) {
	if m.strategy == Segmented {
		b, err := m.tmpl.Bind(fields)
		if err != nil {
			return nil, err
		}
		return func(rec Record) (string, error) { return b.Render(rec.Values) }, nil
	}
	var mfe *MissingFieldsError
	if err := Validate(m.tmpl.Names(), fields); errors.As(err, &mfe) {
		m.logger.WarnContext(ctx, "placeholders without a data column are left as written",
			"strategy", m.strategy, "missing", mfe.Missing)
	}
	r, err := m.tmpl.Renderer(m.strategy)
	if err != nil {
		return nil, err
	}
	return func(rec Record) (string, error) { return r.Render(rec.Map(fields)) }, nil
}

// Merge renders every row of src and appends the documents to sink. The
// sink is always finalized: closed on success, aborted (or closed, if it is
// not an [Aborter]) on failure. The report describes the rows processed
// before the merge returned.
func (m *Merger) Merge(ctx context.Context, src Source, sink Sink) (rep Report, err error) {
	start := time.Now()
	rep.Strategy = m.strategy
	fields := src.Fields()
	render, err := m.prepare(ctx, fields)
	if err != nil {
		return rep, err
	}

	m.logger.InfoContext(ctx, "merge started",
		"strategy", m.strategy, "fields", len(fields), "placeholders", m.tmpl.Len(), "workers", m.workers)
	if err := sink.Open(); err != nil {
		return rep, fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		err = m.finish(sink, err)
		rep.Duration = time.Since(start)
		if err != nil {
			m.logger.ErrorContext(ctx, "merge failed", "rows", rep.Rows, "error", err)
			return
		}
		m.logger.InfoContext(ctx, "merge finished",
			"rendered", rep.Rendered, "skipped", rep.Skipped, "bytes", rep.Bytes, "duration", rep.Duration)
	}()

	if m.workers == 1 {
		err = m.mergeSequential(ctx, src, sink, render, &rep)
	} else {
		err = m.mergeParallel(ctx, src, sink, render, &rep)
	}
	return rep, err
}

func (m *Merger) finish(sink Sink, err error) error {
	if err == nil {
		if cerr := sink.Close(); cerr != nil {
			return fmt.Errorf("close sink: %w", cerr)
		}
		return nil
	}
	if a, ok := sink.(Aborter); ok {
		return errors.Join(err, a.Abort())
	}
	return errors.Join(err, sink.Close())
}

func (m *Merger) mergeSequential(ctx context.Context, src Source, sink Sink, render renderFunc, rep *Report) error {
	for rec, err := range src.Records(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		doc, rerr := render(rec)
		if err := m.emit(ctx, sink, rep, rec.Row, doc, rerr); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// emit applies the error policy to one rendered row and appends it.
func (m *Merger) emit(ctx context.Context, sink Sink, rep *Report, row int, doc string, rerr error) error {
	rep.Rows++
	if rerr != nil {
		re := &RowError{Row: row, Err: rerr}
		if m.policy == Abort {
			return re
		}
		m.logger.WarnContext(ctx, "row skipped", "row", row, "error", rerr)
		rep.Skipped++
		rep.Failures = append(rep.Failures, Failure{Row: row, Error: rerr.Error()})
		return nil
	}
	if err := sink.Append(doc); err != nil {
		return fmt.Errorf("append row %d: %w", row, err)
	}
	rep.Rendered++
	rep.Bytes += int64(len(doc))
	return nil
}

type rendered struct {
	row int
	doc string
	err error
}

type renderJob struct {
	rec Record
	out chan rendered
}

// mergeParallel renders rows on m.workers goroutines. The reader hands each
// job to the pool before queueing its result channel, so every queued
// channel receives exactly one result. The calling goroutine drains the
// queue in order and is the only one touching sink and rep.
func (m *Merger) mergeParallel(ctx context.Context, src Source, sink Sink, render renderFunc, rep *Report) error {
	inner, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan renderJob)
	queue := make(chan chan rendered, 2*m.workers)
	var readErr error
	go func() {
		defer close(queue)
		defer close(jobs)
		for rec, err := range src.Records(inner) {
			if err != nil {
				readErr = fmt.Errorf("read source: %w", err)
				return
			}
			out := make(chan rendered, 1)
			select {
			case jobs <- renderJob{rec: rec, out: out}:
			case <-inner.Done():
				return
			}
			select {
			case queue <- out:
			case <-inner.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range m.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				doc, err := render(j.rec)
				j.out <- rendered{row: j.rec.Row, doc: doc, err: err}
			}
		}()
	}

	var err error
	for out := range queue {
		if err = ctx.Err(); err != nil {
			break
		}
		res := <-out
		if err = m.emit(ctx, sink, rep, res.row, res.doc, res.err); err != nil {
			break
		}
	}
	cancel()
	for range queue {
	}
	wg.Wait()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return readErr
}
