package mailmerge_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bjaus/mailmerge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test sinks and sources ---

type recordingSink struct {
	mu      sync.Mutex
	docs    []string
	opened  int
	closed  int
	aborted int
	failAt  int
}

func (s *recordingSink) Open() error {
	s.opened++
	return nil
}

func (s *recordingSink) Append(doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.docs)+1 == s.failAt {
		return errWrite
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed++
	return nil
}

type abortingSink struct {
	recordingSink
}

func (s *abortingSink) Abort() error {
	s.aborted++
	return nil
}

type failingSource struct {
	fields []string
	rows   [][]string
	err    error
}

func (s failingSource) Fields() []string { return s.fields }

func (s failingSource) Records(context.Context) iter.Seq2[mailmerge.Record, error] {
	return func(yield func(mailmerge.Record, error) bool) {
		for i, row := range s.rows {
			if !yield(mailmerge.Record{Row: i + 1, Values: row}, nil) {
				return
			}
		}
		yield(mailmerge.Record{}, s.err)
	}
}

func numberedRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i + 1)}
	}
	return rows
}

// ============================================================
// Tests
// ============================================================

func TestMergeOrder(t *testing.T) {
	t.Parallel()
	tmpl := mailmerge.Parse("<p>[---N---]</p>")
	rows := numberedRows(200)
	want := make([]string, len(rows))
	for i, r := range rows {
		want[i] = "<p>" + r[0] + "</p>"
	}

	for _, workers := range []int{1, 2, 8} {
		for _, s := range mailmerge.Strategies() {
			t.Run(fmt.Sprintf("%s/%d", s, workers), func(t *testing.T) {
				t.Parallel()
				sink := &recordingSink{}
				src := mailmerge.NewSliceSource([]string{"N"}, rows...)
				rep, err := mailmerge.Merge(context.Background(), tmpl, src, sink,
					mailmerge.WithStrategy(s), mailmerge.WithWorkers(workers))
				require.NoError(t, err)
				assert.Equal(t, want, sink.docs)
				assert.Equal(t, 1, sink.opened)
				assert.Equal(t, 1, sink.closed)
				assert.Equal(t, 200, rep.Rows)
				assert.Equal(t, 200, rep.Rendered)
				assert.Equal(t, s, rep.Strategy)
			})
		}
	}
}

func TestMergeReport(t *testing.T) {
	t.Parallel()
	tmpl := mailmerge.Parse("[---A---]:[---B---]")
	src := mailmerge.NewSliceSource([]string{"A", "B"}, []string{"x", "y"}, []string{"ab", "cd"})
	sink := &recordingSink{}
	rep, err := mailmerge.Merge(context.Background(), tmpl, src, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"x:y", "ab:cd"}, sink.docs)
	assert.Equal(t, mailmerge.Segmented, rep.Strategy)
	assert.Equal(t, int64(len("x:y")+len("ab:cd")), rep.Bytes)
	assert.Zero(t, rep.Skipped)
	assert.Empty(t, rep.Failures)
}

func TestMergeEmptySource(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	rep, err := mailmerge.Merge(context.Background(), mailmerge.Parse("[---A---]"),
		mailmerge.NewSliceSource([]string{"A"}), sink)
	require.NoError(t, err)
	assert.Empty(t, sink.docs)
	assert.Equal(t, 1, sink.opened)
	assert.Equal(t, 1, sink.closed)
	assert.Zero(t, rep.Rows)
}

func TestMergeSegmentedFailsBeforeOpen(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	src := mailmerge.NewSliceSource([]string{"A"}, []string{"1"})
	_, err := mailmerge.Merge(context.Background(), mailmerge.Parse("[---A---][---B---]"), src, sink)
	var mfe *mailmerge.MissingFieldsError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, []string{"B"}, mfe.Missing)
	assert.Zero(t, sink.opened)
}

func TestMergePermissiveStrategiesWarn(t *testing.T) {
	t.Parallel()
	for _, s := range []mailmerge.Strategy{mailmerge.ScanSubstitute, mailmerge.LiteralReplace} {
		t.Run(s.String(), func(t *testing.T) {
			t.Parallel()
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			sink := &recordingSink{}
			src := mailmerge.NewSliceSource([]string{"X"}, []string{"1"})
			_, err := mailmerge.Merge(context.Background(), mailmerge.Parse("[---X---][---Y---]"), src, sink,
				mailmerge.WithStrategy(s), mailmerge.WithLogger(logger))
			require.NoError(t, err)
			assert.Equal(t, []string{"1[---Y---]"}, sink.docs)
			assert.Contains(t, logs.String(), "placeholders without a data column")
		})
	}
}

func TestMergeErrorPolicy(t *testing.T) {
	t.Parallel()
	tmpl := mailmerge.Parse("[---A---]-[---B---]")
	rows := [][]string{{"1", "a"}, {"2"}, {"3", "c"}}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("skip/%d", workers), func(t *testing.T) {
			t.Parallel()
			sink := &abortingSink{}
			src := mailmerge.NewSliceSource([]string{"A", "B"}, rows...)
			rep, err := mailmerge.Merge(context.Background(), tmpl, src, sink,
				mailmerge.WithErrorPolicy(mailmerge.Skip), mailmerge.WithWorkers(workers))
			require.NoError(t, err)
			assert.Equal(t, []string{"1-a", "3-c"}, sink.docs)
			assert.Equal(t, 3, rep.Rows)
			assert.Equal(t, 2, rep.Rendered)
			assert.Equal(t, 1, rep.Skipped)
			require.Len(t, rep.Failures, 1)
			assert.Equal(t, 2, rep.Failures[0].Row)
			assert.Contains(t, rep.Failures[0].Error, "value count mismatch")
			assert.Equal(t, 1, sink.closed)
			assert.Zero(t, sink.aborted)
		})

		t.Run(fmt.Sprintf("abort/%d", workers), func(t *testing.T) {
			t.Parallel()
			sink := &abortingSink{}
			src := mailmerge.NewSliceSource([]string{"A", "B"}, rows...)
			_, err := mailmerge.Merge(context.Background(), tmpl, src, sink, mailmerge.WithWorkers(workers))
			var re *mailmerge.RowError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, 2, re.Row)
			require.ErrorIs(t, err, mailmerge.ErrValueCount)
			assert.Equal(t, []string{"1-a"}, sink.docs)
			assert.Equal(t, 1, sink.aborted)
			assert.Zero(t, sink.closed)
		})
	}
}

func TestMergeClosesSinkWithoutAborter(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	src := mailmerge.NewSliceSource([]string{"A", "B"}, []string{"1"})
	_, err := mailmerge.Merge(context.Background(), mailmerge.Parse("[---B---]"), src, sink)
	require.ErrorIs(t, err, mailmerge.ErrValueCount)
	assert.Equal(t, 1, sink.closed)
}

func TestMergeSourceError(t *testing.T) {
	t.Parallel()
	errRead := errors.New("disk gone")
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprint(workers), func(t *testing.T) {
			t.Parallel()
			sink := &abortingSink{}
			src := failingSource{fields: []string{"A"}, rows: numberedRows(5), err: errRead}
			rep, err := mailmerge.Merge(context.Background(), mailmerge.Parse("[---A---]"), src, sink,
				mailmerge.WithWorkers(workers))
			require.ErrorIs(t, err, errRead)
			assert.Equal(t, 5, rep.Rendered)
			assert.Equal(t, 1, sink.aborted)
		})
	}
}

func TestMergeSinkError(t *testing.T) {
	t.Parallel()
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprint(workers), func(t *testing.T) {
			t.Parallel()
			sink := &abortingSink{recordingSink{failAt: 3}}
			src := mailmerge.NewSliceSource([]string{"A"}, numberedRows(10)...)
			_, err := mailmerge.Merge(context.Background(), mailmerge.Parse("[---A---]"), src, sink,
				mailmerge.WithWorkers(workers))
			require.ErrorIs(t, err, errWrite)
			assert.Equal(t, []string{"1", "2"}, sink.docs)
			assert.Equal(t, 1, sink.aborted)
		})
	}
}

func TestMergeCanceled(t *testing.T) {
	t.Parallel()
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprint(workers), func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			sink := &abortingSink{}
			src := mailmerge.NewSliceSource([]string{"A"}, numberedRows(50)...)
			_, err := mailmerge.Merge(ctx, mailmerge.Parse("[---A---]"), src, sink, mailmerge.WithWorkers(workers))
			require.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 1, sink.aborted)
		})
	}
}

func TestMergeChanSource(t *testing.T) {
	t.Parallel()
	ch := make(chan []string)
	go func() {
		defer close(ch)
		for _, name := range []string{"Ann", "Bob", "Cy"} {
			ch <- []string{name}
		}
	}()
	sink := &recordingSink{}
	rep, err := mailmerge.Merge(context.Background(), mailmerge.Parse("Hi [---NAME---]"),
		mailmerge.NewChanSource([]string{"NAME"}, ch), sink, mailmerge.WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi Ann", "Hi Bob", "Hi Cy"}, sink.docs)
	assert.Equal(t, 3, rep.Rendered)
}

func TestMergeChanSourceDeadline(t *testing.T) {
	t.Parallel()
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprint(workers), func(t *testing.T) {
			t.Parallel()
			// The channel stays open and idle after its first row.
			ch := make(chan []string, 1)
			ch <- []string{"Ann"}
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			sink := &abortingSink{}
			type result struct {
				rep mailmerge.Report
				err error
			}
			done := make(chan result, 1)
			go func() {
				rep, err := mailmerge.Merge(ctx, mailmerge.Parse("Hi [---NAME---]"),
					mailmerge.NewChanSource([]string{"NAME"}, ch), sink, mailmerge.WithWorkers(workers))
				done <- result{rep, err}
			}()

			select {
			case res := <-done:
				require.ErrorIs(t, res.err, context.DeadlineExceeded)
				assert.Equal(t, 1, res.rep.Rendered)
				assert.Equal(t, []string{"Hi Ann"}, sink.docs)
				assert.Equal(t, 1, sink.aborted)
			case <-time.After(2 * time.Second):
				t.Fatal("Merge did not return after the deadline")
			}
		})
	}
}

func TestNewMergerInvalidOptions(t *testing.T) {
	t.Parallel()
	tmpl := mailmerge.Parse("")
	tests := map[string]struct {
		opt    mailmerge.Option
		target error
	}{
		"strategy": {opt: mailmerge.WithStrategy("regex"), target: mailmerge.ErrUnsupportedStrategy},
		"policy":   {opt: mailmerge.WithErrorPolicy("retry"), target: mailmerge.ErrUnsupportedPolicy},
		"workers":  {opt: mailmerge.WithWorkers(0), target: mailmerge.ErrInvalidConfig},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := mailmerge.NewMerger(tmpl, tt.opt)
			require.ErrorIs(t, err, tt.target)
		})
	}
}
