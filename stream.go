package mailmerge

import (
	"context"
	"iter"
	"slices"
)

// SliceSource is an in-memory [Source]. Rows hold field values only, with
// no reserved columns.
type SliceSource struct {
	fields []string
	rows   [][]string
}

// NewSliceSource returns a source over rows.
func NewSliceSource(fields []string, rows ...[]string) *SliceSource {
	return &SliceSource{fields: slices.Clone(fields), rows: rows}
}

// Fields implements [Source].
func (s *SliceSource) Fields() []string { return s.fields }

// Records implements [Source].
func (s *SliceSource) Records(context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for i, row := range s.rows {
			if !yield(Record{Row: i + 1, Values: row}, nil) {
				return
			}
		}
	}
}

// ChanSource is a [Source] fed by a channel. Rows are yielded as they
// arrive until the channel is closed or the context passed to Records is
// done, in which case the context error is yielded.
type ChanSource struct {
	fields []string
	ch     <-chan []string
}

// NewChanSource returns a source reading rows from ch.
func NewChanSource(fields []string, ch <-chan []string) *ChanSource {
	return &ChanSource{fields: slices.Clone(fields), ch: ch}
}

// Fields implements [Source].
func (s *ChanSource) Fields() []string { return s.fields }

// Records implements [Source].
func (s *ChanSource) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for n := 1; ; n++ {
			select {
			case row, ok := <-s.ch:
				if !ok {
					return
				}
				if !yield(Record{Row: n, Values: row}, nil) {
					return
				}
			case <-ctx.Done():
				yield(Record{}, ctx.Err())
				return
			}
		}
	}
}
