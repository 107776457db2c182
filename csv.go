package mailmerge

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
)

// CSVSource reads rows from delimited text. The first record is the header
// and every record must have the same number of fields.
type CSVSource struct {
	r        *csv.Reader
	closer   io.Closer
	fields   []string
	reserved int
	row      int
}

// NewCSVSource reads the header from r.
func NewCSVSource(r io.Reader, opts ...SourceOption) (*CSVSource, error) {
	o := newSourceOptions(opts)
	cr := csv.NewReader(r)
	cr.Comma = o.comma
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header", ErrEmptySource)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	fields, err := splitHeader(header, o.reserved)
	if err != nil {
		return nil, err
	}
	return &CSVSource{r: cr, fields: fields, reserved: len(o.reserved)}, nil
}

// OpenCSV opens the file at path. Close releases it.
func OpenCSV(path string, opts ...SourceOption) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	s, err := NewCSVSource(f, opts...)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	s.closer = f
	return s, nil
}

// Fields implements [Source].
func (s *CSVSource) Fields() []string { return s.fields }

// Records implements [Source]. The underlying reader is consumed, so the
// sequence can be iterated once.
func (s *CSVSource) Records(context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			cells, err := s.r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Record{}, fmt.Errorf("read csv: %w", err))
				return
			}
			s.row++
			if !yield(newRecord(s.row, cells, s.reserved, len(s.fields), false), nil) {
				return
			}
		}
	}
}

// Close closes the file opened by [OpenCSV]. It is a no-op otherwise.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
