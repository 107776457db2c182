package mailmerge

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// DefaultReserved are the recipient columns a mailing sheet starts with.
var DefaultReserved = []string{"DESTINATAIRES", "DESTINATAIRES_COPIE"}

// Record is one data row.
type Record struct {
	// Row is the 1-based data row number, header excluded.
	Row int
	// Reserved holds the cells of the reserved leading columns.
	Reserved []string
	// Values holds the field cells aligned with the source's Fields.
	Values []string
}

// Map returns the record as a name-keyed row. Fields without a value and
// values without a field are dropped.
func (r Record) Map(fields []string) map[string]string {
	n := min(len(fields), len(r.Values))
	m := make(map[string]string, n)
	for i := range n {
		m[fields[i]] = r.Values[i]
	}
	return m
}

// Source produces the rows of a merge.
type Source interface {
	// Fields returns the field names following the reserved columns.
	Fields() []string
	// Records yields rows in source order. Iteration stops at the first
	// error, which is yielded with a zero Record. Sources that can block
	// between rows stop when ctx is done.
	Records(ctx context.Context) iter.Seq2[Record, error]
}

// SourceOption configures a built-in [Source].
type SourceOption func(*sourceOptions)

type sourceOptions struct {
	reserved []string
	sheet    string
	comma    rune
	args     []any
}

func newSourceOptions(opts []SourceOption) sourceOptions {
	o := sourceOptions{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithReserved declares the leading columns the header must start with.
// Their cells go to [Record.Reserved] instead of [Record.Values].
func WithReserved(names ...string) SourceOption {
	return func(o *sourceOptions) { o.reserved = slices.Clone(names) }
}

// WithSheet selects a worksheet by name. The first sheet is used otherwise.
func WithSheet(name string) SourceOption {
	return func(o *sourceOptions) { o.sheet = name }
}

// WithComma sets the CSV field delimiter. Default: comma.
func WithComma(r rune) SourceOption {
	return func(o *sourceOptions) { o.comma = r }
}

// WithArgs sets the query arguments of a SQL source.
func WithArgs(args ...any) SourceOption {
	return func(o *sourceOptions) { o.args = args }
}

func splitHeader(header, reserved []string) ([]string, error) {
	if len(header) < len(reserved) || !slices.Equal(header[:len(reserved)], reserved) {
		return nil, fmt.Errorf("%w: first columns must be %s", ErrHeader, strings.Join(reserved, ", "))
	}
	return slices.Clone(header[len(reserved):]), nil
}

// newRecord splits cells at the reserved boundary. Short rows are padded
// with empty values up to width when pad is set.
func newRecord(row int, cells []string, reserved, width int, pad bool) Record {
	rec := Record{Row: row}
	n := min(reserved, len(cells))
	rec.Reserved = slices.Clone(cells[:n])
	rec.Values = slices.Clone(cells[n:])
	if pad && len(rec.Values) < width {
		rec.Values = append(rec.Values, make([]string, width-len(rec.Values))...)
	}
	return rec
}
