package mailmerge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
)

// SQLSource reads rows from a query result. Column names form the header and
// NULL values read as empty strings. The caller registers the driver.
type SQLSource struct {
	rows     *sql.Rows
	fields   []string
	reserved int
	width    int
	row      int
}

// QuerySQL runs query on db. Pass arguments with [WithArgs].
func QuerySQL(ctx context.Context, db *sql.DB, query string, opts ...SourceOption) (*SQLSource, error) {
	o := newSourceOptions(opts)
	rows, err := db.QueryContext(ctx, query, o.args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("columns: %w", err), rows.Close())
	}
	fields, err := splitHeader(cols, o.reserved)
	if err != nil {
		return nil, errors.Join(err, rows.Close())
	}
	return &SQLSource{rows: rows, fields: fields, reserved: len(o.reserved), width: len(cols)}, nil
}

// Fields implements [Source].
func (s *SQLSource) Fields() []string { return s.fields }

// Records implements [Source]. The result set is consumed, so the sequence
// can be iterated once.
func (s *SQLSource) Records(context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		dest := make([]sql.NullString, s.width)
		ptrs := make([]any, s.width)
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		for s.rows.Next() {
			if err := s.rows.Scan(ptrs...); err != nil {
				yield(Record{}, fmt.Errorf("scan row %d: %w", s.row+1, err))
				return
			}
			cells := make([]string, s.width)
			for i, v := range dest {
				cells[i] = v.String
			}
			s.row++
			if !yield(newRecord(s.row, cells, s.reserved, len(s.fields), false), nil) {
				return
			}
		}
		if err := s.rows.Err(); err != nil {
			yield(Record{}, fmt.Errorf("read rows: %w", err))
		}
	}
}

// Close releases the result set.
func (s *SQLSource) Close() error {
	return s.rows.Close()
}
