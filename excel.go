package mailmerge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/xuri/excelize/v2"
)

// ExcelSource reads rows from one worksheet of an xlsx workbook. The first
// row is the header. Cells are read as their formatted string values and
// rows shorter than the header are padded with empty values.
type ExcelSource struct {
	file     *excelize.File
	sheet    string
	fields   []string
	rows     [][]string
	reserved int
}

// OpenExcel opens the workbook at path.
func OpenExcel(path string, opts ...SourceOption) (*ExcelSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return newExcelSource(f, newSourceOptions(opts))
}

// ReadExcel reads a workbook from r.
func ReadExcel(r io.Reader, opts ...SourceOption) (*ExcelSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return newExcelSource(f, newSourceOptions(opts))
}

func newExcelSource(f *excelize.File, o sourceOptions) (*ExcelSource, error) {
	sheet := o.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Join(fmt.Errorf("%w: workbook has no sheets", ErrEmptySource), f.Close())
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("read sheet %q: %w", sheet, err), f.Close())
	}
	if len(rows) == 0 {
		return nil, errors.Join(fmt.Errorf("%w: sheet %q is empty", ErrEmptySource, sheet), f.Close())
	}
	fields, err := splitHeader(rows[0], o.reserved)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	return &ExcelSource{
		file:     f,
		sheet:    sheet,
		fields:   fields,
		rows:     rows[1:],
		reserved: len(o.reserved),
	}, nil
}

// Sheet returns the name of the worksheet being read.
func (s *ExcelSource) Sheet() string { return s.sheet }

// Fields implements [Source].
func (s *ExcelSource) Fields() []string { return s.fields }

// Records implements [Source]. The sheet is read when the source is opened,
// so Records may be iterated more than once.
func (s *ExcelSource) Records(context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for i, cells := range s.rows {
			if !yield(newRecord(i+1, cells, s.reserved, len(s.fields), true), nil) {
				return
			}
		}
	}
}

// Close releases the workbook.
func (s *ExcelSource) Close() error {
	return s.file.Close()
}
