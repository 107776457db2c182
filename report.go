package mailmerge

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

// Format is an output format for reports and template inspection.
type Format string

const (
	Table    Format = "table"
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

var formats = []Format{Table, Markdown, JSON, YAML}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Formats returns all supported format names.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Report summarizes one merge.
type Report struct {
	Strategy Strategy      `json:"strategy" yaml:"strategy"`
	Rows     int           `json:"rows" yaml:"rows"`
	Rendered int           `json:"rendered" yaml:"rendered"`
	Skipped  int           `json:"skipped" yaml:"skipped"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Failures []Failure     `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Failure is a row skipped under the [Skip] policy.
type Failure struct {
	Row   int    `json:"row" yaml:"row"`
	Error string `json:"error" yaml:"error"`
}

func (r Report) summaryRows() [][]string {
	return [][]string{
		{"Strategy", r.Strategy.String()},
		{"Rows", strconv.Itoa(r.Rows)},
		{"Rendered", strconv.Itoa(r.Rendered)},
		{"Skipped", strconv.Itoa(r.Skipped)},
		{"Bytes", strconv.FormatInt(r.Bytes, 10)},
		{"Duration", r.Duration.Round(time.Microsecond).String()},
	}
}

func (r Report) failureRows() [][]string {
	rows := make([][]string, len(r.Failures))
	for i, f := range r.Failures {
		rows[i] = []string{strconv.Itoa(f.Row), f.Error}
	}
	return rows
}

// WriteReport writes r to w in format f. Table and Markdown write a summary
// table followed by a table of skipped rows, if any.
func WriteReport(w io.Writer, f Format, r Report) error {
	switch f {
	case JSON:
		return writeJSON(w, r)
	case YAML:
		return writeYAML(w, r)
	case Table, Markdown:
		summary := []alignment{alignLeft, alignRight}
		if err := writeGrid(w, f, "Merge report", []string{"Metric", "Value"}, r.summaryRows(), summary); err != nil {
			return err
		}
		if len(r.Failures) == 0 {
			return nil
		}
		if f == Markdown {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		return writeGrid(w, f, "Skipped rows", []string{"Row", "Error"}, r.failureRows(), []alignment{alignRight})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

func writeGrid(w io.Writer, f Format, title string, header []string, rows [][]string, aligns []alignment) error {
	if f == Markdown {
		return writeMarkdown(w, title, header, rows, aligns)
	}
	return writeTable(w, title, header, rows, aligns)
}
