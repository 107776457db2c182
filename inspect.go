package mailmerge

import (
	"fmt"
	"io"
	"strconv"
)

// Placeholder describes one distinct placeholder of a template.
type Placeholder struct {
	Name        string `json:"name" yaml:"name"`
	Occurrences int    `json:"occurrences" yaml:"occurrences"`
	// Column is the position of the matching field, or -1 if there is none.
	Column int `json:"column" yaml:"column"`
}

// Bound reports whether the placeholder has a matching field.
func (p Placeholder) Bound() bool { return p.Column >= 0 }

// Inspect lists the distinct placeholders of t in order of first appearance,
// with their occurrence counts and positions in fields. Duplicate field
// names resolve to the last position, as in [Resolve].
func Inspect(t *Template, fields []string) []Placeholder {
	index := make(map[string]int, len(fields))
	for i, n := range fields {
		index[n] = i
	}
	counts := make(map[string]int)
	for _, n := range t.names {
		counts[n]++
	}
	names := t.Fields()
	out := make([]Placeholder, len(names))
	for i, n := range names {
		col, ok := index[n]
		if !ok {
			col = -1
		}
		out[i] = Placeholder{Name: n, Occurrences: counts[n], Column: col}
	}
	return out
}

// WriteInspection writes placeholders to w in format f.
func WriteInspection(w io.Writer, f Format, placeholders []Placeholder) error {
	switch f {
	case JSON:
		return writeJSON(w, placeholders)
	case YAML:
		return writeYAML(w, placeholders)
	case Table, Markdown:
		rows := make([][]string, len(placeholders))
		for i, p := range placeholders {
			col := "missing"
			if p.Bound() {
				col = strconv.Itoa(p.Column)
			}
			rows[i] = []string{p.Name, strconv.Itoa(p.Occurrences), col}
		}
		header := []string{"Placeholder", "Occurrences", "Column"}
		return writeGrid(w, f, "", header, rows, []alignment{alignLeft, alignRight, alignRight})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
