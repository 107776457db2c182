package mailmerge

import (
	"fmt"
	"io"
	"strings"
)

// writeMarkdown writes a GitHub-flavored Markdown table. A non-empty title
// is written as a heading above it. Pipes in cells are escaped.
func writeMarkdown(w io.Writer, title string, header []string, rows [][]string, aligns []alignment) error {
	if len(header) == 0 {
		return nil
	}
	if title != "" {
		if _, err := fmt.Fprintf(w, "### %s\n\n", title); err != nil {
			return err
		}
	}
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(header))
		for j := range header {
			if j < len(row) {
				cells[i][j] = strings.ReplaceAll(row[j], "|", `\|`)
			}
		}
	}
	widths := columnWidths(header, cells)
	for i := range widths {
		widths[i] = max(widths[i], 3)
	}
	aligns = padAligns(aligns, len(widths))

	if err := writeMarkdownRow(w, header, widths, aligns); err != nil {
		return err
	}
	sep := make([]string, len(widths))
	for i, width := range widths {
		if aligns[i] == alignRight {
			sep[i] = strings.Repeat("-", width-1) + ":"
		} else {
			sep[i] = strings.Repeat("-", width)
		}
	}
	if _, err := fmt.Fprintf(w, "| %s |\n", strings.Join(sep, " | ")); err != nil {
		return err
	}
	for _, row := range cells {
		if err := writeMarkdownRow(w, row, widths, aligns); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdownRow(w io.Writer, cells []string, widths []int, aligns []alignment) error {
	padded := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = padCell(cell, width, aligns[i])
	}
	_, err := fmt.Fprintf(w, "| %s |\n", strings.Join(padded, " | "))
	return err
}
