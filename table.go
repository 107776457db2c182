package mailmerge

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type alignment int

const (
	alignLeft alignment = iota
	alignRight
)

// Rounded box-drawing characters.
const (
	boxTopLeft     = "╭"
	boxTopRight    = "╮"
	boxBottomLeft  = "╰"
	boxBottomRight = "╯"
	boxHorizontal  = "─"
	boxVertical    = "│"
	boxTopTee      = "┬"
	boxBottomTee   = "┴"
	boxLeftTee     = "├"
	boxRightTee    = "┤"
	boxCross       = "┼"
)

// writeTable draws a bordered table. Widths are measured in terminal
// columns so wide runes in placeholder names or errors stay aligned.
func writeTable(w io.Writer, title string, header []string, rows [][]string, aligns []alignment) error {
	widths := columnWidths(header, rows)
	if len(widths) == 0 {
		return nil
	}
	aligns = padAligns(aligns, len(widths))
	if extra := runewidth.StringWidth(title) - (innerWidth(widths) - 2); extra > 0 {
		widths[len(widths)-1] += extra
	}

	if title != "" {
		if err := drawLine(w, widths, boxTopLeft, boxHorizontal, boxTopRight); err != nil {
			return err
		}
		inner := innerWidth(widths) - 2
		if _, err := fmt.Fprintf(w, "%s %s %s\n", boxVertical, padCell(title, inner, alignLeft), boxVertical); err != nil {
			return err
		}
		if err := drawLine(w, widths, boxLeftTee, boxTopTee, boxRightTee); err != nil {
			return err
		}
	} else if err := drawLine(w, widths, boxTopLeft, boxTopTee, boxTopRight); err != nil {
		return err
	}

	if len(header) > 0 {
		if err := drawRow(w, header, widths, aligns); err != nil {
			return err
		}
		if err := drawLine(w, widths, boxLeftTee, boxCross, boxRightTee); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := drawRow(w, row, widths, aligns); err != nil {
			return err
		}
	}
	return drawLine(w, widths, boxBottomLeft, boxBottomTee, boxBottomRight)
}

func columnWidths(header []string, rows [][]string) []int {
	n := len(header)
	for _, row := range rows {
		n = max(n, len(row))
	}
	widths := make([]int, n)
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func padAligns(aligns []alignment, n int) []alignment {
	if len(aligns) >= n {
		return aligns[:n]
	}
	out := make([]alignment, n)
	copy(out, aligns)
	return out
}

// innerWidth is the width between the outer borders: each cell plus one
// space on each side, and one border between cells.
func innerWidth(widths []int) int {
	n := len(widths) - 1
	for _, w := range widths {
		n += w + 2
	}
	return n
}

// drawLine draws a horizontal rule. Passing boxHorizontal as mid draws an
// unbroken rule.
func drawLine(w io.Writer, widths []int, left, mid, right string) error {
	var sb strings.Builder
	sb.WriteString(left)
	for i, width := range widths {
		sb.WriteString(strings.Repeat(boxHorizontal, width+2))
		if i < len(widths)-1 {
			sb.WriteString(mid)
		}
	}
	sb.WriteString(right)
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func drawRow(w io.Writer, cells []string, widths []int, aligns []alignment) error {
	var sb strings.Builder
	sb.WriteString(boxVertical)
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		sb.WriteString(" ")
		sb.WriteString(padCell(cell, width, aligns[i]))
		sb.WriteString(" ")
		sb.WriteString(boxVertical)
	}
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func padCell(s string, width int, align alignment) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	if align == alignRight {
		return strings.Repeat(" ", pad) + s
	}
	return s + strings.Repeat(" ", pad)
}
