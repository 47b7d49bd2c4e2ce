package export

import (
	"fmt"
	"io"
	"strings"
)

// DocumentOptions control the fixed-width page layout.
type DocumentOptions struct {
	PageRows int // data rows per page
	MaxWidth int // per-column width cap
}

func (o DocumentOptions) withDefaults() DocumentOptions {
	if o.PageRows <= 0 {
		o.PageRows = 40
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = 30
	}
	return o
}

// WriteDocument renders the table as a page-oriented fixed-width document:
// a preamble section for financial/time-period metadata, then the data table
// split into pages, each with a header and a numbered footer.
func WriteDocument(w io.Writer, t *Table, opts DocumentOptions) error {
	opts = opts.withDefaults()

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	for i := range t.Rows {
		for j, col := range t.Columns {
			if l := len(t.Cell(i, col)); l > widths[j] {
				widths[j] = l
			}
		}
	}
	for i := range widths {
		if widths[i] > opts.MaxWidth {
			widths[i] = opts.MaxWidth
		}
	}

	totalPages := (len(t.Rows) + opts.PageRows - 1) / opts.PageRows
	if totalPages == 0 {
		totalPages = 1
	}

	for page := 0; page < totalPages; page++ {
		if err := writePageHeader(w, t, page == 0); err != nil {
			return err
		}
		if err := writeRule(w, widths); err != nil {
			return err
		}
		if err := writeRow(w, t.Columns, widths); err != nil {
			return err
		}
		if err := writeRule(w, widths); err != nil {
			return err
		}

		startRow := page * opts.PageRows
		endRow := startRow + opts.PageRows
		if endRow > len(t.Rows) {
			endRow = len(t.Rows)
		}
		for i := startRow; i < endRow; i++ {
			cells := make([]string, len(t.Columns))
			for j, col := range t.Columns {
				cells[j] = t.Cell(i, col)
			}
			if err := writeRow(w, cells, widths); err != nil {
				return err
			}
		}
		if err := writeRule(w, widths); err != nil {
			return err
		}

		if page == totalPages-1 {
			for _, line := range t.AggregateLines() {
				if _, err := fmt.Fprintln(w, line); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintf(w, "%s Page %d of %d\n", t.Title, page+1, totalPages); err != nil {
			return err
		}
		if page < totalPages-1 {
			if _, err := fmt.Fprintln(w, "\f"); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePageHeader(w io.Writer, t *Table, first bool) error {
	if _, err := fmt.Fprintln(w, t.Title); err != nil {
		return err
	}
	if first {
		for _, line := range t.Preamble {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRow(w io.Writer, cells []string, widths []int) error {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if len(cell) > widths[i] {
			cell = cell[:widths[i]]
		}
		parts[i] = pad(cell, widths[i])
	}
	_, err := fmt.Fprintln(w, "| "+strings.Join(parts, " | ")+" |")
	return err
}

func writeRule(w io.Writer, widths []int) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width+2)
	}
	_, err := fmt.Fprintln(w, "+"+strings.Join(parts, "+")+"+")
	return err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
