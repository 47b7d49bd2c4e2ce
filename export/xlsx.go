package export

import (
	"io"
	"time"

	"github.com/tealeg/xlsx/v3"
)

const maxColWidth = 40.0

// WriteXLSX renders the table as a one-sheet workbook: styled header row,
// typed cells (numbers as numbers, dates as dates, everything else as text)
// and auto-sized columns bounded to a maximum width.
func WriteXLSX(w io.Writer, t *Table) error {
	file := xlsx.NewFile()
	name := t.Title
	if name == "" {
		name = "Report"
	}
	sheet, err := file.AddSheet(name)
	if err != nil {
		return err
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.ApplyFont = true

	for _, line := range t.Preamble {
		row := sheet.AddRow()
		row.AddCell().SetString(line)
	}

	header := sheet.AddRow()
	widths := make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		cell := header.AddCell()
		cell.SetString(col)
		cell.SetStyle(headerStyle)
		widths[i] = float64(len(col))
	}

	for i := range t.Rows {
		row := sheet.AddRow()
		for j, col := range t.Columns {
			cell := row.AddCell()
			setTyped(cell, t.Rows[i][col])
			if w := float64(len(t.Cell(i, col))); w > widths[j] {
				widths[j] = w
			}
		}
	}

	if len(t.Aggregates) > 0 {
		sheet.AddRow()
		for _, line := range t.AggregateLines() {
			row := sheet.AddRow()
			row.AddCell().SetString(line)
		}
	}

	for i, w := range widths {
		width := w + 2
		if width > maxColWidth {
			width = maxColWidth
		}
		sheet.SetColWidth(i+1, i+1, width)
	}

	return file.Write(w)
}

func setTyped(cell *xlsx.Cell, v any) {
	switch val := v.(type) {
	case nil:
		cell.SetString("")
	case float64:
		cell.SetFloat(val)
	case float32:
		cell.SetFloat(float64(val))
	case int:
		cell.SetInt(val)
	case int64:
		cell.SetInt64(val)
	case time.Time:
		cell.SetDate(val)
	case bool:
		cell.SetBool(val)
	default:
		cell.SetString(FormatValue(val))
	}
}
