package export

import (
	"encoding/csv"
	"io"
)

// WriteCSV renders the table as delimited text: a header row of column names
// then one row per record. encoding/csv handles quoting and escaping of
// embedded quotes; NULL values render as empty strings via FormatValue.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for i := range t.Rows {
		rec := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			rec[j] = t.Cell(i, col)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
