package spending

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/zipmap/internal/format"
)

const amountFormat = "#,##0.00"

// WriteXLSX writes the rows for the current year-month as a single-sheet
// workbook. Amounts are stored as numbers so spreadsheets can sum them.
func WriteXLSX(w io.Writer, s *Series, sheetName string) error {
	if sheetName == "" {
		sheetName = "spending"
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c.Header)
	}

	for _, r := range s.Rows() {
		row := sheet.AddRow()
		for _, c := range Columns {
			cell := row.AddCell()
			v := r[c.Key]
			if c.Key == "TAP" {
				if n, ok := format.Number(v); ok {
					cell.SetFloatWithFormat(n, amountFormat)
					continue
				}
			}
			cell.SetString(FormatCell(c.Key, v))
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}
