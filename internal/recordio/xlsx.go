package recordio

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX loads records from the first sheet of an XLSX workbook. The
// first row is the header; rows are mapped onto T exactly like CSV.
func ReadXLSX[T any](path string) ([]T, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "recordio: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("recordio: %s has no sheets", path)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	width := -1
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		if width < 0 {
			width = len(row.Cells)
		}
		// Trailing empty cells are often omitted; every row must match the header.
		cells := make([]string, width)
		for j, cell := range row.Cells {
			if j < width {
				cells[j] = cell.String()
			}
		}
		if err := cw.Write(cells); err != nil {
			return nil, eris.Wrap(err, "recordio: buffer xlsx row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, eris.Wrap(err, "recordio: buffer xlsx")
	}

	records, err := DecodeCSV[T](&buf)
	if err != nil {
		return nil, eris.Wrapf(err, "recordio: decode xlsx %s", path)
	}
	return records, nil
}
