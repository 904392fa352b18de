package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ErrSheetNotFound is returned when a named tab is absent from a workbook.
var ErrSheetNotFound = eris.New("sheet not found")

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int             // default 0
	SheetName  string          // if set, overrides SheetIndex
	SkipRows   int             // number of leading rows to skip
	HeaderCh   chan<- []string // optional: receives the first row
}

// ReadXLSX reads an XLSX file and returns all rows as string slices.
// Numeric cells keep their raw value, so date cells come back as serial
// day numbers rather than locale-formatted text.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return readSheet(f, opts)
}

// ReadXLSXBytes is ReadXLSX over an in-memory workbook.
func ReadXLSXBytes(data []byte, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open binary")
	}
	return readSheet(f, opts)
}

// SheetNames lists the tabs of a workbook in file order.
func SheetNames(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return sheetNames(f), nil
}

// SheetNamesBytes is SheetNames over an in-memory workbook.
func SheetNamesBytes(data []byte) ([]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open binary")
	}
	return sheetNames(f), nil
}

func sheetNames(f *xlsx.File) []string {
	names := make([]string, len(f.Sheets))
	for i, s := range f.Sheets {
		names[i] = s.Name
	}
	return names
}

func readSheet(f *xlsx.File, opts XLSXOptions) ([][]string, error) {
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)

		if i == 0 && opts.HeaderCh != nil {
			opts.HeaderCh <- cells
		}

		if i < opts.SkipRows {
			continue
		}

		rows = append(rows, cells)
	}

	return rows, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Wrapf(ErrSheetNotFound, "xlsx: sheet %q", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell.Type() == xlsx.CellTypeNumeric {
			cells[j] = cell.Value
			continue
		}
		cells[j] = cell.String()
	}
	return cells
}
