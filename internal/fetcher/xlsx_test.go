package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// workbook builds a fixture with sheets added in the given order.
func workbook(t *testing.T, names []string, sheets map[string][][]string) *xlsx.File {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range names {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, v := range rowData {
				row.AddCell().SetString(v)
			}
		}
	}
	return f
}

func saveWorkbook(t *testing.T, f *xlsx.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "BC T3.24.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_StackedHeaders(t *testing.T) {
	path := saveWorkbook(t, workbook(t, []string{"XNT"}, map[string][][]string{
		"XNT": {
			{"Mã hàng", "Tồn cuối kỳ", ""},
			{"", "Số lượng", "Thành tiền"},
			{"A1", "5", "850"},
		},
	}))

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"", "Số lượng", "Thành tiền"}, rows[1])

	body, err := ReadXLSX(path, XLSXOptions{SkipRows: 2})
	require.NoError(t, err)
	require.Len(t, body, 1)
	assert.Equal(t, "A1", body[0][0])
}

func TestReadXLSX_NumericCellsKeepRawValue(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("CT.NHAP")
	require.NoError(t, err)
	row := sheet.AddRow()
	row.AddCell().SetInt(45352)
	row.AddCell().SetString("1.250,5")

	rows, err := ReadXLSX(saveWorkbook(t, f), XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "45352", rows[0][0])
	assert.Equal(t, "1.250,5", rows[0][1])
}

func TestReadXLSX_SheetName(t *testing.T) {
	path := saveWorkbook(t, workbook(t, []string{"CT.NHAP", "CT.XUAT"}, map[string][][]string{
		"CT.NHAP": {{"purchase"}},
		"CT.XUAT": {{"sale"}, {"row"}},
	}))

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "CT.XUAT"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"sale"}, rows[0])

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_HeaderChannel(t *testing.T) {
	path := saveWorkbook(t, workbook(t, []string{"XNT"}, map[string][][]string{
		"XNT": {{"Mã hàng"}, {"A1"}},
	}))

	headerCh := make(chan []string, 1)
	rows, err := ReadXLSX(path, XLSXOptions{SkipRows: 1, HeaderCh: headerCh})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Mã hàng"}, <-headerCh)
}

func TestReadXLSXBytes(t *testing.T) {
	path := saveWorkbook(t, workbook(t, []string{"XNT"}, map[string][][]string{
		"XNT": {{"A1", "VỎ MAXXIS"}},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := ReadXLSXBytes(data, XLSXOptions{SheetName: "XNT"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A1", "VỎ MAXXIS"}}, rows)

	_, err = ReadXLSXBytes([]byte("not a zip"), XLSXOptions{})
	assert.Error(t, err)
}

func TestSheetNames(t *testing.T) {
	path := saveWorkbook(t, workbook(t, []string{"CT.NHAP", "CT.XUAT", "XNT"}, map[string][][]string{}))

	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CT.NHAP", "CT.XUAT", "XNT"}, names)

	_, err = SheetNames(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
