package fetcher

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

type mappingRecord struct {
	OriginalCode string  `csv:"original_code"`
	FinalCode    string  `csv:"final_code"`
	Quantity     float64 `csv:"quantity"`
}

func TestWriteAtomic_NoPartialFileOnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "out/mapping.csv"

	err := WriteAtomic(fs, path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "half a file")
		return errors.New("encode failed")
	})
	require.Error(t, err)

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := afero.ReadDir(fs, "out")
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file cleaned up")
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "r.json", []byte("old"), 0o644))

	require.NoError(t, WriteAtomic(fs, "r.json", func(w io.Writer) error {
		_, err := io.WriteString(w, "new")
		return err
	}))
	data, err := afero.ReadFile(fs, "r.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	tab := &model.Table{
		Columns: []string{"product_code", "quantity"},
		Rows: [][]model.Cell{
			{model.Text("A1"), model.Number(10)},
			{model.Text("B, 2"), model.Null()},
		},
	}
	require.NoError(t, WriteTable(fs, "staging/2024_3_purchase-detail.csv", tab))

	data, err := afero.ReadFile(fs, "staging/2024_3_purchase-detail.csv")
	require.NoError(t, err)
	assert.Equal(t, "product_code,quantity\nA1,10\n\"B, 2\",\n", string(data))
}

func TestWriteRecords_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	rows := []mappingRecord{
		{OriginalCode: "X1", FinalCode: "X1", Quantity: 2},
		{OriginalCode: "X1", FinalCode: "X1-01", Quantity: 0.5},
	}
	require.NoError(t, WriteRecords(fs, "mapping.csv", rows))

	got, err := ReadRecords[mappingRecord](fs, "mapping.csv")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriteRecords_EmptyWritesHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, WriteRecords[mappingRecord](fs, "empty.csv", nil))

	data, err := afero.ReadFile(fs, "empty.csv")
	require.NoError(t, err)
	assert.Equal(t, "original_code,final_code,quantity\n", string(data))
}

func TestWriteRecords_EmbeddedMappingRow(t *testing.T) {
	fs := afero.NewMemMapFs()
	rows := []model.MappingRow{{
		CodeKey:    model.CodeKey{Code: "X1", Name: "VỎ A"},
		CodeTarget: model.CodeTarget{Code: "X1-01", Name: "VỎ A"},
	}}
	require.NoError(t, WriteRecords(fs, "m.csv", rows))

	data, err := afero.ReadFile(fs, "m.csv")
	require.NoError(t, err)
	assert.Equal(t, "original_code,original_name,final_code,final_name\nX1,VỎ A,X1-01,VỎ A\n", string(data))
}

func TestWriteJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, WriteJSON(fs, "reports/r.json", map[string]int{"records": 2}))

	data, err := afero.ReadFile(fs, "reports/r.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"records":2}`, string(data))
}

func TestReadRecords_Missing(t *testing.T) {
	_, err := ReadRecords[mappingRecord](afero.NewMemMapFs(), "nope.csv")
	assert.Error(t, err)
}
