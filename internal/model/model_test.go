package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellString(t *testing.T) {
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "abc", Text("abc").String())
	assert.Equal(t, "1500.5", Number(1500.5).String())
	assert.Equal(t, "2024-03-05", Date(time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)).String())
}

func TestTableGetSet(t *testing.T) {
	tbl := &Table{Columns: []string{"a"}, Rows: [][]Cell{{Text("x")}}}
	assert.Equal(t, "x", tbl.Get(0, "a").Text)
	assert.True(t, tbl.Get(0, "missing").IsNull())
	assert.True(t, tbl.Get(5, "a").IsNull())

	tbl.Set(0, "b", Number(2))
	require.Equal(t, []string{"a", "b"}, tbl.Columns)
	f, ok := tbl.Get(0, "b").Float()
	assert.True(t, ok)
	assert.Equal(t, 2.0, f)
}

func TestTableCloneIsDeep(t *testing.T) {
	tbl := &Table{Columns: []string{"a"}, Rows: [][]Cell{{Text("x")}}}
	c := tbl.Clone()
	c.Rows[0][0] = Text("y")
	assert.Equal(t, "x", tbl.Rows[0][0].Text)
}

func TestPeriod(t *testing.T) {
	p := Period{Year: 2020, Month: 4}
	assert.Equal(t, time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC), p.LastDayOfPrevious())
	assert.Equal(t, time.Date(2020, 4, 30, 0, 0, 0, 0, time.UTC), p.End())
	assert.True(t, Period{2019, 12}.Before(p))
	assert.False(t, p.Before(p))

	jan := Period{Year: 2021, Month: 1}
	assert.Equal(t, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), jan.LastDayOfPrevious())
}

func TestCodeMapping(t *testing.T) {
	keys := []CodeKey{{"A", "x"}, {"A", "y"}, {"A", "x"}}
	targets := []CodeTarget{{"A", "x"}, {"A-01", "y"}, {"Z", "z"}}
	m := NewCodeMapping(keys, targets)

	assert.Equal(t, 2, m.Len())
	got, ok := m.Lookup(CodeKey{"A", "x"})
	assert.True(t, ok)
	assert.Equal(t, CodeTarget{"A", "x"}, got)

	got, ok = m.Lookup(CodeKey{"B", "q"})
	assert.False(t, ok)
	assert.Equal(t, CodeTarget{"B", "q"}, got)

	changed := m.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, "A-01", changed[0].CodeTarget.Code)
}

func TestTabSource(t *testing.T) {
	assert.Equal(t, SourcePurchase, TabPurchaseDetail.Source())
	assert.Equal(t, SourceSale, TabSaleDetail.Source())
	assert.Equal(t, SourceInventory, TabInventorySnapshot.Source())
	assert.True(t, TabSaleDetail.Valid())
	assert.False(t, Tab("other").Valid())
}
