package fifo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func twoLots() []model.Lot {
	return []model.Lot{
		{AcquiredAt: day(2024, 1, 15), Quantity: 10, UnitCost: 10},
		{AcquiredAt: day(2024, 2, 15), Quantity: 10, UnitCost: 12},
	}
}

func TestRemainingCost_KeepsNewestStock(t *testing.T) {
	c := RemainingCost(twoLots(), 15)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(170)), "total %s", c.Total)
	assert.InDelta(t, 11.333, c.Unit.InexactFloat64(), 0.001)
	assert.True(t, c.Shortfall.IsZero())
}

func TestRemainingCost_SortsLots(t *testing.T) {
	lots := twoLots()
	lots[0], lots[1] = lots[1], lots[0]
	c := RemainingCost(lots, 15)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(170)))
	// Input order is untouched.
	assert.Equal(t, 12.0, lots[0].UnitCost)
}

func TestRemainingCost_Zero(t *testing.T) {
	c := RemainingCost(twoLots(), 0)
	assert.True(t, c.Total.IsZero())
	assert.True(t, c.Unit.IsZero())
	c = RemainingCost(twoLots(), -3)
	assert.True(t, c.Total.IsZero())
}

func TestRemainingCost_Shortfall(t *testing.T) {
	c := RemainingCost([]model.Lot{{AcquiredAt: day(2024, 1, 1), Quantity: 10, UnitCost: 10}}, 15)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.Shortfall.Equal(decimal.NewFromInt(5)))
}

func TestRemainingCost_NoLots(t *testing.T) {
	c := RemainingCost(nil, 4)
	assert.True(t, c.Total.IsZero())
	assert.True(t, c.Shortfall.Equal(decimal.NewFromInt(4)))
}

func TestGrossProfit(t *testing.T) {
	p := GrossProfit(twoLots(), 5, decimal.NewFromInt(100))
	assert.True(t, p.COGS.Equal(decimal.NewFromInt(50)), "cogs %s", p.COGS)
	assert.True(t, p.Gross.Equal(decimal.NewFromInt(50)))
	assert.True(t, p.MarginPct.Equal(decimal.NewFromInt(50)))

	p = GrossProfit(twoLots(), 25, decimal.Zero)
	assert.True(t, p.COGS.Equal(decimal.NewFromInt(220)))
	assert.True(t, p.MarginPct.IsZero())
}

func TestSaleCOGS(t *testing.T) {
	costs := SaleCOGS(twoLots(), []Sale{
		{Date: day(2024, 3, 2), Quantity: 12},
		{Date: day(2024, 3, 1), Quantity: 5},
		{Date: day(2024, 3, 3), Quantity: 10},
	})
	require.Len(t, costs, 3)
	assert.Equal(t, day(2024, 3, 1), costs[0].Date)
	assert.True(t, costs[0].COGS.Equal(decimal.NewFromInt(50)))
	assert.True(t, costs[1].COGS.Equal(decimal.NewFromInt(134)))
	assert.True(t, costs[2].COGS.Equal(decimal.NewFromInt(36)))
	assert.Equal(t, 7.0, costs[2].Shortfall)
	assert.Zero(t, costs[0].Shortfall)
}

func purchaseTable(rows ...[]model.Cell) *model.Table {
	return &model.Table{
		Name: "purchases",
		Columns: []string{
			model.ColDate, model.ColProductCode, model.ColProductName,
			model.ColQuantity, model.ColUnitPrice, model.ColLineTotal, model.ColReceiptCode,
		},
		Rows: rows,
	}
}

func purchaseRow(d time.Time, code, name string, qty, price, total float64, receipt string) []model.Cell {
	return []model.Cell{
		model.Date(d), model.Text(code), model.Text(name),
		model.Number(qty), model.Number(price), model.Number(total), model.Text(receipt),
	}
}

func TestLots(t *testing.T) {
	p := purchaseTable(
		purchaseRow(day(2024, 2, 1), "A", "VỎ A", 10, 0, 120, "PN2"),
		purchaseRow(day(2024, 1, 1), "A", "VỎ A", 10, 0, 100, "PN1"),
		purchaseRow(day(2024, 1, 1), "A", "VỎ A", 0, 0, 0, "PN0"),
	)
	lots := Lots(p)
	require.Len(t, lots["A"], 2)
	assert.Equal(t, 10.0, lots["A"][0].UnitCost)
	assert.Equal(t, 12.0, lots["A"][1].UnitCost)
}

func TestSummarize(t *testing.T) {
	p := purchaseTable(
		purchaseRow(day(2024, 1, 15), "A", "VỎ A CŨ", 10, 10, 100, "PN1"),
		purchaseRow(day(2024, 2, 15), "A", "VỎ A", 10, 12, 120, "PN2"),
	)
	s := &model.Table{
		Name:    "sales",
		Columns: []string{model.ColDate, model.ColProductCode, model.ColProductName, model.ColQuantity, model.ColLineTotal},
		Rows: [][]model.Cell{
			{model.Date(day(2024, 3, 1)), model.Text("A"), model.Text("VỎ A"), model.Number(5), model.Number(100)},
			{model.Date(day(2024, 3, 1)), model.Text("B"), model.Text("NHỚT B"), model.Number(2), model.Number(30)},
		},
	}

	out := Summarize(p, s, nil)
	require.Len(t, out, 2)

	a := out[0]
	assert.Equal(t, "A", a.Code)
	assert.Equal(t, "VỎ A", a.Name)
	assert.Equal(t, 20.0, a.Purchased)
	assert.Equal(t, 5.0, a.Sold)
	assert.Equal(t, 15.0, a.Inventory)
	assert.Equal(t, 170.0, a.RemainingValue)
	assert.Equal(t, 11.33, a.UnitCost)
	assert.Equal(t, 10.0, a.FirstPrice)
	assert.Equal(t, 12.0, a.LastPrice)
	assert.Equal(t, "2024-01-15", a.FirstDate)
	assert.Equal(t, "2024-02-15", a.LastDate)
	assert.Equal(t, 50.0, a.COGS)
	assert.Equal(t, 50.0, a.GrossProfit)
	assert.Equal(t, 50.0, a.MarginPct)

	b := out[1]
	assert.Equal(t, "NHỚT B", b.Name)
	assert.Zero(t, b.Inventory)
	assert.Equal(t, 30.0, b.GrossProfit)
	assert.Equal(t, 100.0, b.MarginPct)
}

func inventoryTable(rows ...[]model.Cell) *model.Table {
	return &model.Table{
		Name:    "inventory",
		Columns: []string{model.ColProductCode, model.ColClosingQuantity, model.ColYear, model.ColMonth},
		Rows:    rows,
	}
}

func snapshot(code string, closing float64, year, month int) []model.Cell {
	return []model.Cell{model.Text(code), model.Number(closing), model.Number(float64(year)), model.Number(float64(month))}
}

func TestSummarize_InventoryFromLatestSnapshot(t *testing.T) {
	p := purchaseTable(
		purchaseRow(day(2024, 1, 15), "A", "VỎ A", 10, 10, 100, "PN1"),
		purchaseRow(day(2024, 2, 15), "A", "VỎ A", 10, 12, 120, "PN2"),
		purchaseRow(day(2024, 1, 20), "B", "NHỚT B", 4, 5, 20, "PN3"),
	)
	inv := inventoryTable(
		snapshot("A", 3, 2024, 3),
		snapshot("A", 8, 2024, 2),
		snapshot("C", 9, 2024, 3),
	)

	out := Summarize(p, nil, inv)
	require.Len(t, out, 2, "snapshot-only codes are not products")

	a := out[0]
	assert.Equal(t, 20.0, a.Purchased)
	assert.Equal(t, 3.0, a.Inventory, "March closing, not purchased minus sold")
	assert.Equal(t, 36.0, a.RemainingValue, "newest lot first")

	b := out[1]
	assert.Equal(t, 4.0, b.Inventory, "no snapshot falls back to purchased minus sold")
}

func TestClosingStock(t *testing.T) {
	inv := inventoryTable(
		snapshot("A", 5, 2023, 12),
		snapshot("A", 2, 2024, 1),
		[]model.Cell{model.Text("B"), model.Null(), model.Number(2024), model.Number(1)},
		[]model.Cell{model.Text("C"), model.Number(1), model.Null(), model.Null()},
		[]model.Cell{model.Null(), model.Number(1), model.Number(2024), model.Number(1)},
	)
	assert.Equal(t, map[string]float64{"A": 2}, ClosingStock(inv))
	assert.Empty(t, ClosingStock(nil))
}
