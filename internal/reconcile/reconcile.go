// Package reconcile compares aggregates from independently derived views
// of the same activity and flags the differences. Failures are reported,
// never fatal.
package reconcile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// Key groups aggregates by product and month.
type Key struct {
	Code   string
	Period model.Period
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%04d-%02d", k.Code, k.Period.Year, k.Period.Month)
}

// Totals is the summed quantity and value for one key.
type Totals struct {
	Quantity decimal.Decimal
	Value    decimal.Decimal
}

// Tolerance is the absolute difference allowed per key.
type Tolerance struct {
	Quantity float64
	Value    float64
}

// DefaultTolerance absorbs floating-point noise in exported sheets.
var DefaultTolerance = Tolerance{Quantity: 0.01, Value: 1.0}

// PeriodFunc derives the period of row r.
type PeriodFunc func(t *model.Table, r int) (model.Period, bool)

// DatePeriod reads the period from the row date.
func DatePeriod(t *model.Table, r int) (model.Period, bool) {
	d := t.Get(r, model.ColDate)
	if d.Kind != model.CellDate {
		return model.Period{}, false
	}
	return model.Period{Year: d.Date.Year(), Month: int(d.Date.Month())}, true
}

// ColumnPeriod reads the period from the year and month columns.
func ColumnPeriod(t *model.Table, r int) (model.Period, bool) {
	y, okY := t.Get(r, model.ColYear).Float()
	m, okM := t.Get(r, model.ColMonth).Float()
	if !okY || !okM || m < 1 || m > 12 {
		return model.Period{}, false
	}
	return model.Period{Year: int(y), Month: int(m)}, true
}

// NormalizeCode makes codes from different sources comparable.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Aggregate sums qtyCol and valCol of t by code and period. Rows without
// a code or a period are skipped; null amounts count as zero.
func Aggregate(t *model.Table, qtyCol, valCol string, period PeriodFunc) map[Key]Totals {
	out := make(map[Key]Totals)
	if t == nil {
		return out
	}
	for r := range t.Rows {
		code := NormalizeCode(t.Get(r, model.ColProductCode).String())
		p, ok := period(t, r)
		if code == "" || !ok {
			continue
		}
		k := Key{Code: code, Period: p}
		cur := out[k]
		if q, ok := t.Get(r, qtyCol).Float(); ok {
			cur.Quantity = cur.Quantity.Add(decimal.NewFromFloat(q))
		}
		if v, ok := t.Get(r, valCol).Float(); ok {
			cur.Value = cur.Value.Add(decimal.NewFromFloat(v))
		}
		out[k] = cur
	}
	return out
}

// Row is the side-by-side comparison of one key.
type Row struct {
	Code         string  `csv:"product_code" json:"product_code"`
	Year         int     `csv:"year" json:"year"`
	Month        int     `csv:"month" json:"month"`
	AQuantity    float64 `csv:"a_quantity" json:"a_quantity"`
	BQuantity    float64 `csv:"b_quantity" json:"b_quantity"`
	QuantityDiff float64 `csv:"quantity_diff" json:"quantity_diff"`
	AValue       float64 `csv:"a_value" json:"a_value"`
	BValue       float64 `csv:"b_value" json:"b_value"`
	ValueDiff    float64 `csv:"value_diff" json:"value_diff"`
	Discrepancy  bool    `csv:"discrepancy" json:"discrepancy"`
}

// Key returns the row's aggregate key.
func (r Row) Key() Key {
	return Key{Code: r.Code, Period: model.Period{Year: r.Year, Month: r.Month}}
}

// Rows outer-joins a and b on key, counting a missing side as zero. Rows
// with discrepancies sort first, then by key.
func Rows(a, b map[Key]Totals, tol Tolerance) []Row {
	keys := make(map[Key]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}

	out := make([]Row, 0, len(keys))
	for k := range keys {
		ta, tb := a[k], b[k]
		dq := ta.Quantity.Sub(tb.Quantity)
		dv := ta.Value.Sub(tb.Value)
		flagged := dq.Abs().GreaterThan(decimal.NewFromFloat(tol.Quantity)) ||
			dv.Abs().GreaterThan(decimal.NewFromFloat(tol.Value))
		out = append(out, Row{
			Code:         k.Code,
			Year:         k.Period.Year,
			Month:        k.Period.Month,
			AQuantity:    ta.Quantity.InexactFloat64(),
			BQuantity:    tb.Quantity.InexactFloat64(),
			QuantityDiff: dq.InexactFloat64(),
			AValue:       ta.Value.InexactFloat64(),
			BValue:       tb.Value.InexactFloat64(),
			ValueDiff:    dv.InexactFloat64(),
			Discrepancy:  flagged,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Discrepancy != out[j].Discrepancy {
			return out[i].Discrepancy
		}
		return less(out[i].Key(), out[j].Key())
	})
	return out
}

func less(a, b Key) bool {
	if a.Code != b.Code {
		return a.Code < b.Code
	}
	return a.Period.Before(b.Period)
}

// Compare runs one named check. The result lists every key whose quantity
// or value difference exceeds the tolerance.
func Compare(name string, a, b map[Key]Totals, tol Tolerance) model.ReconciliationResult {
	res, _ := CompareRows(name, a, b, tol)
	return res
}

// CompareRows is Compare plus the per-key detail for audit output.
func CompareRows(name string, a, b map[Key]Totals, tol Tolerance) (model.ReconciliationResult, []Row) {
	rows := Rows(a, b, tol)
	totalA, totalB := decimal.Zero, decimal.Zero
	res := model.ReconciliationResult{Check: name, Tolerance: tol.Value, AffectedKeys: []string{}}
	for _, r := range rows {
		totalA = totalA.Add(decimal.NewFromFloat(r.AValue))
		totalB = totalB.Add(decimal.NewFromFloat(r.BValue))
		if r.Discrepancy {
			res.AffectedKeys = append(res.AffectedKeys, r.Key().String())
			zap.L().Warn("reconcile: discrepancy",
				zap.String("check", name),
				zap.String("key", r.Key().String()),
				zap.Float64("quantity_difference", r.QuantityDiff),
				zap.Float64("difference", r.ValueDiff),
			)
		}
	}
	res.SourceATotal = totalA.InexactFloat64()
	res.SourceBTotal = totalB.InexactFloat64()
	res.Difference = totalA.Sub(totalB).InexactFloat64()
	return res, rows
}

// Table renders comparison rows as a table so they can be scanned and
// written like any other dataset.
func Table(name string, rows []Row) *model.Table {
	t := &model.Table{
		Name: name,
		Columns: []string{
			model.ColProductCode, model.ColYear, model.ColMonth,
			"a_quantity", "b_quantity", "quantity_diff",
			"a_value", "b_value", "value_diff",
		},
		Rows: make([][]model.Cell, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []model.Cell{
			model.Text(r.Code), model.Number(float64(r.Year)), model.Number(float64(r.Month)),
			model.Number(r.AQuantity), model.Number(r.BQuantity), model.Number(r.QuantityDiff),
			model.Number(r.AValue), model.Number(r.BValue), model.Number(r.ValueDiff),
		})
	}
	return t
}

// DefaultPattern matches discrepancy column names.
const DefaultPattern = `(?i)discrepancy|chênh_lệch|_diff$`

// Discrepancy is one flagged cell, kept with its full row for audit.
type Discrepancy struct {
	Table  string            `json:"table"`
	Row    int               `json:"row"`
	Column string            `json:"column"`
	Code   string            `json:"product_code"`
	Value  float64           `json:"value"`
	Record map[string]string `json:"record"`
}

// Scan flags every numeric cell in a column matching pattern whose
// absolute value exceeds tol.
func Scan(t *model.Table, pattern *regexp.Regexp, tol float64) []Discrepancy {
	var cols []string
	for _, c := range t.Columns {
		if pattern.MatchString(c) {
			cols = append(cols, c)
		}
	}
	var out []Discrepancy
	for r := range t.Rows {
		for _, c := range cols {
			v, ok := t.Get(r, c).Float()
			if !ok || (v <= tol && v >= -tol) {
				continue
			}
			record := make(map[string]string, len(t.Columns))
			for _, name := range t.Columns {
				record[name] = t.Get(r, name).String()
			}
			out = append(out, Discrepancy{
				Table:  t.Name,
				Row:    r,
				Column: c,
				Code:   t.Get(r, model.ColProductCode).String(),
				Value:  v,
				Record: record,
			})
		}
	}
	return out
}

// Check names.
const (
	CheckPurchases = "purchases_vs_inventory_in"
	CheckSales     = "sales_vs_inventory_out"
)

// PurchasesVsInventory compares purchase lines with the inventory
// snapshot's in-period receipts.
func PurchasesVsInventory(purchases, inv *model.Table, tol Tolerance) (model.ReconciliationResult, []Row) {
	return CompareRows(CheckPurchases,
		Aggregate(purchases, model.ColQuantity, model.ColLineTotal, DatePeriod),
		Aggregate(inv, model.ColInQuantity, model.ColInValue, ColumnPeriod),
		tol,
	)
}

// SalesVsInventory compares sale lines with the inventory snapshot's
// in-period issues.
func SalesVsInventory(sales, inv *model.Table, tol Tolerance) (model.ReconciliationResult, []Row) {
	return CompareRows(CheckSales,
		Aggregate(sales, model.ColQuantity, model.ColLineTotal, DatePeriod),
		Aggregate(inv, model.ColOutQuantity, model.ColOutValue, ColumnPeriod),
		tol,
	)
}
