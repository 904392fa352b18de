package fifo

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// OpeningConfig holds the opening-balance synthesis constants.
type OpeningConfig struct {
	// ReceiptDate dates the synthetic receipts. Zero selects the last day
	// of the month before the earliest inventory month.
	ReceiptDate  time.Time
	CodePrefix   string
	Supplier     string
	TolerancePct float64
	// Now stamps the report. Nil means time.Now.
	Now func() time.Time
}

// OpeningRecord is one synthetic purchase line.
type OpeningRecord struct {
	ReceiptCode string  `json:"receipt_code" csv:"receipt_code"`
	Date        string  `json:"date" csv:"date"`
	Code        string  `json:"product_code" csv:"product_code"`
	Name        string  `json:"product_name" csv:"product_name"`
	Quantity    float64 `json:"quantity" csv:"quantity"`
	UnitPrice   float64 `json:"unit_price" csv:"unit_price"`
	Total       float64 `json:"line_total" csv:"line_total"`
	Supplier    string  `json:"counterparty" csv:"counterparty"`
}

// Rejection is an opening row whose total disagrees with quantity times
// price beyond the tolerance.
type Rejection struct {
	Code         string  `json:"product_code"`
	Expected     float64 `json:"expected_total"`
	Actual       float64 `json:"actual_total"`
	DeviationPct float64 `json:"deviation_pct"`
}

// Totals is one side of the opening report.
type Totals struct {
	Records       int     `json:"records"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalValue    float64 `json:"total_value"`
}

// Validation holds the pass/fail flags of the opening report.
type Validation struct {
	QuantityMatch bool `json:"quantity_match"`
	ValueMatch    bool `json:"value_match"`
}

// Report is the reconciliation checkpoint written after synthesis.
type Report struct {
	Timestamp  time.Time    `json:"timestamp"`
	Period     model.Period `json:"period"`
	Inventory  Totals       `json:"inventory"`
	Synthetic  Totals       `json:"synthetic_records"`
	Validation Validation   `json:"validation"`
	Rejected   []Rejection  `json:"rejected"`
	Skipped    bool         `json:"skipped"`
	Alerts     []string     `json:"alerts"`
}

// Passed reports whether synthetic totals match the inventory totals.
func (r Report) Passed() bool { return r.Validation.QuantityMatch && r.Validation.ValueMatch }

// OpeningResult is the outcome of SynthesizeOpening.
type OpeningResult struct {
	Records []OpeningRecord
	// Purchases is the purchase table with synthetic lines merged in,
	// sorted by date then receipt code. It is the input table unchanged
	// when generation was skipped.
	Purchases *model.Table
	Report    Report
}

const (
	quantityTolerance = 0.01
	valueTolerance    = 1.0
)

// SynthesizeOpening creates purchase lines for stock present at the start
// of the earliest inventory month that no earlier purchase explains. Rows
// whose opening total deviates from quantity times price by more than
// TolerancePct are dropped. Generation is skipped when purchases already
// carry receipts with the reserved prefix.
func SynthesizeOpening(inv, purchases *model.Table, cfg OpeningConfig) (OpeningResult, error) {
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	res := OpeningResult{Purchases: purchases, Report: Report{Timestamp: now().UTC(), Alerts: []string{}}}

	if hasPrefix(purchases, cfg.CodePrefix) {
		zap.L().Info("fifo: opening balance records already present, skipping",
			zap.String("prefix", cfg.CodePrefix),
		)
		res.Report.Skipped = true
		res.Report.Validation = Validation{QuantityMatch: true, ValueMatch: true}
		return res, nil
	}

	period, err := earliestPeriod(inv)
	if err != nil {
		return res, err
	}
	res.Report.Period = period

	date := cfg.ReceiptDate
	if date.IsZero() {
		date = period.LastDayOfPrevious()
	}
	explained := purchasedBefore(purchases, time.Date(period.Year, time.Month(period.Month), 1, 0, 0, 0, 0, time.UTC))

	invQty, invVal := decimal.Zero, decimal.Zero
	synQty, synVal := decimal.Zero, decimal.Zero
	for r := range inv.Rows {
		if p, ok := rowPeriod(inv, r); !ok || p != period {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(inv.Get(r, model.ColProductCode).String()))
		qty, okQ := inv.Get(r, model.ColOpeningQuantity).Float()
		price, okP := inv.Get(r, model.ColOpeningPrice).Float()
		if code == "" || !okQ || !okP || qty <= 0 || explained[code] {
			continue
		}
		actual, _ := inv.Get(r, model.ColOpeningValue).Float()

		res.Report.Inventory.Records++
		invQty = invQty.Add(decimal.NewFromFloat(qty))
		invVal = invVal.Add(decimal.NewFromFloat(actual))

		if dev := Deviation(qty, price, actual); dev > cfg.TolerancePct {
			res.Report.Rejected = append(res.Report.Rejected, Rejection{
				Code:         code,
				Expected:     qty * price,
				Actual:       actual,
				DeviationPct: dev,
			})
			zap.L().Warn("fifo: opening balance rejected",
				zap.String("code", code),
				zap.Float64("deviation_pct", dev),
				zap.Int("row", r),
			)
			continue
		}

		res.Records = append(res.Records, OpeningRecord{
			ReceiptCode: fmt.Sprintf("%s-%s-%04d", cfg.CodePrefix, date.Format("20060102"), len(res.Records)+1),
			Date:        date.Format(model.DateLayout),
			Code:        code,
			Name:        inv.Get(r, model.ColProductName).String(),
			Quantity:    qty,
			UnitPrice:   price,
			Total:       actual,
			Supplier:    cfg.Supplier,
		})
		synQty = synQty.Add(decimal.NewFromFloat(qty))
		synVal = synVal.Add(decimal.NewFromFloat(actual))
	}

	res.Report.Inventory.TotalQuantity = invQty.InexactFloat64()
	res.Report.Inventory.TotalValue = invVal.InexactFloat64()
	res.Report.Synthetic = Totals{
		Records:       len(res.Records),
		TotalQuantity: synQty.InexactFloat64(),
		TotalValue:    synVal.InexactFloat64(),
	}
	res.Report.Validation = Validation{
		QuantityMatch: invQty.Sub(synQty).Abs().InexactFloat64() < quantityTolerance,
		ValueMatch:    invVal.Sub(synVal).Abs().InexactFloat64() < valueTolerance,
	}
	if !res.Report.Validation.QuantityMatch {
		res.Report.Alerts = append(res.Report.Alerts, fmt.Sprintf("quantity mismatch: inventory=%s synthetic=%s", invQty.StringFixed(0), synQty.StringFixed(0)))
	}
	if !res.Report.Validation.ValueMatch {
		res.Report.Alerts = append(res.Report.Alerts, fmt.Sprintf("value mismatch: inventory=%s synthetic=%s", invVal.StringFixed(0), synVal.StringFixed(0)))
	}

	res.Purchases = merge(purchases, res.Records, date)
	return res, nil
}

// Deviation is the percentage by which actual differs from qty*price.
// A zero expected total is measured against 1.
func Deviation(qty, price, actual float64) float64 {
	expected := qty * price
	base := expected
	if base == 0 {
		base = 1
	}
	return math.Abs(actual-expected) / math.Abs(base) * 100
}

func hasPrefix(t *model.Table, prefix string) bool {
	if t == nil || prefix == "" || !t.HasColumn(model.ColReceiptCode) {
		return false
	}
	for r := range t.Rows {
		if strings.HasPrefix(t.Get(r, model.ColReceiptCode).String(), prefix) {
			return true
		}
	}
	return false
}

func rowPeriod(t *model.Table, r int) (model.Period, bool) {
	y, okY := t.Get(r, model.ColYear).Float()
	m, okM := t.Get(r, model.ColMonth).Float()
	if !okY || !okM {
		return model.Period{}, false
	}
	return model.Period{Year: int(y), Month: int(m)}, true
}

func earliestPeriod(inv *model.Table) (model.Period, error) {
	if !inv.HasColumn(model.ColYear) || !inv.HasColumn(model.ColMonth) {
		return model.Period{}, eris.New("fifo: inventory missing year/month columns")
	}
	var (
		best  model.Period
		found bool
	)
	for r := range inv.Rows {
		p, ok := rowPeriod(inv, r)
		if !ok {
			continue
		}
		if !found || p.Before(best) {
			best, found = p, true
		}
	}
	if !found {
		return model.Period{}, eris.New("fifo: no valid year/month in inventory")
	}
	return best, nil
}

// purchasedBefore returns the codes with a purchase dated before cutoff.
func purchasedBefore(t *model.Table, cutoff time.Time) map[string]bool {
	out := make(map[string]bool)
	if t == nil {
		return out
	}
	for r := range t.Rows {
		d := t.Get(r, model.ColDate)
		if d.Kind == model.CellDate && d.Date.Before(cutoff) {
			out[strings.ToUpper(strings.TrimSpace(t.Get(r, model.ColProductCode).String()))] = true
		}
	}
	return out
}

func merge(purchases *model.Table, records []OpeningRecord, date time.Time) *model.Table {
	var out *model.Table
	if purchases != nil {
		out = purchases.Clone()
	} else {
		out = &model.Table{Name: "purchases"}
	}
	if len(records) == 0 {
		return out
	}

	d := model.Date(date)
	for _, rec := range records {
		out.Rows = append(out.Rows, make([]model.Cell, len(out.Columns)))
		r := len(out.Rows) - 1
		out.Set(r, model.ColDate, d)
		out.Set(r, model.ColProductCode, model.Text(rec.Code))
		out.Set(r, model.ColProductName, model.Text(rec.Name))
		out.Set(r, model.ColQuantity, model.Number(rec.Quantity))
		out.Set(r, model.ColUnitPrice, model.Number(rec.UnitPrice))
		out.Set(r, model.ColLineTotal, model.Number(rec.Total))
		out.Set(r, model.ColReceiptCode, model.Text(rec.ReceiptCode))
		out.Set(r, model.ColCounterparty, model.Text(rec.Supplier))
	}
	// Columns added by Set leave earlier rows short; Get reads them as null.

	sort.SliceStable(out.Rows, func(i, j int) bool {
		di, dj := out.Get(i, model.ColDate), out.Get(j, model.ColDate)
		if (di.Kind == model.CellDate) != (dj.Kind == model.CellDate) {
			return di.Kind == model.CellDate
		}
		if di.Kind == model.CellDate && !di.Date.Equal(dj.Date) {
			return di.Date.Before(dj.Date)
		}
		return out.Get(i, model.ColReceiptCode).String() < out.Get(j, model.ColReceiptCode).String()
	})
	return out
}
