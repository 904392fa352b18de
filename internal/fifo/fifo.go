// Package fifo values inventory and cost of goods sold first-in first-out:
// the oldest stock is sold first, so what remains is the newest stock.
package fifo

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// Cost is the valuation of a remaining quantity.
type Cost struct {
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
	Unit     decimal.Decimal `json:"unit"`
	// Shortfall is the part of the requested quantity no lot covers.
	Shortfall decimal.Decimal `json:"shortfall"`
}

// RemainingCost values remaining units against lots, consuming from the
// most recent lot backward. Lots are sorted by acquisition date first; the
// input slice is not modified. A non-positive remaining quantity costs
// nothing and consumes no lot.
func RemainingCost(lots []model.Lot, remaining float64) Cost {
	zero := decimal.Zero
	if remaining <= 0 {
		return Cost{Quantity: zero, Total: zero, Unit: zero, Shortfall: zero}
	}

	need := decimal.NewFromFloat(remaining)
	total := decimal.Zero
	sorted := Sorted(lots)
	for i := len(sorted) - 1; i >= 0 && need.IsPositive(); i-- {
		qty := decimal.NewFromFloat(sorted[i].Quantity)
		if !qty.IsPositive() {
			continue
		}
		take := decimal.Min(qty, need)
		total = total.Add(take.Mul(decimal.NewFromFloat(sorted[i].UnitCost)))
		need = need.Sub(take)
	}

	r := decimal.NewFromFloat(remaining)
	return Cost{
		Quantity:  r,
		Total:     total,
		Unit:      total.Div(r),
		Shortfall: need,
	}
}

// Sorted returns a copy of lots in ascending acquisition order. Lots on
// the same date keep their input order.
func Sorted(lots []model.Lot) []model.Lot {
	out := append([]model.Lot(nil), lots...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AcquiredAt.Before(out[j].AcquiredAt)
	})
	return out
}

// TotalCost is the purchase cost of every lot.
func TotalCost(lots []model.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(decimal.NewFromFloat(l.Quantity).Mul(decimal.NewFromFloat(l.UnitCost)))
	}
	return total
}

// TotalQuantity sums lot quantities.
func TotalQuantity(lots []model.Lot) float64 {
	var q float64
	for _, l := range lots {
		q += l.Quantity
	}
	return q
}

// Lots groups the purchase lines of t by product code. The unit cost of a
// line is its total divided by its quantity; lines without a positive
// quantity or a date are skipped.
func Lots(t *model.Table) map[string][]model.Lot {
	out := make(map[string][]model.Lot)
	for r := range t.Rows {
		code := strings.TrimSpace(t.Get(r, model.ColProductCode).String())
		date := t.Get(r, model.ColDate)
		qty, ok := t.Get(r, model.ColQuantity).Float()
		if code == "" || date.Kind != model.CellDate || !ok || qty <= 0 {
			continue
		}
		unit, ok := t.Get(r, model.ColUnitPrice).Float()
		if total, tok := t.Get(r, model.ColLineTotal).Float(); tok {
			unit, ok = total/qty, true
		}
		if !ok {
			unit = 0
		}
		out[code] = append(out[code], model.Lot{AcquiredAt: date.Date, Quantity: qty, UnitCost: unit})
	}
	for code, lots := range out {
		out[code] = Sorted(lots)
	}
	return out
}
