package fifo

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Profit is revenue against FIFO cost of goods sold for one product.
type Profit struct {
	Revenue   decimal.Decimal `json:"revenue"`
	COGS      decimal.Decimal `json:"cogs"`
	Gross     decimal.Decimal `json:"gross_profit"`
	MarginPct decimal.Decimal `json:"margin_pct"`
}

// GrossProfit computes COGS as total purchase cost minus the FIFO value
// of what was not sold. Margin is zero when there is no revenue.
func GrossProfit(lots []model.Lot, sold float64, revenue decimal.Decimal) Profit {
	purchased := TotalQuantity(lots)
	remaining := purchased - sold
	if remaining < 0 {
		remaining = 0
	}
	cogs := TotalCost(lots).Sub(RemainingCost(lots, remaining).Total)
	p := Profit{Revenue: revenue, COGS: cogs, Gross: revenue.Sub(cogs), MarginPct: decimal.Zero}
	if !revenue.IsZero() {
		p.MarginPct = p.Gross.Div(revenue).Mul(hundred).Round(2)
	}
	return p
}

// Sale is one sale line for per-line costing.
type Sale struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
	Revenue  float64   `json:"revenue"`
}

// SaleCost is the FIFO cost attributed to one sale line.
type SaleCost struct {
	Sale
	COGS decimal.Decimal `json:"cogs"`
	// Shortfall is the quantity sold with no lot left to cover it. It is
	// costed at zero.
	Shortfall float64 `json:"shortfall"`
}

// SaleCOGS walks sales in date order, consuming lots oldest first.
func SaleCOGS(lots []model.Lot, sales []Sale) []SaleCost {
	queue := Sorted(lots)
	ordered := append([]Sale(nil), sales...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	remaining := make([]decimal.Decimal, len(queue))
	for i, l := range queue {
		remaining[i] = decimal.NewFromFloat(l.Quantity)
	}

	out := make([]SaleCost, 0, len(ordered))
	head := 0
	for _, s := range ordered {
		need := decimal.NewFromFloat(s.Quantity)
		cogs := decimal.Zero
		for head < len(queue) && need.IsPositive() {
			if !remaining[head].IsPositive() {
				head++
				continue
			}
			take := decimal.Min(remaining[head], need)
			cogs = cogs.Add(take.Mul(decimal.NewFromFloat(queue[head].UnitCost)))
			remaining[head] = remaining[head].Sub(take)
			need = need.Sub(take)
		}
		sc := SaleCost{Sale: s, COGS: cogs}
		if need.IsPositive() {
			sc.Shortfall = need.InexactFloat64()
		}
		out = append(out, sc)
	}
	return out
}

// Summary is the per-product roll-up written to the product report.
type Summary struct {
	Code           string  `json:"code" csv:"product_code"`
	Name           string  `json:"name" csv:"product_name"`
	Purchased      float64 `json:"purchased" csv:"purchased_quantity"`
	Sold           float64 `json:"sold" csv:"sold_quantity"`
	Inventory      float64 `json:"inventory" csv:"inventory_quantity"`
	RemainingValue float64 `json:"remaining_value" csv:"remaining_value"`
	UnitCost       float64 `json:"unit_cost" csv:"fifo_unit_cost"`
	FirstPrice     float64 `json:"first_price" csv:"first_purchase_price"`
	LastPrice      float64 `json:"last_price" csv:"last_purchase_price"`
	FirstDate      string  `json:"first_date" csv:"first_purchase_date"`
	LastDate       string  `json:"last_date" csv:"last_purchase_date"`
	Revenue        float64 `json:"revenue" csv:"revenue"`
	COGS           float64 `json:"cogs" csv:"cogs"`
	GrossProfit    float64 `json:"gross_profit" csv:"gross_profit"`
	MarginPct      float64 `json:"margin_pct" csv:"margin_pct"`
}

// Summarize rolls purchases and sales up per product code, sorted by code.
// Inventory is the closing quantity of the code's latest snapshot in inv.
// Codes without a snapshot fall back to purchased minus sold. Either way
// it is never negative and is valued FIFO.
func Summarize(purchases, sales, inv *model.Table) []Summary {
	lots := Lots(purchases)
	closing := ClosingStock(inv)
	byCode := make(map[string]*Summary)
	lastSeen := make(map[string]time.Time)
	get := func(code string) *Summary {
		s, ok := byCode[code]
		if !ok {
			s = &Summary{Code: code}
			byCode[code] = s
		}
		return s
	}

	observe := func(t *model.Table) {
		for r := range t.Rows {
			code := strings.TrimSpace(t.Get(r, model.ColProductCode).String())
			if code == "" {
				continue
			}
			s := get(code)
			d := t.Get(r, model.ColDate)
			if s.Name == "" || (d.Kind == model.CellDate && !d.Date.Before(lastSeen[code])) {
				s.Name = t.Get(r, model.ColProductName).String()
				if d.Kind == model.CellDate {
					lastSeen[code] = d.Date
				}
			}
		}
	}
	observe(purchases)

	revenue := make(map[string]decimal.Decimal)
	if sales != nil {
		observe(sales)
		for r := range sales.Rows {
			code := strings.TrimSpace(sales.Get(r, model.ColProductCode).String())
			if code == "" {
				continue
			}
			s := get(code)
			if q, ok := sales.Get(r, model.ColQuantity).Float(); ok {
				s.Sold += q
			}
			if v, ok := sales.Get(r, model.ColLineTotal).Float(); ok {
				revenue[code] = revenue[code].Add(decimal.NewFromFloat(v))
			}
		}
	}

	out := make([]Summary, 0, len(byCode))
	for code, s := range byCode {
		l := lots[code]
		s.Purchased = TotalQuantity(l)
		s.Inventory = s.Purchased - s.Sold
		if q, ok := closing[code]; ok {
			s.Inventory = q
		}
		if s.Inventory < 0 {
			s.Inventory = 0
		}
		c := RemainingCost(l, s.Inventory)
		s.RemainingValue = c.Total.InexactFloat64()
		s.UnitCost = c.Unit.Round(2).InexactFloat64()
		if len(l) > 0 {
			s.FirstPrice, s.FirstDate = l[0].UnitCost, l[0].AcquiredAt.Format(model.DateLayout)
			last := l[len(l)-1]
			s.LastPrice, s.LastDate = last.UnitCost, last.AcquiredAt.Format(model.DateLayout)
		}
		p := GrossProfit(l, s.Sold, revenue[code])
		s.Revenue = p.Revenue.InexactFloat64()
		s.COGS = p.COGS.InexactFloat64()
		s.GrossProfit = p.Gross.InexactFloat64()
		s.MarginPct = p.MarginPct.InexactFloat64()
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ClosingStock returns each code's closing quantity from its latest
// snapshot period. Rows without a period or a numeric closing quantity
// are skipped.
func ClosingStock(inv *model.Table) map[string]float64 {
	out := make(map[string]float64)
	if inv == nil {
		return out
	}
	latest := make(map[string]model.Period)
	for r := range inv.Rows {
		code := strings.TrimSpace(inv.Get(r, model.ColProductCode).String())
		if code == "" {
			continue
		}
		y, okY := inv.Get(r, model.ColYear).Float()
		m, okM := inv.Get(r, model.ColMonth).Float()
		q, okQ := inv.Get(r, model.ColClosingQuantity).Float()
		if !okY || !okM || !okQ {
			continue
		}
		p := model.Period{Year: int(y), Month: int(m)}
		if prev, seen := latest[code]; seen && p.Before(prev) {
			continue
		}
		latest[code] = p
		out[code] = q
	}
	return out
}
