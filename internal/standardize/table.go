package standardize

import "github.com/sells-group/catalog-reconcile/internal/model"

// Kind is the declared type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
)

// ColumnKinds declares the typed columns per tab. Undeclared columns are text.
var ColumnKinds = map[model.Tab]map[string]Kind{
	model.TabPurchaseDetail: {
		model.ColDate:      KindDate,
		model.ColQuantity:  KindNumber,
		model.ColUnitPrice: KindNumber,
		model.ColLineTotal: KindNumber,
	},
	model.TabSaleDetail: {
		model.ColDate:              KindDate,
		model.ColQuantity:          KindNumber,
		model.ColQuantityRetail:    KindNumber,
		model.ColQuantityWholesale: KindNumber,
		model.ColUnitPrice:         KindNumber,
		model.ColLineTotal:         KindNumber,
	},
	model.TabInventorySnapshot: {
		model.ColOpeningQuantity: KindNumber,
		model.ColOpeningPrice:    KindNumber,
		model.ColOpeningValue:    KindNumber,
		model.ColInQuantity:      KindNumber,
		model.ColInValue:         KindNumber,
		model.ColOutQuantity:     KindNumber,
		model.ColOutRetail:       KindNumber,
		model.ColOutWholesale:    KindNumber,
		model.ColOutValue:        KindNumber,
		model.ColClosingQuantity: KindNumber,
		model.ColClosingValue:    KindNumber,
		model.ColYear:            KindNumber,
		model.ColMonth:           KindNumber,
	},
}

// Total derives Target as the sum of Parts when an export splits a
// quantity over several columns instead of carrying it directly.
type Total struct {
	Target string
	Parts  []string
}

// Totals lists the split quantities per tab.
var Totals = map[model.Tab][]Total{
	model.TabSaleDetail: {
		{Target: model.ColQuantity, Parts: []string{model.ColQuantityRetail, model.ColQuantityWholesale}},
	},
	model.TabInventorySnapshot: {
		{Target: model.ColOutQuantity, Parts: []string{model.ColOutRetail, model.ColOutWholesale}},
	},
}

// Options control how raw strings are converted.
type Options struct {
	// Locale selects dot-thousands/comma-decimal parsing for numbers.
	Locale bool
	// Period supplies the year (and month hint) for partial dates.
	Period model.Period
	// KeepEmpty disables dropping all-null columns.
	KeepEmpty bool
	// Keep names columns that survive even when all null.
	Keep []string
}

// Table converts raw rows under the given column names into a typed
// table. Short rows are padded with nulls. Split quantities are summed
// into their total column when the total is missing. All-null columns
// other than opts.Keep are dropped unless opts.KeepEmpty is set.
func Table(name string, tab model.Tab, columns []string, rows [][]string, opts Options) *model.Table {
	kinds := ColumnKinds[tab]
	out := &model.Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
		Rows:    make([][]model.Cell, 0, len(rows)),
	}
	for _, raw := range rows {
		if blankRow(raw) {
			continue
		}
		row := make([]model.Cell, len(columns))
		for i, col := range columns {
			v := ""
			if i < len(raw) {
				v = raw[i]
			}
			row[i] = convert(v, kinds[col], opts)
		}
		out.Rows = append(out.Rows, row)
	}
	for _, tot := range Totals[tab] {
		addTotal(out, tot)
	}
	if !opts.KeepEmpty {
		DropEmptyColumns(out, opts.Keep...)
	}
	return out
}

// addTotal appends tot.Target when the table has at least one part and no
// target. A row whose parts are all null gets a null total.
func addTotal(t *model.Table, tot Total) {
	if t.HasColumn(tot.Target) {
		return
	}
	var parts []int
	for _, p := range tot.Parts {
		if i := t.Index(p); i >= 0 {
			parts = append(parts, i)
		}
	}
	if len(parts) == 0 {
		return
	}
	t.Columns = append(t.Columns, tot.Target)
	for r, row := range t.Rows {
		sum, seen := 0.0, false
		for _, i := range parts {
			if v, ok := row[i].Float(); ok {
				sum += v
				seen = true
			}
		}
		cell := model.Null()
		if seen {
			cell = model.Number(sum)
		}
		t.Rows[r] = append(row, cell)
	}
}

func convert(v string, k Kind, opts Options) model.Cell {
	switch k {
	case KindNumber:
		if opts.Locale {
			return ParseLocaleNumber(v)
		}
		return ParseNumber(v)
	case KindDate:
		return ParseDateCell(v, opts.Period)
	default:
		return Clean(v)
	}
}

func blankRow(raw []string) bool {
	for _, v := range raw {
		if CleanString(v) != "" {
			return false
		}
	}
	return true
}

// DropEmptyColumns removes every column whose cells are all null, except
// the named ones. A table without rows keeps its header.
func DropEmptyColumns(t *model.Table, names ...string) {
	if len(t.Rows) == 0 {
		return
	}
	exempt := make(map[string]bool, len(names))
	for _, n := range names {
		exempt[n] = true
	}
	keep := make([]int, 0, len(t.Columns))
	for i, col := range t.Columns {
		if exempt[col] {
			keep = append(keep, i)
			continue
		}
		for _, row := range t.Rows {
			if i < len(row) && !row[i].IsNull() {
				keep = append(keep, i)
				break
			}
		}
	}
	if len(keep) == len(t.Columns) {
		return
	}
	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		next := make([]model.Cell, len(keep))
		for j, i := range keep {
			if i < len(row) {
				next[j] = row[i]
			}
		}
		t.Rows[r] = next
	}
	t.Columns = cols
}
