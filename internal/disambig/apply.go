package disambig

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// Records extracts one name observation per row of t. Rows without a code
// are skipped. The row date, when present, becomes the observation time.
func Records(t *model.Table, src model.Source) []model.ProductNameRecord {
	if !t.HasColumn(model.ColProductCode) || !t.HasColumn(model.ColProductName) {
		return nil
	}
	out := make([]model.ProductNameRecord, 0, len(t.Rows))
	for r := range t.Rows {
		code := t.Get(r, model.ColProductCode)
		if code.IsNull() {
			continue
		}
		rec := model.ProductNameRecord{
			Code:   code.String(),
			Name:   t.Get(r, model.ColProductName).String(),
			Source: src,
		}
		if d := t.Get(r, model.ColDate); d.Kind == model.CellDate {
			at := d.Date
			rec.ObservedAt = &at
		} else if p, ok := periodOf(t, r); ok {
			at := p.End()
			rec.ObservedAt = &at
		}
		out = append(out, rec)
	}
	return out
}

// periodOf reads the year/month columns inventory snapshots carry.
func periodOf(t *model.Table, r int) (model.Period, bool) {
	y, okY := t.Get(r, model.ColYear).Float()
	m, okM := t.Get(r, model.ColMonth).Float()
	if !okY || !okM || m < 1 || m > 12 {
		return model.Period{}, false
	}
	return model.Period{Year: int(y), Month: int(m)}, true
}

// Apply rewrites the code and name of every row of t through m and returns
// the rewritten copy. The row count never changes; keys missing from m are
// left as they are.
func Apply(m *model.CodeMapping, t *model.Table) (*model.Table, error) {
	if m == nil {
		return nil, eris.New("disambig: nil mapping")
	}
	if !t.HasColumn(model.ColProductCode) || !t.HasColumn(model.ColProductName) {
		return nil, eris.Errorf("disambig: table %q has no product code/name columns", t.Name)
	}

	out := t.Clone()
	unmatched := 0
	for r := range out.Rows {
		code := out.Get(r, model.ColProductCode)
		if code.IsNull() {
			continue
		}
		key := model.CodeKey{Code: code.String(), Name: out.Get(r, model.ColProductName).String()}
		target, ok := m.Lookup(key)
		if !ok {
			unmatched++
			continue
		}
		out.Set(r, model.ColProductCode, model.Text(target.Code))
		out.Set(r, model.ColProductName, model.Text(target.Name))
	}

	if unmatched > 0 {
		zap.L().Warn("disambig: rows without mapping entry",
			zap.String("table", t.Name),
			zap.Int("rows", unmatched),
		)
	}
	return out, nil
}
