package pipeline

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/attrs"
	"github.com/sells-group/catalog-reconcile/internal/canon"
	"github.com/sells-group/catalog-reconcile/internal/disambig"
	"github.com/sells-group/catalog-reconcile/internal/lineage"
	"github.com/sells-group/catalog-reconcile/internal/model"
)

// Resolution is the outcome of name resolution: one mapping built from
// every dataset and applied to every dataset.
type Resolution struct {
	Datasets  *Datasets
	Mapping   *model.CodeMapping
	Decisions []disambig.Decision
	Stats     disambig.Stats
	Records   int
}

// Resolve cleans product codes, builds the code mapping from the name
// observations of all three datasets and rewrites each dataset through
// it. Row counts are unchanged. Rewritten codes and names are entered in
// the datasets' lineage when it has one.
func Resolve(ds *Datasets, c *canon.Canonicalizer, threshold float64) *Resolution {
	cleaned := map[model.Tab]*model.Table{}
	var records []model.ProductNameRecord
	for _, tab := range model.Tabs {
		t := cleanCodes(ds.Table(tab))
		cleaned[tab] = t
		records = append(records, disambig.Records(t, tab.Source())...)
	}

	m, decisions := disambig.Build(records, disambig.Options{Threshold: threshold, Canon: c})

	mapped := &Datasets{Accepted: ds.Accepted, Quarantined: ds.Quarantined, Lineage: ds.Lineage}
	for _, tab := range model.Tabs {
		t := cleaned[tab]
		if out, err := disambig.Apply(m, t); err == nil {
			t = out
		} else if len(t.Rows) > 0 {
			zap.L().Warn("pipeline: mapping not applied", zap.String("table", t.Name), zap.Error(err))
		}
		trackRewrites(ds.Lineage, tab, ds.Table(tab), t)
		switch tab {
		case model.TabPurchaseDetail:
			mapped.Purchases = t
		case model.TabSaleDetail:
			mapped.Sales = t
		default:
			mapped.Inventory = t
		}
	}

	stats := disambig.Summarize(decisions)
	zap.L().Info("pipeline: code mapping built",
		zap.Int("records", len(records)),
		zap.Int("keys", m.Len()),
		zap.Int("normalized", stats.Normalized),
		zap.Int("split", stats.Split),
		zap.Int("new_codes", stats.NewCodes),
	)
	return &Resolution{
		Datasets:  mapped,
		Mapping:   m,
		Decisions: decisions,
		Stats:     stats,
		Records:   len(records),
	}
}

// trackRewrites enters each row whose code or name differs between
// before and after.
func trackRewrites(l *lineage.Ledger, tab model.Tab, before, after *model.Table) {
	if l == nil || before == nil {
		return
	}
	for r := range after.Rows {
		if r >= len(before.Rows) {
			break
		}
		var changes []string
		for _, col := range []string{model.ColProductCode, model.ColProductName} {
			from, to := before.Get(r, col).String(), after.Get(r, col).String()
			if from != to {
				changes = append(changes, fmt.Sprintf("%s: %q -> %q", col, from, to))
			}
		}
		if len(changes) > 0 {
			l.Change(string(tab), r, lineage.OpResolve, strings.Join(changes, "; "))
		}
	}
}

// cleanCodes returns a copy of t with codes stripped to letters, digits
// and hyphens. Codes that clean to nothing become null.
func cleanCodes(t *model.Table) *model.Table {
	if t == nil {
		return &model.Table{}
	}
	out := t.Clone()
	if !out.HasColumn(model.ColProductCode) {
		return out
	}
	for r := range out.Rows {
		c := out.Get(r, model.ColProductCode)
		if c.IsNull() {
			continue
		}
		code := canon.CleanCode(c.String())
		if code == "" {
			out.Set(r, model.ColProductCode, model.Null())
			continue
		}
		out.Set(r, model.ColProductCode, model.Text(code))
	}
	return out
}

// CatalogEntry is one resolved product with its extracted attributes.
type CatalogEntry struct {
	Code        string `json:"product_code" csv:"product_code"`
	Name        string `json:"product_name" csv:"product_name"`
	Class       string `json:"class" csv:"class"`
	Attributes  string `json:"attributes" csv:"attributes"`
	Description string `json:"description" csv:"description"`
}

// Catalog lists each final code once with the attributes of its name,
// in mapping order.
func Catalog(m *model.CodeMapping) []CatalogEntry {
	seen := make(map[string]bool)
	var out []CatalogEntry
	for _, row := range m.Rows() {
		if seen[row.CodeTarget.Code] {
			continue
		}
		seen[row.CodeTarget.Code] = true
		set := attrs.Extract(row.CodeTarget.Name)
		out = append(out, CatalogEntry{
			Code:        row.CodeTarget.Code,
			Name:        row.CodeTarget.Name,
			Class:       attrs.Classify(row.CodeTarget.Name).String(),
			Attributes:  set.String(),
			Description: set.Description,
		})
	}
	return out
}
