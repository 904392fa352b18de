// Package validate checks cleaned staging files against the expected
// per-tab schema and moves failing files into quarantine.
package validate

import (
	"fmt"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// Value is a forbidden cell value. Null matches a missing value.
type Value struct {
	Null   bool
	Number float64
}

func (v Value) String() string {
	if v.Null {
		return "null"
	}
	return fmt.Sprintf("%g", v.Number)
}

// Sentinels are the placeholder values exports use for missing amounts.
var Sentinels = []Value{{Number: 0}, {Null: true}, {Number: -1}, {Number: -999}}

// Schema describes what a valid file of one tab looks like.
type Schema struct {
	Required  []string
	Numeric   []string
	Forbidden map[string][]Value
}

// Schemas is the expected-schema table, keyed by tab.
var Schemas = map[model.Tab]Schema{
	model.TabPurchaseDetail: detailSchema(),
	model.TabSaleDetail:     detailSchema(),
	model.TabInventorySnapshot: {
		Required: []string{model.ColProductCode, model.ColProductName, model.ColClosingQuantity, model.ColClosingValue},
		Numeric:  []string{model.ColClosingQuantity, model.ColClosingValue},
		Forbidden: map[string][]Value{
			model.ColClosingValue: Sentinels,
		},
	},
}

func detailSchema() Schema {
	return Schema{
		Required: []string{
			model.ColDate, model.ColProductCode, model.ColProductName,
			model.ColQuantity, model.ColUnitPrice, model.ColLineTotal,
		},
		Numeric: []string{model.ColQuantity, model.ColUnitPrice, model.ColLineTotal},
		Forbidden: map[string][]Value{
			model.ColQuantity:  Sentinels,
			model.ColUnitPrice: Sentinels,
			model.ColLineTotal: Sentinels,
		},
	}
}

// For returns the schema for tab.
func For(tab model.Tab) (Schema, bool) {
	s, ok := Schemas[tab]
	return s, ok
}
