package schema

import "github.com/sells-group/catalog-reconcile/internal/model"

// HeaderRows is the default number of stacked header rows per tab.
var HeaderRows = map[model.Tab]int{
	model.TabPurchaseDetail:    2,
	model.TabSaleDetail:        2,
	model.TabInventorySnapshot: 3,
}

// Aliases maps flattened raw header names to cleaned column names per tab.
var Aliases = map[model.Tab]map[string]string{
	model.TabPurchaseDetail: {
		"ngày":             model.ColDate,
		"ngày_chứng_từ":    model.ColDate,
		"số_chứng_từ":      model.ColReceiptCode,
		"mã_hàng":          model.ColProductCode,
		"tên_hàng":         model.ColProductName,
		"số_lượng":         model.ColQuantity,
		"đơn_giá":          model.ColUnitPrice,
		"thành_tiền":       model.ColLineTotal,
		"tên_nhà_cung_cấp": model.ColCounterparty,
		"nhà_cung_cấp":     model.ColCounterparty,
	},
	model.TabSaleDetail: {
		"ngày":            model.ColDate,
		"ngày_chứng_từ":   model.ColDate,
		"số_chứng_từ":     model.ColReceiptCode,
		"mã_hàng":         model.ColProductCode,
		"tên_hàng":        model.ColProductName,
		"số_lượng":        model.ColQuantity,
		"số_lượng_bán_lẻ": model.ColQuantityRetail,
		"số_lượng_bán_sì": model.ColQuantityWholesale,
		"số_lượng_bán_sỉ": model.ColQuantityWholesale,
		"đơn_giá":         model.ColUnitPrice,
		"thành_tiền":      model.ColLineTotal,
		"tên_khách_hàng":  model.ColCounterparty,
		"khách_hàng":      model.ColCounterparty,
	},
	model.TabInventorySnapshot: {
		"mã_hàng":                  model.ColProductCode,
		"tên_hàng":                 model.ColProductName,
		"tồn_đầu_kỳ_số_lượng":      model.ColOpeningQuantity,
		"tồn_đầu_kỳ_đơn_giá":       model.ColOpeningPrice,
		"tồn_đầu_kỳ_thành_tiền":    model.ColOpeningValue,
		"nhập_trong_kỳ_số_lượng":   model.ColInQuantity,
		"nhập_trong_kỳ_thành_tiền": model.ColInValue,
		"xuất_trong_kỳ_số_lượng":   model.ColOutQuantity,
		"xuất_trong_kỳ_lẻ":         model.ColOutRetail,
		"xuất_trong_kỳ_sỉ":         model.ColOutWholesale,
		"xuất_trong_kỳ_thành_tiền": model.ColOutValue,
		"tồn_cuối_kỳ_số_lượng":     model.ColClosingQuantity,
		"tồn_cuối_kỳ_thành_tiền":   model.ColClosingValue,
	},
}

// Rename maps flattened names through the tab's aliases. Names without an
// alias are kept. The result is deduplicated again since two raw labels
// may share an alias.
func Rename(tab model.Tab, names []string) []string {
	aliases := Aliases[tab]
	out := make([]string, len(names))
	for i, n := range names {
		if a, ok := aliases[n]; ok {
			out[i] = a
			continue
		}
		out[i] = n
	}
	return Dedupe(out)
}
