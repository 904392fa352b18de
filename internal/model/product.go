package model

import "time"

// Source identifies which dataset a record was observed in.
type Source string

const (
	SourcePurchase  Source = "purchase"
	SourceSale      Source = "sale"
	SourceInventory Source = "inventory"
)

// Tab is a logical sheet in a source export.
type Tab string

const (
	TabPurchaseDetail    Tab = "purchase-detail"
	TabSaleDetail        Tab = "sale-detail"
	TabInventorySnapshot Tab = "inventory-snapshot"
)

// Tabs lists all known tabs in pipeline order.
var Tabs = []Tab{TabPurchaseDetail, TabSaleDetail, TabInventorySnapshot}

// Source returns the dataset a tab feeds.
func (t Tab) Source() Source {
	switch t {
	case TabPurchaseDetail:
		return SourcePurchase
	case TabSaleDetail:
		return SourceSale
	default:
		return SourceInventory
	}
}

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	for _, k := range Tabs {
		if k == t {
			return true
		}
	}
	return false
}

// Column names shared by every cleaned dataset.
const (
	ColDate              = "date"
	ColProductCode       = "product_code"
	ColProductName       = "product_name"
	ColQuantity          = "quantity"
	ColQuantityRetail    = "quantity_retail"
	ColQuantityWholesale = "quantity_wholesale"
	ColUnitPrice         = "unit_price"
	ColLineTotal         = "line_total"
	ColReceiptCode       = "receipt_code"
	ColCounterparty      = "counterparty"
	ColClosingQuantity   = "closing_quantity"
	ColClosingValue      = "closing_value"
	ColOpeningQuantity   = "opening_quantity"
	ColOpeningPrice      = "opening_unit_price"
	ColOpeningValue      = "opening_value"
	ColInQuantity        = "in_quantity"
	ColInValue           = "in_value"
	ColOutQuantity       = "out_quantity"
	ColOutRetail         = "out_retail"
	ColOutWholesale      = "out_wholesale"
	ColOutValue          = "out_value"
	ColYear              = "year"
	ColMonth             = "month"
)

// Period is a calendar month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Before reports whether p precedes o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// LastDayOfPrevious returns the last calendar day of the month before p.
func (p Period) LastDayOfPrevious() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// End returns the last calendar day of p.
func (p Period) End() time.Time {
	return time.Date(p.Year, time.Month(p.Month)+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// ProductNameRecord is one observation of a product name under a code.
type ProductNameRecord struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	Source     Source     `json:"source"`
}

// Lot is one purchase receipt line used for FIFO costing.
type Lot struct {
	AcquiredAt time.Time `json:"acquired_at"`
	Quantity   float64   `json:"quantity"`
	UnitCost   float64   `json:"unit_cost"`
}

// Total returns quantity times unit cost.
func (l Lot) Total() float64 { return l.Quantity * l.UnitCost }

// RemoteTabs maps sheet tab names in source exports to logical tabs.
var RemoteTabs = map[string]Tab{
	"CT.NHAP": TabPurchaseDetail,
	"CT.XUAT": TabSaleDetail,
	"XNT":     TabInventorySnapshot,
}
