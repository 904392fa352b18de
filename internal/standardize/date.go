package standardize

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

var (
	serialEpoch    = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	serialEpochLow = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
)

// SerialToDate converts a spreadsheet serial day number. Serials up to 59
// count from 1899-12-31; serial 60 is the nonexistent 1900-02-29 and maps
// to 1900-02-28; later serials count from 1899-12-30.
func SerialToDate(v float64) time.Time {
	days := int(v)
	switch {
	case days > 60:
		return serialEpoch.AddDate(0, 0, days)
	case days == 60:
		return time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC)
	default:
		return serialEpochLow.AddDate(0, 0, days)
	}
}

// DateLayouts are full textual date formats in the order they are tried.
var DateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"2/1/06",
	"2-1-06",
}

// PartialLayouts are day/month formats completed with the year of the
// source file.
var PartialLayouts = []string{
	"2-Jan",
	"2/1",
	"2-1",
}

// minSerial and maxSerial bound plausible serial dates (1900 to 2100).
const (
	minSerial = 1
	maxSerial = 73051
)

// ParseDate converts one raw date value. Numeric values are read as
// spreadsheet serials; text is tried against DateLayouts, then against
// PartialLayouts using p.Year. When p.Month is set and a day/month order
// disagrees with it, the swapped order is preferred if it agrees.
func ParseDate(raw string, p model.Period) (time.Time, bool) {
	c := Clean(raw)
	if c.IsNull() {
		return time.Time{}, false
	}
	s := c.Text

	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		if f < minSerial || f > maxSerial {
			return time.Time{}, false
		}
		return SerialToDate(f), true
	}

	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if p.Month != 0 && int(t.Month()) != p.Month && strings.HasPrefix(layout, "2/1") {
			if alt, err := time.Parse(swapDayMonth(layout), s); err == nil && int(alt.Month()) == p.Month {
				return dayOf(alt), true
			}
		}
		return dayOf(t), true
	}

	if p.Year == 0 {
		return time.Time{}, false
	}
	for _, layout := range PartialLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(p.Year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ParseDateCell wraps ParseDate into a cell, null on failure.
func ParseDateCell(raw string, p model.Period) model.Cell {
	t, ok := ParseDate(raw, p)
	if !ok {
		return model.Null()
	}
	return model.Date(t)
}

func swapDayMonth(layout string) string {
	return "1/2" + strings.TrimPrefix(layout, "2/1")
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
