package standardize

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

var (
	stagingName = regexp.MustCompile(`^(\d{4})_(\d{1,2})_([a-z-]+)\.csv$`)
	remoteName  = regexp.MustCompile(`(\d{4})-(\d{1,2})$`)
	legacyName  = regexp.MustCompile(`T(\d{1,2})\.(\d{2})$`)
)

// StagingName builds the staged file name for a period and tab.
func StagingName(p model.Period, tab model.Tab) string {
	return fmt.Sprintf("%d_%d_%s.csv", p.Year, p.Month, tab)
}

// ParseStagingName reads the period and tab out of a staged file name of
// the form {year}_{month}_{tab}.csv.
func ParseStagingName(path string) (model.Period, model.Tab, bool) {
	m := stagingName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return model.Period{}, "", false
	}
	tab := model.Tab(m[3])
	if !tab.Valid() {
		return model.Period{}, "", false
	}
	p, ok := period(m[1], m[2], 0)
	return p, tab, ok
}

// ParseRemoteName reads the period out of a remote spreadsheet name ending
// in "YYYY-M" or the legacy "TM.YY" form.
func ParseRemoteName(name string) (model.Period, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls", ".csv":
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = strings.TrimSpace(name)
	if m := remoteName.FindStringSubmatch(name); m != nil {
		return period(m[1], m[2], 0)
	}
	if m := legacyName.FindStringSubmatch(name); m != nil {
		return period(m[2], m[1], 2000)
	}
	return model.Period{}, false
}

func period(year, month string, base int) (model.Period, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return model.Period{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return model.Period{}, false
	}
	return model.Period{Year: base + y, Month: mo}, true
}
