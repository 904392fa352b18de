package pipeline

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/config"
	"github.com/sells-group/catalog-reconcile/internal/fetcher"
	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/schema"
	"github.com/sells-group/catalog-reconcile/internal/standardize"
	"github.com/sells-group/catalog-reconcile/internal/validate"
)

// Ingest downloads every configured tab of every sheet in the source's
// folders and writes one staged CSV per period and tab. Sheets whose name
// carries no period are skipped. Without a remote client it does nothing.
func (p *Pipeline) Ingest(ctx context.Context, src config.SourceConfig) ([]string, error) {
	if p.remote == nil || len(src.FolderIDs) == 0 {
		zap.L().Info("pipeline: no remote folders, using staged files")
		return nil, nil
	}
	d := p.dirsFor(src)

	var staged []string
	for _, folder := range src.FolderIDs {
		sheets, err := p.remote.ListSheets(ctx, folder)
		if err != nil {
			return staged, err
		}
		for _, sheet := range sheets {
			period, ok := standardize.ParseRemoteName(sheet.Name)
			if !ok {
				zap.L().Warn("pipeline: sheet name has no period, skipping",
					zap.String("sheet", sheet.Name),
					zap.String("folder_id", folder),
				)
				continue
			}
			for _, tabName := range src.Tabs {
				tab, ok := model.RemoteTabs[tabName]
				if !ok {
					return staged, eris.Errorf("pipeline: unknown tab %q", tabName)
				}
				if len(sheet.Tabs) > 0 && !contains(sheet.Tabs, tabName) {
					continue
				}
				rows, err := p.remote.Download(ctx, sheet.ID, tabName)
				if err != nil {
					return staged, err
				}
				t, err := Transform(tab, rows, period, src.Preprocessed())
				if err != nil {
					return staged, eris.Wrapf(err, "pipeline: transform %s/%s", sheet.Name, tabName)
				}
				t.Name = standardize.StagingName(period, tab)
				path := filepath.Join(d.staging, t.Name)
				if err := fetcher.WriteTable(p.fs, path, t); err != nil {
					return staged, err
				}
				p.cache.Invalidate(path)
				staged = append(staged, path)
			}
		}
	}
	zap.L().Info("pipeline: staged files written", zap.Int("files", len(staged)))
	return staged, nil
}

// Transform turns downloaded rows into a typed table. Preprocessed exports
// have one header row and machine-formatted numbers. Raw exports have the
// tab's stacked header rows and locale-formatted numbers. Inventory tables
// get year and month columns from period. All-null columns are dropped
// except the tab's required ones, which validation reports on.
func Transform(tab model.Tab, rows [][]string, period model.Period, preprocessed bool) (*model.Table, error) {
	headerRows := 1
	if !preprocessed {
		headerRows = schema.HeaderRows[tab]
	}
	if len(rows) < headerRows {
		return nil, eris.Errorf("pipeline: %d rows is fewer than %d header rows", len(rows), headerRows)
	}

	var names []string
	if preprocessed {
		names = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			names[i] = schema.CleanHeader(h)
		}
		names = schema.Dedupe(names)
	} else {
		var err error
		names, err = schema.Combine(rows[:headerRows], width(rows))
		if err != nil {
			return nil, err
		}
	}
	names = schema.Rename(tab, names)

	s, _ := validate.For(tab)
	t := standardize.Table(standardize.StagingName(period, tab), tab, names, rows[headerRows:], standardize.Options{
		Locale: !preprocessed,
		Period: period,
		Keep:   s.Required,
	})
	if tab == model.TabInventorySnapshot {
		for r := range t.Rows {
			t.Set(r, model.ColYear, model.Number(float64(period.Year)))
			t.Set(r, model.ColMonth, model.Number(float64(period.Month)))
		}
		if len(t.Rows) == 0 {
			t.Columns = append(t.Columns, model.ColYear, model.ColMonth)
		}
	}
	return t, nil
}

func width(rows [][]string) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
