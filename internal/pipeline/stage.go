package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/config"
	"github.com/sells-group/catalog-reconcile/internal/fetcher"
	"github.com/sells-group/catalog-reconcile/internal/lineage"
	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/standardize"
	"github.com/sells-group/catalog-reconcile/internal/validate"
)

// Rejected is one quarantined staged file.
type Rejected struct {
	File        string              `json:"file"`
	Destination string              `json:"destination"`
	Violation   *validate.Violation `json:"violation"`
}

// Datasets are the accepted tables of a run, each the union of every
// accepted period. Lineage traces each dataset row to its staged row.
type Datasets struct {
	Purchases   *model.Table
	Sales       *model.Table
	Inventory   *model.Table
	Accepted    []string
	Quarantined []Rejected
	Lineage     *lineage.Ledger
}

// Table returns the dataset for tab.
func (d *Datasets) Table(tab model.Tab) *model.Table {
	switch tab {
	case model.TabPurchaseDetail:
		return d.Purchases
	case model.TabSaleDetail:
		return d.Sales
	default:
		return d.Inventory
	}
}

// ParseStaged reads a staged CSV. The file name supplies the tab, which
// selects column types, and the period, which completes partial dates.
// All-null columns outside the tab's required set are dropped.
func ParseStaged(path string, r io.Reader) (*model.Table, error) {
	period, tab, ok := standardize.ParseStagingName(path)
	if !ok {
		return nil, eris.Errorf("pipeline: %s is not a staged file name", path)
	}
	rows, err := fetcher.ReadCSV(context.Background(), r, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse %s", path)
	}
	name := filepath.Base(path)
	if len(rows) == 0 {
		return &model.Table{Name: name}, nil
	}
	s, _ := validate.For(tab)
	return standardize.Table(name, tab, rows[0], rows[1:], standardize.Options{
		Period: period,
		Keep:   s.Required,
	}), nil
}

// StagedFiles lists staged CSVs under dir, ordered by period then tab.
// Files whose names do not follow the staging convention are ignored.
func StagedFiles(fs afero.Fs, dir string) ([]string, error) {
	matches, err := afero.Glob(fs, filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: list %s", dir)
	}
	type staged struct {
		path   string
		period model.Period
		tab    model.Tab
	}
	var files []staged
	for _, m := range matches {
		period, tab, ok := standardize.ParseStagingName(m)
		if !ok {
			zap.L().Debug("pipeline: ignoring file", zap.String("file", m))
			continue
		}
		files = append(files, staged{path: m, period: period, tab: tab})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].period != files[j].period {
			return files[i].period.Before(files[j].period)
		}
		return tabOrder(files[i].tab) < tabOrder(files[j].tab)
	})
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

func tabOrder(t model.Tab) int {
	for i, k := range model.Tabs {
		if k == t {
			return i
		}
	}
	return len(model.Tabs)
}

// Validate checks every staged file against its tab's schema. Failing
// files are moved to the rejected directory whole; passing files are
// copied to the validated directory and combined per tab. Every row of
// either kind is entered in the run's lineage.
func (p *Pipeline) Validate(ctx context.Context, src config.SourceConfig) (*Datasets, error) {
	d := p.dirsFor(src)
	paths, err := StagedFiles(p.fs, d.staging)
	if err != nil {
		return nil, err
	}

	ds := &Datasets{Quarantined: []Rejected{}, Lineage: lineage.New(p.now)}
	parts := make(map[model.Tab][]*model.Table)
	offsets := make(map[model.Tab]int)
	for _, path := range paths {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "pipeline: validate cancelled")
		}
		_, tab, _ := standardize.ParseStagingName(path)

		t, err := p.cache.Load(path, ParseStaged)
		if err != nil {
			return nil, err
		}
		s, ok := validate.For(tab)
		if !ok {
			return nil, eris.Errorf("pipeline: no schema for tab %s", tab)
		}

		if err := validate.Check(t, s); err != nil {
			v, ok := validate.AsViolation(err)
			if !ok {
				return nil, err
			}
			zap.L().Warn("pipeline: staged file failed validation", v.Fields()...)
			dest, err := validate.Quarantine(p.fs, path, d.rejected)
			if err != nil {
				return nil, err
			}
			p.cache.Invalidate(path)
			ds.Quarantined = append(ds.Quarantined, Rejected{File: path, Destination: dest, Violation: v})
			for r := range t.Rows {
				ds.Lineage.Reject(path, r, v.Reason)
			}
			continue
		}

		if err := fetcher.WriteTable(p.fs, filepath.Join(d.validated, filepath.Base(path)), t); err != nil {
			return nil, err
		}
		ds.Accepted = append(ds.Accepted, path)
		parts[tab] = append(parts[tab], t)
		for r := range t.Rows {
			ds.Lineage.Accept(path, r, string(tab), offsets[tab]+r)
		}
		offsets[tab] += len(t.Rows)
	}

	ds.Purchases = Concat(string(model.TabPurchaseDetail), parts[model.TabPurchaseDetail])
	ds.Sales = Concat(string(model.TabSaleDetail), parts[model.TabSaleDetail])
	ds.Inventory = Concat(string(model.TabInventorySnapshot), parts[model.TabInventorySnapshot])

	zap.L().Info("pipeline: validation complete",
		zap.Int("accepted", len(ds.Accepted)),
		zap.Int("quarantined", len(ds.Quarantined)),
	)
	if len(ds.Accepted) == 0 {
		return ds, eris.Errorf("pipeline: no accepted files in %s", d.staging)
	}
	return ds, nil
}

// Concat stacks tables into one. Columns are the union in first-seen
// order; cells a part lacks are null. The parts are not modified.
func Concat(name string, parts []*model.Table) *model.Table {
	out := &model.Table{Name: name}
	index := make(map[string]int)
	for _, t := range parts {
		for _, c := range t.Columns {
			if _, ok := index[c]; !ok {
				index[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range parts {
		for _, row := range t.Rows {
			next := make([]model.Cell, len(out.Columns))
			for i, c := range t.Columns {
				if i < len(row) {
					next[index[c]] = row[i]
				}
			}
			out.Rows = append(out.Rows, next)
		}
	}
	return out
}
