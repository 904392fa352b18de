package pipeline

import (
	"path/filepath"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/disambig"
	"github.com/sells-group/catalog-reconcile/internal/fetcher"
	"github.com/sells-group/catalog-reconcile/internal/fifo"
	"github.com/sells-group/catalog-reconcile/internal/lineage"
	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/reconcile"
)

// Output file names, relative to the source's output directory.
const (
	FileMapping          = "mapping.csv"
	FileMappingChanges   = "mapping_changes.csv"
	FileDecisions        = "mapping_decisions.json"
	FileCatalog          = "catalog.csv"
	FileOpeningBalance   = "opening_balance.csv"
	FileOpeningReport    = "opening_balance_report.json"
	FileProducts         = "products.csv"
	FileDiscrepancies    = "discrepancies.json"
	FileChecks           = "checks.json"
	FileRunSummary       = "run_summary.json"
	FilePurchasesCleaned = "purchases.csv"
	FileSalesCleaned     = "sales.csv"
	FileInventoryCleaned = "inventory.csv"
	FileLineage          = "lineage.csv"
	checkFileSuffix      = ".csv"
)

func (p *Pipeline) writeMapping(dir string, res *Resolution) error {
	rows := res.Mapping.Rows()
	if err := fetcher.WriteRecords(p.fs, filepath.Join(dir, FileMapping), rows); err != nil {
		return err
	}
	if err := fetcher.WriteRecords(p.fs, filepath.Join(dir, FileMappingChanges), res.Mapping.Changed()); err != nil {
		return err
	}
	if err := fetcher.WriteRecords(p.fs, filepath.Join(dir, FileCatalog), Catalog(res.Mapping)); err != nil {
		return err
	}
	decisions := res.Decisions
	if decisions == nil {
		decisions = []disambig.Decision{}
	}
	return fetcher.WriteJSON(p.fs, filepath.Join(dir, FileDecisions), decisions)
}

// OpeningBalance synthesizes opening receipts from the earliest inventory
// month and writes them with their report. The returned Purchases table
// includes the synthetic lines.
func (p *Pipeline) OpeningBalance(ds *Datasets, dir string) (fifo.OpeningResult, error) {
	ob := p.cfg.OpeningBalance
	date, err := ob.Receipt()
	if err != nil {
		return fifo.OpeningResult{}, err
	}

	var res fifo.OpeningResult
	if ds.Inventory == nil || len(ds.Inventory.Rows) == 0 {
		zap.L().Info("pipeline: no inventory rows, opening balance skipped")
		res = fifo.OpeningResult{
			Purchases: ds.Purchases,
			Report: fifo.Report{
				Timestamp:  p.now().UTC(),
				Skipped:    true,
				Validation: fifo.Validation{QuantityMatch: true, ValueMatch: true},
				Alerts:     []string{},
			},
		}
	} else {
		res, err = fifo.SynthesizeOpening(ds.Inventory, ds.Purchases, fifo.OpeningConfig{
			ReceiptDate:  date,
			CodePrefix:   ob.CodePrefix,
			Supplier:     ob.Supplier,
			TolerancePct: ob.TolerancePct,
			Now:          p.now,
		})
		if err != nil {
			return res, eris.Wrap(err, "pipeline: opening balance")
		}
	}

	records := res.Records
	if records == nil {
		records = []fifo.OpeningRecord{}
	}
	if err := fetcher.WriteRecords(p.fs, filepath.Join(dir, FileOpeningBalance), records); err != nil {
		return res, err
	}
	if err := fetcher.WriteJSON(p.fs, filepath.Join(dir, FileOpeningReport), res.Report); err != nil {
		return res, err
	}
	if !res.Report.Passed() {
		zap.L().Warn("pipeline: opening balance totals do not match inventory",
			zap.Strings("alerts", res.Report.Alerts),
		)
	}
	return res, nil
}

func (p *Pipeline) writeProducts(dir string, products []fifo.Summary) error {
	if products == nil {
		products = []fifo.Summary{}
	}
	return fetcher.WriteRecords(p.fs, filepath.Join(dir, FileProducts), products)
}

// Reconcile runs the cross-source checks and the discrepancy scan. Every
// check's rows are written so differences can be audited line by line.
func (p *Pipeline) Reconcile(ds *Datasets, dir string) ([]model.ReconciliationResult, []reconcile.Discrepancy, error) {
	rc := p.cfg.Reconcile
	tol := reconcile.Tolerance{Quantity: rc.QtyTolerance, Value: rc.ValueTolerance}
	if tol.Quantity == 0 && tol.Value == 0 {
		tol = reconcile.DefaultTolerance
	}
	pattern := rc.DiscrepancyPattern
	if pattern == "" {
		pattern = reconcile.DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "pipeline: discrepancy pattern %q", pattern)
	}

	purchases, sales, inv := orEmpty(ds.Purchases), orEmpty(ds.Sales), orEmpty(ds.Inventory)
	type check struct {
		result model.ReconciliationResult
		rows   []reconcile.Row
	}
	var runs []check
	res, rows := reconcile.PurchasesVsInventory(purchases, inv, tol)
	runs = append(runs, check{res, rows})
	res, rows = reconcile.SalesVsInventory(sales, inv, tol)
	runs = append(runs, check{res, rows})

	checks := make([]model.ReconciliationResult, 0, len(runs))
	for _, c := range runs {
		checks = append(checks, c.result)
		rows := c.rows
		if rows == nil {
			rows = []reconcile.Row{}
		}
		if err := fetcher.WriteRecords(p.fs, filepath.Join(dir, c.result.Check+checkFileSuffix), rows); err != nil {
			return checks, nil, err
		}
		if !c.result.Passed() {
			zap.L().Warn("pipeline: reconciliation check failed",
				zap.String("check", c.result.Check),
				zap.Int("affected_keys", len(c.result.AffectedKeys)),
				zap.Float64("difference", c.result.Difference),
			)
		}
	}

	discrepancies := reconcile.Scan(inv, re, tol.Quantity)
	if discrepancies == nil {
		discrepancies = []reconcile.Discrepancy{}
	}
	for _, d := range discrepancies {
		zap.L().Warn("pipeline: inventory discrepancy",
			zap.String("column", d.Column),
			zap.String("product_code", d.Code),
			zap.Int("row", d.Row),
			zap.Float64("value", d.Value),
		)
	}
	if err := fetcher.WriteJSON(p.fs, filepath.Join(dir, FileDiscrepancies), discrepancies); err != nil {
		return checks, discrepancies, err
	}
	if err := fetcher.WriteJSON(p.fs, filepath.Join(dir, FileChecks), checks); err != nil {
		return checks, discrepancies, err
	}
	return checks, discrepancies, nil
}

func (p *Pipeline) writeOutputs(dir string, ds *Datasets, result *Result) error {
	for name, t := range map[string]*model.Table{
		FilePurchasesCleaned: ds.Purchases,
		FileSalesCleaned:     ds.Sales,
		FileInventoryCleaned: ds.Inventory,
	} {
		if err := fetcher.WriteTable(p.fs, filepath.Join(dir, name), orEmpty(t)); err != nil {
			return err
		}
	}
	var entries []lineage.Entry
	if ds.Lineage != nil {
		entries = ds.Lineage.Entries()
	}
	if err := fetcher.WriteRecords(p.fs, filepath.Join(dir, FileLineage), entries); err != nil {
		return err
	}
	return fetcher.WriteJSON(p.fs, filepath.Join(dir, FileRunSummary), result)
}

func orEmpty(t *model.Table) *model.Table {
	if t == nil {
		return &model.Table{}
	}
	return t
}
