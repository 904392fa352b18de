package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/catalog-reconcile/internal/config"
	"github.com/sells-group/catalog-reconcile/internal/fetcher"
	"github.com/sells-group/catalog-reconcile/internal/lineage"
	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/remote"
	"github.com/sells-group/catalog-reconcile/internal/store"
	"github.com/sells-group/catalog-reconcile/internal/validate"
)

const testSource = "receipts"

func testConfig() *config.Config {
	return &config.Config{
		Paths: config.PathsConfig{
			DataDir:      "data",
			MirrorDir:    "drive",
			StagingDir:   "data/01-staging",
			ValidatedDir: "data/02-validated",
			RejectedDir:  "data/00-rejected",
			OutputDir:    "data/03-output",
		},
		Sources: map[string]config.SourceConfig{
			testSource: {
				FolderIDs:    []string{"f1"},
				Tabs:         []string{"CT.NHAP", "CT.XUAT", "XNT"},
				OutputSubdir: "ie",
				SourceType:   config.SourcePreprocessed,
			},
		},
		Cache:   config.CacheConfig{Capacity: 10},
		Cluster: config.ClusterConfig{Threshold: 0.8},
		OpeningBalance: config.OpeningBalanceConfig{
			CodePrefix:   "PN-OB",
			Supplier:     "Kho đầu kỳ",
			TolerancePct: 5,
		},
		Reconcile: config.ReconcileConfig{QtyTolerance: 0.01, ValueTolerance: 1},
	}
}

func book(t *testing.T, tabs map[string][][]string, order ...string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range order {
		sh, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, r := range tabs[name] {
			row := sh.AddRow()
			for _, v := range r {
				row.AddCell().SetString(v)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

var (
	purchaseHeader  = []string{"date", "product_code", "product_name", "quantity", "unit_price", "line_total", "receipt_code"}
	saleHeader      = []string{"date", "product_code", "product_name", "quantity", "unit_price", "line_total"}
	inventoryHeader = []string{
		"product_code", "product_name",
		"opening_quantity", "opening_unit_price", "opening_value",
		"in_quantity", "in_value", "out_quantity", "out_value",
		"closing_quantity", "closing_value",
	}
)

// mirrorFS holds one complete month and one month whose purchase tab has
// no line_total column.
func mirrorFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	march := book(t, map[string][][]string{
		"CT.NHAP": {
			purchaseHeader,
			{"2024-03-05", "A1", "RUỘT 250-17", "2", "100", "200", "PN001"},
			{"2024-03-06", "X1", "VỎ MAXXIS 80/90-17", "1", "100", "100", "PN002"},
		},
		"CT.XUAT": {
			saleHeader,
			{"2024-03-10", "A1", "RUỘT 250-17", "1", "150", "150"},
			{"2024-03-11", "x1 ", "NHỚT CASTROL 0.8L", "1", "90", "90"},
		},
		"XNT": {
			inventoryHeader,
			{"A1", "RUỘT 250-17", "0", "0", "0", "2", "200", "1", "150", "1", "100"},
			{"B1", "BÌNH GS WTZ5S", "5", "10", "50", "0", "0", "0", "0", "5", "50"},
			{"X1", "VỎ MAXXIS 80/90-17", "0", "0", "0", "1", "100", "0", "0", "1", "100"},
		},
	}, "CT.NHAP", "CT.XUAT", "XNT")
	april := book(t, map[string][][]string{
		"CT.NHAP": {
			{"date", "product_code", "product_name", "quantity", "unit_price"},
			{"2024-04-02", "A1", "RUỘT 250-17", "1", "100"},
		},
	}, "CT.NHAP")
	require.NoError(t, afero.WriteFile(fs, "drive/f1/Bao cao 2024-3.xlsx", march, 0o644))
	require.NoError(t, afero.WriteFile(fs, "drive/f1/Bao cao 2024-4.xlsx", april, 0o644))
	require.NoError(t, afero.WriteFile(fs, "drive/f1/Ghi chu.xlsx", april, 0o644))
	return fs
}

func newRuns(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newPipeline(t *testing.T, cfg *config.Config, fs afero.Fs, runs store.Runs, client *remote.Client) *Pipeline {
	t.Helper()
	p, err := New(cfg, fs, runs, client, nil, nil)
	require.NoError(t, err)
	return p
}

func TestNew_InvalidCacheCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Capacity = -1
	p, err := New(cfg, afero.NewMemMapFs(), nil, nil, nil, nil)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "pipeline: staging cache")
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestRun_EndToEnd(t *testing.T) {
	fs := mirrorFS(t)
	cfg := testConfig()
	runs := newRuns(t)
	client := remote.NewClient(remote.NewDirService(fs, cfg.Paths.MirrorDir), runs, remote.Options{})
	p := newPipeline(t, cfg, fs, runs, client).WithClock(fixedNow)
	ctx := context.Background()

	res, err := p.Run(ctx, testSource)
	require.NoError(t, err)

	require.Len(t, res.Phases, 7)
	names := make([]string, len(res.Phases))
	for i, ph := range res.Phases {
		assert.Equal(t, PhaseComplete, ph.Status, ph.Name)
		names[i] = ph.Name
	}
	assert.Equal(t, []string{
		"1_ingest", "2_validate", "3_resolve", "4_opening_balance",
		"5_products", "6_reconcile", "7_outputs",
	}, names)
	assert.Len(t, res.Staged, 4)
	assert.Len(t, res.Accepted, 3)
	require.Len(t, res.Quarantined, 1)
	q := res.Quarantined[0]
	assert.Equal(t, "data/01-staging/ie/2024_4_purchase-detail.csv", q.File)
	assert.Equal(t, validate.ReasonMissing, q.Violation.Reason)
	exists, err := afero.Exists(fs, q.Destination)
	require.NoError(t, err)
	assert.True(t, exists, "quarantined file moved whole")
	exists, err = afero.Exists(fs, "data/02-validated/ie/2024_3_inventory-snapshot.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, 1, res.Stats.Split)
	assert.Equal(t, 1, res.Stats.NewCodes)

	assert.False(t, res.Opening.Skipped)
	assert.True(t, res.Opening.Passed())
	assert.Equal(t, 1, res.Opening.Synthetic.Records)
	assert.Equal(t, 4, res.Products, "A1 B1 X1 X1-01")
	require.Len(t, res.Checks, 2)

	assert.Equal(t, 3, res.Summary.FilesAccepted)
	assert.Equal(t, 1, res.Summary.FilesQuarantined)
	assert.Equal(t, 1, res.Summary.OpeningRecords)
	assert.Equal(t, 1, res.Summary.CodesSplit)
	assert.Equal(t, 7, res.Summary.Records)

	out := "data/03-output/ie"
	for _, name := range []string{
		FileMapping, FileMappingChanges, FileDecisions, FileCatalog,
		FileOpeningBalance, FileOpeningReport, FileProducts,
		FileDiscrepancies, FileChecks, FileRunSummary,
		FilePurchasesCleaned, FileSalesCleaned, FileInventoryCleaned, FileLineage,
		"purchases_vs_inventory_in.csv", "sales_vs_inventory_out.csv",
	} {
		exists, err := afero.Exists(fs, filepath.Join(out, name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}

	sales, err := afero.ReadFile(fs, filepath.Join(out, FileSalesCleaned))
	require.NoError(t, err)
	assert.Contains(t, string(sales), "X1-01", "sale under a second name gets a suffixed code")

	opening, err := afero.ReadFile(fs, filepath.Join(out, FileOpeningBalance))
	require.NoError(t, err)
	assert.Contains(t, string(opening), "PN-OB-20240229-0001")

	assert.Equal(t, 7, res.Lineage.Accepted)
	assert.Equal(t, 1, res.Lineage.Rejected)
	assert.GreaterOrEqual(t, res.Lineage.Changed, 1)
	entries, err := fetcher.ReadRecords[lineage.Entry](fs, filepath.Join(out, FileLineage))
	require.NoError(t, err)
	var split, rejected *lineage.Entry
	for i, e := range entries {
		switch {
		case e.Operation == lineage.OpResolve && strings.Contains(e.Detail, "X1-01"):
			split = &entries[i]
		case e.Rejected():
			rejected = &entries[i]
		}
	}
	require.NotNil(t, split, "code split is traced")
	assert.Equal(t, "data/01-staging/ie/2024_3_sale-detail.csv", split.SourceFile)
	assert.Equal(t, 1, split.SourceRow)
	assert.Equal(t, lineage.Row(1), split.OutputRow)
	require.NotNil(t, rejected)
	assert.Equal(t, q.File, rejected.SourceFile)
	assert.Equal(t, "rejected: "+validate.ReasonMissing, rejected.Status)

	raw, err := afero.ReadFile(fs, filepath.Join(out, FileRunSummary))
	require.NoError(t, err)
	var summary Result
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, res.RunID, summary.RunID)

	run, err := runs.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 4, run.Summary.Products)
}

func TestRun_SecondPassReusesStagedFiles(t *testing.T) {
	fs := mirrorFS(t)
	cfg := testConfig()
	client := remote.NewClient(remote.NewDirService(fs, cfg.Paths.MirrorDir), nil, remote.Options{})
	_, err := newPipeline(t, cfg, fs, nil, client).Run(context.Background(), testSource)
	require.NoError(t, err)

	p := newPipeline(t, cfg, fs, nil, nil)
	res, err := p.Run(context.Background(), testSource)
	require.NoError(t, err)
	assert.Empty(t, res.Staged)
	assert.Len(t, res.Accepted, 3)
	assert.Empty(t, res.Quarantined, "rejected file already moved out of staging")
	assert.Equal(t, 1, res.Stats.Split, "mapping is rebuilt from the staged data")
}

func TestRun_NoFilesFailsRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	runs := newRuns(t)
	p := newPipeline(t, testConfig(), fs, runs, nil)

	res, err := p.Run(context.Background(), testSource)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no accepted files")
	require.Len(t, res.Phases, 2)
	assert.Equal(t, PhaseComplete, res.Phases[0].Status)
	assert.Equal(t, PhaseFailed, res.Phases[1].Status)

	run, err := runs.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "no accepted files")
}

func TestRun_UnknownSource(t *testing.T) {
	p := newPipeline(t, testConfig(), afero.NewMemMapFs(), nil, nil)
	_, err := p.Run(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source "nope"`)
}
