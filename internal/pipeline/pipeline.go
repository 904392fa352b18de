// Package pipeline runs one reconciliation pass over a source: ingest,
// validation, name resolution, opening balance, FIFO costing and the
// cross-source checks.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/cache"
	"github.com/sells-group/catalog-reconcile/internal/canon"
	"github.com/sells-group/catalog-reconcile/internal/config"
	"github.com/sells-group/catalog-reconcile/internal/disambig"
	"github.com/sells-group/catalog-reconcile/internal/fifo"
	"github.com/sells-group/catalog-reconcile/internal/lineage"
	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/reconcile"
	"github.com/sells-group/catalog-reconcile/internal/remote"
	"github.com/sells-group/catalog-reconcile/internal/store"
)

// Phase statuses.
const (
	PhaseComplete = "complete"
	PhaseFailed   = "failed"
)

// PhaseResult records one pipeline phase.
type PhaseResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Result is everything one run produced.
type Result struct {
	RunID         string                       `json:"run_id,omitempty"`
	Source        string                       `json:"source"`
	Phases        []PhaseResult                `json:"phases"`
	Staged        []string                     `json:"staged"`
	Accepted      []string                     `json:"accepted"`
	Quarantined   []Rejected                   `json:"quarantined"`
	Stats         disambig.Stats               `json:"mapping"`
	Opening       fifo.Report                  `json:"opening_balance"`
	Products      int                          `json:"products"`
	Checks        []model.ReconciliationResult `json:"checks"`
	Discrepancies []reconcile.Discrepancy      `json:"discrepancies"`
	Lineage       lineage.Summary              `json:"lineage"`
	Cache         cache.Stats                  `json:"cache"`
	Summary       model.RunSummary             `json:"summary"`
}

// Pipeline wires the stage packages to the filesystem, the remote
// service and run history.
type Pipeline struct {
	cfg    *config.Config
	fs     afero.Fs
	runs   store.Runs
	remote *remote.Client
	cache  *cache.Staging
	canon  *canon.Canonicalizer
	now    func() time.Time
}

// New creates a Pipeline. runs and client may be nil: without runs nothing
// is recorded, and without a client the ingest phase only uses files
// already staged. A nil staging cache is built from cfg.Cache.
func New(cfg *config.Config, fs afero.Fs, runs store.Runs, client *remote.Client, staging *cache.Staging, c *canon.Canonicalizer) (*Pipeline, error) {
	if staging == nil {
		var err error
		if staging, err = cache.New(fs, cfg.Cache.Capacity, time.Now); err != nil {
			return nil, eris.Wrap(err, "pipeline: staging cache")
		}
	}
	if c == nil {
		c = canon.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		fs:     fs,
		runs:   runs,
		remote: client,
		cache:  staging,
		canon:  c,
		now:    time.Now,
	}, nil
}

// WithClock replaces the clock used for report timestamps.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Cache exposes the staging cache for inspection.
func (p *Pipeline) Cache() *cache.Staging { return p.cache }

// dirs are the per-source working directories.
type dirs struct {
	staging, validated, rejected, output string
}

func (p *Pipeline) dirsFor(src config.SourceConfig) dirs {
	sub := src.OutputSubdir
	return dirs{
		staging:   filepath.Join(p.cfg.Paths.StagingDir, sub),
		validated: filepath.Join(p.cfg.Paths.ValidatedDir, sub),
		rejected:  filepath.Join(p.cfg.Paths.RejectedDir, sub),
		output:    filepath.Join(p.cfg.Paths.OutputDir, sub),
	}
}

// Run executes every phase for the named source. A failed phase stops the
// run; the run record is marked failed with its error.
func (p *Pipeline) Run(ctx context.Context, sourceName string) (*Result, error) {
	src, err := p.cfg.Source(sourceName)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("source", sourceName))
	log.Info("pipeline: starting run")

	result := &Result{Source: sourceName, Checks: []model.ReconciliationResult{}}

	if p.runs != nil {
		run, err := p.runs.CreateRun(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		result.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	trackPhase := func(name string, fn func() error) error {
		start := time.Now()
		fnErr := fn()
		pr := PhaseResult{Name: name, Status: PhaseComplete, DurationMs: time.Since(start).Milliseconds()}
		if fnErr != nil {
			pr.Status = PhaseFailed
			pr.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", pr.DurationMs),
				zap.Error(fnErr),
			)
		} else {
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", pr.DurationMs),
			)
		}
		result.Phases = append(result.Phases, pr)
		return fnErr
	}

	err = p.run(ctx, src, result, trackPhase)
	result.Cache = p.cache.Stats()

	if p.runs != nil {
		if err != nil {
			if failErr := p.runs.FailRun(ctx, result.RunID, err); failErr != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(failErr))
			}
		} else if doneErr := p.runs.CompleteRun(ctx, result.RunID, &result.Summary); doneErr != nil {
			log.Warn("pipeline: failed to record run completion", zap.Error(doneErr))
		}
	}
	if err != nil {
		return result, err
	}

	log.Info("pipeline: run complete",
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("quarantined", len(result.Quarantined)),
		zap.Int("products", result.Products),
		zap.Int("discrepancies", result.Summary.Discrepancies),
		zap.Float64("cache_hit_rate", result.Cache.HitRate()),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, src config.SourceConfig, result *Result, track func(string, func() error) error) error {
	d := p.dirsFor(src)

	if err := track("1_ingest", func() error {
		staged, err := p.Ingest(ctx, src)
		result.Staged = staged
		return err
	}); err != nil {
		return err
	}

	var ds *Datasets
	if err := track("2_validate", func() error {
		var err error
		ds, err = p.Validate(ctx, src)
		if err != nil {
			return err
		}
		result.Accepted = ds.Accepted
		result.Quarantined = ds.Quarantined
		return nil
	}); err != nil {
		return err
	}

	var res *Resolution
	if err := track("3_resolve", func() error {
		res = Resolve(ds, p.canon, p.cfg.Cluster.Threshold)
		result.Stats = res.Stats
		return p.writeMapping(d.output, res)
	}); err != nil {
		return err
	}

	var opening fifo.OpeningResult
	if err := track("4_opening_balance", func() error {
		var err error
		opening, err = p.OpeningBalance(res.Datasets, d.output)
		if err != nil {
			return err
		}
		result.Opening = opening.Report
		res.Datasets.Purchases = opening.Purchases
		return nil
	}); err != nil {
		return err
	}

	if err := track("5_products", func() error {
		products := fifo.Summarize(res.Datasets.Purchases, res.Datasets.Sales, res.Datasets.Inventory)
		result.Products = len(products)
		return p.writeProducts(d.output, products)
	}); err != nil {
		return err
	}

	if err := track("6_reconcile", func() error {
		checks, discrepancies, err := p.Reconcile(res.Datasets, d.output)
		result.Checks = checks
		result.Discrepancies = discrepancies
		return err
	}); err != nil {
		return err
	}

	if err := track("7_outputs", func() error {
		if res.Datasets.Lineage != nil {
			result.Lineage = res.Datasets.Lineage.Summary()
		}
		result.Summary = summarize(result, res, opening)
		return p.writeOutputs(d.output, res.Datasets, result)
	}); err != nil {
		return err
	}
	return nil
}

func summarize(r *Result, res *Resolution, opening fifo.OpeningResult) model.RunSummary {
	s := model.RunSummary{
		FilesAccepted:    len(r.Accepted),
		FilesQuarantined: len(r.Quarantined),
		Records:          res.Records,
		CodesNormalized:  r.Stats.Normalized,
		CodesSplit:       r.Stats.Split,
		OpeningRecords:   len(opening.Records),
		Products:         r.Products,
		Discrepancies:    len(r.Discrepancies),
	}
	for _, c := range r.Checks {
		s.Discrepancies += len(c.AffectedKeys)
	}
	return s
}
