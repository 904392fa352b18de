// Package monitoring watches run history and raises alerts when runs fail
// too often or start producing too many discrepancies.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/store"
)

// maxRuns bounds how many recent runs one snapshot reads.
const maxRuns = 1000

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`

	// Totals over completed runs in the window.
	FilesQuarantined int `json:"files_quarantined"`
	Discrepancies    int `json:"discrepancies"`

	// LatestRun is the newest completed run in the window.
	LatestRun *model.Run `json:"latest_run,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from run history.
type Collector struct {
	runs store.Runs
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs store.Runs) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// WithClock replaces the clock used for the lookback cutoff.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Collect gathers a snapshot of runs started within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: maxRuns})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	// Runs are newest first.
	for i := range runs {
		r := runs[i]
		if lookbackHours > 0 && r.StartedAt.Before(cutoff) {
			break
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			if snap.LatestRun == nil {
				snap.LatestRun = &runs[i]
			}
			if r.Summary != nil {
				snap.FilesQuarantined += r.Summary.FilesQuarantined
				snap.Discrepancies += r.Summary.Discrepancies
			}
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	return snap, nil
}
