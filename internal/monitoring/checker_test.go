package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-reconcile/internal/config"
	"github.com/sells-group/catalog-reconcile/internal/model"
)

func TestChecker_Check(t *testing.T) {
	clk := &clock{t: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}
	st := newStore(t, clk)
	seed(t, st, clk, model.RunStatusComplete, &model.RunSummary{Discrepancies: 12, FilesQuarantined: 1})

	cfg := config.MonitoringConfig{LookbackWindowHours: 24, DiscrepancyThreshold: 10}
	checker := NewChecker(NewCollector(st).WithClock(clk.Now), NewAlerter(cfg), cfg)

	report, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Snapshot.RunsComplete)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, AlertDiscrepancies, report.Alerts[0].Type)
	assert.Zero(t, report.Sent, "no webhook configured")
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	clk := &clock{t: time.Now()}
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(newStore(t, clk)), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	clk := &clock{t: time.Now()}
	checker := NewChecker(NewCollector(newStore(t, clk)), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	assert.NotNil(t, checker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}
