package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-reconcile/internal/config"
	"github.com/sells-group/catalog-reconcile/internal/model"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		RunsTotal:     100,
		RunsComplete:  95,
		RunsFailed:    5,
		FailRate:      0.05,
		LookbackHours: 24,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		RunsTotal:     20,
		RunsComplete:  12,
		RunsFailed:    8,
		FailRate:      0.4,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		RunsTotal:     3,
		RunsComplete:  1,
		RunsFailed:    2,
		FailRate:      0.666,
		LookbackHours: 24,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_Discrepancies(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{DiscrepancyThreshold: 10})

	snap := &MetricsSnapshot{
		LatestRun: &model.Run{ID: "run-1", Summary: &model.RunSummary{Discrepancies: 25}},
	}
	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDiscrepancies, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "run-1 flagged 25")

	snap.LatestRun.Summary.Discrepancies = 10
	assert.Empty(t, a.Evaluate(snap))

	disabled := NewAlerter(config.MonitoringConfig{})
	snap.LatestRun.Summary.Discrepancies = 1000
	assert.Empty(t, disabled.Evaluate(snap))
}

func TestAlerter_Evaluate_Quarantine(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{QuarantineThreshold: 2})

	alerts := a.Evaluate(&MetricsSnapshot{FilesQuarantined: 3, LookbackHours: 168})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertQuarantine, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "3 staged file(s) quarantined in last 168h")
}

func TestAlerter_Evaluate_AllBreachedInOrder(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.2,
		DiscrepancyThreshold: 1,
		QuarantineThreshold:  1,
	})
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	alerts := a.Evaluate(&MetricsSnapshot{
		RunsComplete:     3,
		RunsFailed:       3,
		FailRate:         0.5,
		FilesQuarantined: 4,
		LatestRun:        &model.Run{ID: "run-2", Summary: &model.RunSummary{Discrepancies: 2}},
		LookbackHours:    24,
		CollectedAt:      at,
	})
	require.Len(t, alerts, 3)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, AlertDiscrepancies, alerts[1].Type)
	assert.Equal(t, AlertQuarantine, alerts[2].Type)
	for _, alert := range alerts {
		assert.Equal(t, at, alert.Timestamp)
	}
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertQuarantine, Severity: "medium", Message: "test alert 2"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
