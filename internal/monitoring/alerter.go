package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate   AlertType = "run_failure_rate"
	AlertDiscrepancies AlertType = "discrepancies"
	AlertQuarantine    AlertType = "quarantine"
)

// Alert severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// minFinished is the number of finished runs below which the failure rate
// is not judged.
const minFinished = 5

// Alert is one breached threshold, as posted to the webhook.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// rule inspects a snapshot and returns an alert when its threshold is
// breached.
type rule func(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool)

// rules are evaluated in order; each contributes at most one alert.
var rules = []rule{failureRate, latestDiscrepancies, quarantined}

// Alerter evaluates run-health snapshots and posts breached thresholds to
// a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter for cfg.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns one alert per breached threshold, stamped with the
// snapshot's collection time.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	at := snap.CollectedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var alerts []Alert
	for _, r := range rules {
		if alert, ok := r(a.cfg, snap); ok {
			alert.Timestamp = at
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

func failureRate(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	finished := snap.RunsComplete + snap.RunsFailed
	if finished < minFinished || snap.FailRate <= cfg.FailureRateThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertFailureRate,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("%d of %d finished runs failed in last %dh (%.1f%%, threshold %.1f%%)",
			snap.RunsFailed, finished, snap.LookbackHours,
			snap.FailRate*100, cfg.FailureRateThreshold*100),
		Details: map[string]any{
			"failure_rate": snap.FailRate,
			"threshold":    cfg.FailureRateThreshold,
			"failed":       snap.RunsFailed,
			"finished":     finished,
		},
	}, true
}

// latestDiscrepancies judges only the newest completed run.
func latestDiscrepancies(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	run := snap.LatestRun
	if cfg.DiscrepancyThreshold <= 0 || run == nil || run.Summary == nil {
		return Alert{}, false
	}
	n := run.Summary.Discrepancies
	if n <= cfg.DiscrepancyThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertDiscrepancies,
		Severity: SeverityMedium,
		Message:  fmt.Sprintf("Latest run %s flagged %d discrepancies (threshold %d)", run.ID, n, cfg.DiscrepancyThreshold),
		Details: map[string]any{
			"run_id":        run.ID,
			"discrepancies": n,
			"threshold":     cfg.DiscrepancyThreshold,
		},
	}, true
}

func quarantined(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if cfg.QuarantineThreshold <= 0 || snap.FilesQuarantined <= cfg.QuarantineThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertQuarantine,
		Severity: SeverityMedium,
		Message: fmt.Sprintf("%d staged file(s) quarantined in last %dh (threshold %d)",
			snap.FilesQuarantined, snap.LookbackHours, cfg.QuarantineThreshold),
		Details: map[string]any{
			"quarantined": snap.FilesQuarantined,
			"threshold":   cfg.QuarantineThreshold,
		},
	}, true
}

// SendAlerts posts each alert to the webhook and returns how many were
// accepted. Nothing is sent without a webhook URL.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook %s returned status %d", a.cfg.WebhookURL, resp.StatusCode)
	}
	return nil
}
