package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/config"
)

// Report is the outcome of one check.
type Report struct {
	Snapshot *MetricsSnapshot `json:"snapshot"`
	Alerts   []Alert          `json:"alerts"`
	Sent     int              `json:"sent"`
}

// Checker runs alert checks once or periodically.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates an alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Check collects one snapshot, evaluates it and sends any alerts. Alerts
// are logged whether or not a webhook is configured.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		return nil, err
	}
	alerts := c.alerter.Evaluate(snap)
	for _, a := range alerts {
		zap.L().Warn("monitoring: alert triggered",
			zap.String("type", string(a.Type)),
			zap.String("severity", a.Severity),
			zap.String("message", a.Message),
		)
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	return &Report{Snapshot: snap, Alerts: alerts, Sent: c.alerter.SendAlerts(ctx, alerts)}, nil
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			report, err := c.Check(ctx)
			if err != nil {
				log.Error("monitoring: failed to collect metrics", zap.Error(err))
				continue
			}
			log.Info("monitoring: alert check complete",
				zap.Int("alerts_triggered", len(report.Alerts)),
				zap.Int("alerts_sent", report.Sent),
			)
		}
	}
}
