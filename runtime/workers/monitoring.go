package workers

import (
	"context"
	"log/slog"
	"time"

	"relay-lab/observability"
)

// MonitoringWorker periodically logs the relay's counters and process
// metrics. Pure observability: it never touches the registry and is not a
// liveness check (transport close detection is the only disconnect source).
type MonitoringWorker struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
}

func NewMonitoringWorker(log *slog.Logger, metrics *observability.Metrics,
	interval time.Duration) *MonitoringWorker {
	return &MonitoringWorker{log: log, metrics: metrics, interval: interval}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping monitoring")
			return nil
		case <-ticker.C:
			stats := w.metrics.GetLatest()
			w.log.Info("relay stats",
				"open_connections", stats.OpenConnections,
				"registered_users", stats.RegisteredUsers,
				"messages_relayed", stats.MessagesRelayed,
				"delivery_failed", stats.DeliveryFailed,
				"events_rejected", stats.EventsRejected,
				"alloc_mem_mb", stats.AllocMemMb,
				"cpu_percent", stats.CPUPercent,
			)
		}
	}
}
