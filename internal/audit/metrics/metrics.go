package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the change-capture engine.
type Metrics struct {
	RecordsWritten     *prometheus.CounterVec
	UpdatesSkipped     prometheus.Counter
	WriteFailures      prometheus.Counter
	PublishFailures    prometheus.Counter
	CacheEvictions     prometheus.Counter
	CacheEntries       prometheus.Gauge
	ListenerRecoveries prometheus.Counter
}

// New creates a new Metrics instance with audit engine metrics registered.
func New() *Metrics {
	return &Metrics{
		RecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "retailcore_audit_records_written_total",
			Help: "Total number of audit records written, by action",
		}, []string{"action"}),
		UpdatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "retailcore_audit_updates_skipped_total",
			Help: "Total number of update audits skipped because no original snapshot was cached",
		}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "retailcore_audit_write_failures_total",
			Help: "Total number of audit store write failures (swallowed, logged)",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "retailcore_audit_publish_failures_total",
			Help: "Total number of Kafka fan-out failures for committed audit records",
		}),
		CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "retailcore_audit_cache_evictions_total",
			Help: "Total number of original-state snapshots evicted by the TTL sweeper",
		}),
		CacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "retailcore_audit_cache_entries",
			Help: "Current number of snapshots held by the original-state cache",
		}),
		ListenerRecoveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "retailcore_audit_listener_recoveries_total",
			Help: "Total number of panics recovered inside lifecycle reactions",
		}),
	}
}

// IncRecordsWritten increments the written counter for an action.
func (m *Metrics) IncRecordsWritten(action string) {
	m.RecordsWritten.WithLabelValues(action).Inc()
}

// IncUpdatesSkipped increments the skipped-update counter.
func (m *Metrics) IncUpdatesSkipped() {
	m.UpdatesSkipped.Inc()
}

// IncWriteFailures increments the write failure counter.
func (m *Metrics) IncWriteFailures() {
	m.WriteFailures.Inc()
}

// IncPublishFailures increments the Kafka publish failure counter.
func (m *Metrics) IncPublishFailures() {
	m.PublishFailures.Inc()
}

// IncCacheEvictions adds n to the eviction counter.
func (m *Metrics) IncCacheEvictions(n int) {
	m.CacheEvictions.Add(float64(n))
}

// SetCacheEntries sets the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}

// IncListenerRecoveries increments the recovered-panic counter.
func (m *Metrics) IncListenerRecoveries() {
	m.ListenerRecoveries.Inc()
}
