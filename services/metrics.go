package services

import (
	"context"
	"time"

	"github.com/coshare/coshare-backend/internal/store"
	"github.com/coshare/coshare-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AnalyticsMetrics holds the Prometheus collectors for the analytics endpoints.
type AnalyticsMetrics struct {
	requests         *prometheus.CounterVec
	advisoryFailures *prometheus.CounterVec
	engineDuration   *prometheus.HistogramVec
	snapshotWrites   *prometheus.CounterVec
}

// NewAnalyticsMetrics registers the analytics collectors with reg. Tests pass a
// fresh prometheus.NewRegistry() so collectors never collide.
func NewAnalyticsMetrics(reg prometheus.Registerer) *AnalyticsMetrics {
	factory := promauto.With(reg)
	return &AnalyticsMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coshare_analytics_requests_total",
			Help: "Total number of analytics results served, by capability and source",
		}, []string{"capability", "source"}),
		advisoryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coshare_advisory_failures_total",
			Help: "Total number of advisory calls that failed or returned nothing usable",
		}, []string{"capability"}),
		engineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coshare_analytics_engine_duration_seconds",
			Help:    "Time taken by the deterministic engine to compute a result",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"capability"}),
		snapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coshare_fairness_snapshot_writes_total",
			Help: "Fairness trend snapshot upserts by result",
		}, []string{"result"}),
	}
}

func (m *AnalyticsMetrics) observeRequest(capability string, source types.OutcomeSource) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(capability, string(source)).Inc()
}

func (m *AnalyticsMetrics) observeAdvisoryFailure(capability string) {
	if m == nil {
		return
	}
	m.advisoryFailures.WithLabelValues(capability).Inc()
}

func (m *AnalyticsMetrics) observeEngine(capability string, started time.Time) {
	if m == nil {
		return
	}
	m.engineDuration.WithLabelValues(capability).Observe(time.Since(started).Seconds())
}

// Snapshot write results.
const (
	snapshotWritten   = "written"
	snapshotUnchanged = "unchanged"
	snapshotError     = "error"
)

// instrumentedSnapshots counts upsert outcomes on the way to the real store.
type instrumentedSnapshots struct {
	next    store.TrendSnapshotStore
	metrics *AnalyticsMetrics
}

// InstrumentSnapshots wraps a snapshot store so every upsert is counted.
func InstrumentSnapshots(next store.TrendSnapshotStore, metrics *AnalyticsMetrics) store.TrendSnapshotStore {
	if next == nil || metrics == nil {
		return next
	}
	return &instrumentedSnapshots{next: next, metrics: metrics}
}

func (s *instrumentedSnapshots) FindSnapshot(ctx context.Context, groupID string, periodStart, periodEnd time.Time) (*types.FairnessSnapshot, error) {
	return s.next.FindSnapshot(ctx, groupID, periodStart, periodEnd)
}

func (s *instrumentedSnapshots) UpsertSnapshot(ctx context.Context, groupID string, periodStart, periodEnd time.Time, score float64) (bool, error) {
	written, err := s.next.UpsertSnapshot(ctx, groupID, periodStart, periodEnd, score)
	switch {
	case err != nil:
		s.metrics.snapshotWrites.WithLabelValues(snapshotError).Inc()
	case written:
		s.metrics.snapshotWrites.WithLabelValues(snapshotWritten).Inc()
	default:
		s.metrics.snapshotWrites.WithLabelValues(snapshotUnchanged).Inc()
	}
	return written, err
}
