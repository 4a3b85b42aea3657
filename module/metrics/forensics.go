package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onflow/hotstuff-forensics/module"
)

// ForensicsCollector implements module.ForensicsMetrics with prometheus collectors.
type ForensicsCollector struct {
	recordsIngested   *prometheus.CounterVec
	recordsRejected   *prometheus.CounterVec
	diagnostics       *prometheus.CounterVec
	conflicts         *prometheus.CounterVec
	highestRound      prometheus.Gauge
	detectionDuration prometheus.Histogram
	detected          prometheus.Gauge
}

var _ module.ForensicsMetrics = (*ForensicsCollector)(nil)

// NewForensicsCollector creates the session collectors and registers them with the given registerer.
func NewForensicsCollector(registerer prometheus.Registerer) *ForensicsCollector {
	factory := promauto.With(registerer)

	fc := &ForensicsCollector{
		recordsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "records_ingested_total",
			Namespace: namespaceForensics,
			Subsystem: subsystemStore,
			Help:      "number of certificate records accepted by the certificate store",
		}, []string{LabelSource, LabelStatus}),

		recordsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "records_rejected_total",
			Namespace: namespaceForensics,
			Subsystem: subsystemStore,
			Help:      "number of certificate records dropped, by reason",
		}, []string{LabelReason}),

		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "diagnostics_total",
			Namespace: namespaceForensics,
			Subsystem: subsystemSession,
			Help:      "number of non-fatal inconsistencies found while detecting",
		}, []string{LabelKind}),

		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "conflicts_detected_total",
			Namespace: namespaceForensics,
			Subsystem: subsystemSession,
			Help:      "number of emitted conflict events",
		}, []string{LabelKind}),

		highestRound: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "highest_round",
			Namespace: namespaceForensics,
			Subsystem: subsystemStore,
			Help:      "highest round of any stored certificate",
		}),

		detectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:      "detection_duration_seconds",
			Namespace: namespaceForensics,
			Subsystem: subsystemSession,
			Help:      "duration of one detector evaluation over a batch",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),

		detected: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "detected",
			Namespace: namespaceForensics,
			Subsystem: subsystemSession,
			Help:      "1 once the session proved a safety violation, 0 otherwise",
		}),
	}

	return fc
}

func (fc *ForensicsCollector) RecordIngested(source string, status string) {
	fc.recordsIngested.WithLabelValues(source, status).Inc()
}

func (fc *ForensicsCollector) RecordRejected(reason string) {
	fc.recordsRejected.WithLabelValues(reason).Inc()
}

func (fc *ForensicsCollector) DiagnosticRaised(kind string) {
	fc.diagnostics.WithLabelValues(kind).Inc()
}

func (fc *ForensicsCollector) ConflictDetected(kind string) {
	fc.conflicts.WithLabelValues(kind).Inc()
}

func (fc *ForensicsCollector) HighestRound(round uint64) {
	fc.highestRound.Set(float64(round))
}

func (fc *ForensicsCollector) DetectionDuration(duration time.Duration) {
	fc.detectionDuration.Observe(duration.Seconds())
}

func (fc *ForensicsCollector) SessionDetected(detected bool) {
	if detected {
		fc.detected.Set(1)
		return
	}
	fc.detected.Set(0)
}
