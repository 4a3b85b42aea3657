package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onflow/hotstuff-forensics/module"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// SourceCollector implements module.SourceMetrics.
type SourceCollector struct {
	requestDuration *prometheus.HistogramVec
	blobsFetched    *prometheus.CounterVec
}

var _ module.SourceMetrics = (*SourceCollector)(nil)

func NewSourceCollector(registerer prometheus.Registerer) *SourceCollector {
	sc := &SourceCollector{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "request_duration_seconds",
			Namespace: namespaceForensics,
			Subsystem: subsystemSource,
			Help:      "duration of requests against replica endpoints",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelEndpoint, LabelResult}),

		blobsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "blobs_fetched_total",
			Namespace: namespaceForensics,
			Subsystem: subsystemSource,
			Help:      "number of raw certificates forwarded to the session",
		}, []string{LabelEndpoint}),
	}
	registerAllFields(sc, registerer)
	return sc
}

func (sc *SourceCollector) SourceRequest(endpoint string, duration time.Duration, err error) {
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	sc.requestDuration.WithLabelValues(endpoint, result).Observe(duration.Seconds())
}

func (sc *SourceCollector) SourceBlobsFetched(endpoint string, count int) {
	sc.blobsFetched.WithLabelValues(endpoint).Add(float64(count))
}
