package metrics

import (
	"time"

	"github.com/onflow/hotstuff-forensics/module"
)

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

var _ module.ForensicsMetrics = (*NoopCollector)(nil)
var _ module.SourceMetrics = (*NoopCollector)(nil)

func (nc *NoopCollector) RecordIngested(source string, status string)                     {}
func (nc *NoopCollector) RecordRejected(reason string)                                    {}
func (nc *NoopCollector) DiagnosticRaised(kind string)                                    {}
func (nc *NoopCollector) ConflictDetected(kind string)                                    {}
func (nc *NoopCollector) HighestRound(round uint64)                                       {}
func (nc *NoopCollector) DetectionDuration(duration time.Duration)                        {}
func (nc *NoopCollector) SessionDetected(detected bool)                                   {}
func (nc *NoopCollector) SourceRequest(endpoint string, duration time.Duration, err error) {}
func (nc *NoopCollector) SourceBlobsFetched(endpoint string, count int)                   {}
