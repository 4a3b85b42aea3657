package module

import (
	"time"
)

// ForensicsMetrics encapsulates the metrics collectors of a forensic session.
type ForensicsMetrics interface {
	// RecordIngested counts records accepted by the certificate store, by reporting
	// replica and insert status (inserted, observed, duplicate_ignored).
	RecordIngested(source string, status string)

	// RecordRejected counts records that were dropped before or during insertion,
	// by reason (parse_error, below_quorum, conflicting_duplicate, other_epoch).
	RecordRejected(reason string)

	// DiagnosticRaised counts non-fatal inconsistencies found while detecting
	// (epoch_mismatch, attribution_empty, inconsistent_window).
	DiagnosticRaised(kind string)

	// ConflictDetected counts emitted conflict events by kind.
	ConflictDetected(kind string)

	// HighestRound reports the highest round observed by the session.
	HighestRound(round uint64)

	// DetectionDuration measures one evaluation of the detectors over a batch.
	DetectionDuration(duration time.Duration)

	// SessionDetected reports whether the session reached its terminal state.
	SessionDetected(detected bool)
}

// SourceMetrics encapsulates the metrics collectors of a record source.
type SourceMetrics interface {
	// SourceRequest measures one request of a record source against a replica.
	SourceRequest(endpoint string, duration time.Duration, err error)

	// SourceBlobsFetched counts raw certificates forwarded by a source.
	SourceBlobsFetched(endpoint string, count int)
}
