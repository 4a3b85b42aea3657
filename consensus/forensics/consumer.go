package forensics

import (
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// ConflictConsumer consumes the outcome of a forensic session.
// Implementations must be concurrency safe and non-blocking.
type ConflictConsumer interface {
	// OnConflictDetected is called exactly once per session, when a safety
	// violation has been proven and attributed.
	OnConflictDetected(event *model.ConflictEvent)
}

// DiagnosticsConsumer consumes notifications about input that is invalid or
// inconsistent but does not by itself prove a safety violation.
// Implementations must be concurrency safe and non-blocking.
type DiagnosticsConsumer interface {
	// OnConflictingDuplicate is called when a record disagrees with an already
	// stored record for the same slot or logical certificate.
	OnConflictingDuplicate(err model.ConflictingDuplicateError)

	// OnEpochMismatch is called when a detector had to abort a comparison of
	// certificates from different epochs.
	OnEpochMismatch(err model.EpochMismatchError)

	// OnAttributionEmpty is called when a detected conflict has no common signer.
	// The conflict event is not emitted.
	OnAttributionEmpty(err model.AttributionEmptyError)

	// OnAnalysisInconclusive is called when across-view detection gives up
	// because the located window holds no violating certificate.
	OnAnalysisInconclusive(err model.InconsistentWindowError)
}

// RoundConsumer consumes the rolling per-round summaries of a session.
// Implementations must be concurrency safe and non-blocking.
type RoundConsumer interface {
	// OnRoundSummary is called whenever the summary of a round in the rolling
	// window changes.
	OnRoundSummary(summary model.RoundSummary)
}

// Consumer consumes all notifications produced by a forensic session.
type Consumer interface {
	ConflictConsumer
	DiagnosticsConsumer
	RoundConsumer
}
