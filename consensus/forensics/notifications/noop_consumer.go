package notifications

import (
	"github.com/onflow/hotstuff-forensics/consensus/forensics"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// NoopConsumer is an implementation of the notifications consumer that
// doesn't do anything.
type NoopConsumer struct {
	NoopConflictConsumer
	NoopDiagnosticsConsumer
	NoopRoundConsumer
}

var _ forensics.Consumer = (*NoopConsumer)(nil)

func NewNoopConsumer() *NoopConsumer {
	nc := &NoopConsumer{}
	return nc
}

// no-op implementation of forensics.ConflictConsumer

type NoopConflictConsumer struct{}

var _ forensics.ConflictConsumer = (*NoopConflictConsumer)(nil)

func (*NoopConflictConsumer) OnConflictDetected(*model.ConflictEvent) {}

// no-op implementation of forensics.DiagnosticsConsumer

type NoopDiagnosticsConsumer struct{}

var _ forensics.DiagnosticsConsumer = (*NoopDiagnosticsConsumer)(nil)

func (*NoopDiagnosticsConsumer) OnConflictingDuplicate(model.ConflictingDuplicateError) {}

func (*NoopDiagnosticsConsumer) OnEpochMismatch(model.EpochMismatchError) {}

func (*NoopDiagnosticsConsumer) OnAttributionEmpty(model.AttributionEmptyError) {}

func (*NoopDiagnosticsConsumer) OnAnalysisInconclusive(model.InconsistentWindowError) {}

// no-op implementation of forensics.RoundConsumer

type NoopRoundConsumer struct{}

var _ forensics.RoundConsumer = (*NoopRoundConsumer)(nil)

func (*NoopRoundConsumer) OnRoundSummary(model.RoundSummary) {}
