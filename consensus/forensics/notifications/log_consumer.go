package notifications

import (
	"github.com/rs/zerolog"

	"github.com/onflow/hotstuff-forensics/consensus/forensics"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// LogConsumer is an implementation of the notifications consumer that logs a
// message for each event.
type LogConsumer struct {
	log zerolog.Logger
}

var _ forensics.Consumer = (*LogConsumer)(nil)

func NewLogConsumer(log zerolog.Logger) *LogConsumer {
	lc := &LogConsumer{
		log: log,
	}
	return lc
}

func (lc *LogConsumer) OnConflictDetected(event *model.ConflictEvent) {
	entry := lc.log.Error().
		Str("session_id", event.SessionID.String()).
		Str("kind", event.Kind.String()).
		Uint64("round", event.Round).
		Strs("culprits", event.Culprits.Strings()).
		Str("first_id", string(event.First.ProposedID)).
		Str("second_id", string(event.Second.ProposedID))

	if event.Kind == model.AcrossView {
		entry.
			Uint64("commit1", event.LowerRound).
			Uint64("prepare", event.PrepareRound).
			Uint64("commit2", event.UpperRound)
	}

	entry.Msg("conflict detected")
}

func (lc *LogConsumer) OnConflictingDuplicate(err model.ConflictingDuplicateError) {
	lc.log.Warn().
		Str("source", string(err.Rejected.Source)).
		Uint64("round", err.Rejected.Round).
		Str("stored_id", string(err.Stored.ProposedID)).
		Str("rejected_id", string(err.Rejected.ProposedID)).
		Msg("conflicting duplicate certificate")
}

func (lc *LogConsumer) OnEpochMismatch(err model.EpochMismatchError) {
	lc.log.Warn().
		Str("first", err.First.String()).
		Str("second", err.Second.String()).
		Msg("epoch mismatch")
}

func (lc *LogConsumer) OnAttributionEmpty(err model.AttributionEmptyError) {
	lc.log.Error().
		Str("kind", err.Kind.String()).
		Str("first", err.First.String()).
		Str("second", err.Second.String()).
		Msg("conflict without common signer")
}

func (lc *LogConsumer) OnAnalysisInconclusive(err model.InconsistentWindowError) {
	lc.log.Error().
		Uint64("commit1", err.Commit1).
		Uint64("prepare", err.Prepare).
		Msg("across-view analysis inconclusive")
}

func (lc *LogConsumer) OnRoundSummary(summary model.RoundSummary) {
	entry := lc.log.Debug().Uint64("round", summary.Round)
	for replica, label := range summary.Blocks {
		entry.Str(string(replica), label)
	}
	entry.Msg("round summary updated")
}
