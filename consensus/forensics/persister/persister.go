package persister

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onflow/hotstuff-forensics/consensus/forensics"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/module/irrecoverable"
	"github.com/onflow/hotstuff-forensics/storage"
)

// Persister writes the conflict event and the round summaries of one session
// to storage. Write failures are thrown to the signaler context: losing the
// evidence of a detected violation is not recoverable.
type Persister struct {
	log       zerolog.Logger
	ctx       irrecoverable.SignalerContext
	sessionID uuid.UUID
	events    storage.ConflictEvents
	summaries storage.RoundSummaries
}

var _ forensics.ConflictConsumer = (*Persister)(nil)
var _ forensics.RoundConsumer = (*Persister)(nil)

func New(
	log zerolog.Logger,
	ctx irrecoverable.SignalerContext,
	sessionID uuid.UUID,
	events storage.ConflictEvents,
	summaries storage.RoundSummaries,
) *Persister {
	return &Persister{
		log:       log.With().Str("component", "forensic_persister").Logger(),
		ctx:       ctx,
		sessionID: sessionID,
		events:    events,
		summaries: summaries,
	}
}

func (p *Persister) OnConflictDetected(event *model.ConflictEvent) {
	err := p.events.Store(event)
	if err != nil {
		p.ctx.Throw(irrecoverable.NewExceptionf("could not persist conflict event of session %v: %w", event.SessionID, err))
		return
	}
	p.log.Info().
		Str("session_id", event.SessionID.String()).
		Str("kind", event.Kind.String()).
		Msg("conflict event persisted")
}

func (p *Persister) OnRoundSummary(summary model.RoundSummary) {
	err := p.summaries.Store(p.sessionID, summary)
	if err != nil {
		p.ctx.Throw(irrecoverable.NewExceptionf("could not persist summary of round %d: %w", summary.Round, err))
	}
}
