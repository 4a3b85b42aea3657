package storage

import (
	"github.com/google/uuid"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// ConflictEvents persists the conflict events of forensic sessions.
type ConflictEvents interface {
	// Store persists the event. Each session emits at most one event.
	// Expected errors during normal operations:
	//   - storage.ErrAlreadyExists if an event for the session was already stored
	Store(event *model.ConflictEvent) error

	// ByID returns the event of the given session.
	// Expected errors during normal operations:
	//   - storage.ErrNotFound if the session has no stored event
	ByID(sessionID uuid.UUID) (*model.ConflictEvent, error)

	// All returns every stored event, ordered by detection time.
	All() ([]*model.ConflictEvent, error)
}

// RoundSummaries persists the rolling per-round summaries of forensic sessions.
type RoundSummaries interface {
	// Store persists the summary, replacing an earlier summary of the same round.
	Store(sessionID uuid.UUID, summary model.RoundSummary) error

	// ByRange returns the summaries of the session for rounds in [lo, hi], ascending by round.
	ByRange(sessionID uuid.UUID, lo, hi uint64) ([]model.RoundSummary, error)
}
