package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NilBlockLabel is the round summary label of a QC certifying a nil block.
const NilBlockLabel = "NIL BLOCK"

// ConflictKind distinguishes the two classes of provable safety violations.
type ConflictKind int

const (
	// WithinView: two distinct proposals were certified in the same round.
	WithinView ConflictKind = iota + 1
	// AcrossView: a later QC contradicts the lock established by an earlier committed chain.
	AcrossView
)

func (k ConflictKind) String() string {
	switch k {
	case WithinView:
		return "within_view"
	case AcrossView:
		return "across_view"
	default:
		return "unknown"
	}
}

// Conflict is a pair of certificates proven to conflict by one of the detectors.
//
// For within-view conflicts, Round is the conflicting round. For across-view
// conflicts, Commit1 is the round of the locked certificate, Prepare the first
// round of the other branch committing past it, and Round = Commit2 = Prepare+2
// is the round at which the violation is pinned.
type Conflict struct {
	Kind    ConflictKind
	Round   uint64
	Commit1 uint64
	Prepare uint64
	Commit2 uint64
	First   *Record
	Second  *Record
}

func (c *Conflict) String() string {
	if c.Kind == AcrossView {
		return fmt.Sprintf("%s conflict pinned at round %d (commit1=%d, prepare=%d): %v vs %v",
			c.Kind, c.Round, c.Commit1, c.Prepare, c.First, c.Second)
	}
	return fmt.Sprintf("%s conflict at round %d: %v vs %v", c.Kind, c.Round, c.First, c.Second)
}

// ConflictEvent is the final, attributed result of a forensic session. At most
// one event is emitted per session and it is never modified afterwards.
type ConflictEvent struct {
	SessionID    uuid.UUID
	Kind         ConflictKind
	Round        uint64
	LowerRound   uint64
	UpperRound   uint64
	PrepareRound uint64
	Culprits     SignerSet
	First        *Record
	Second       *Record
	DetectedAt   time.Time
}

// NewConflictEvent attributes the given conflict to its culprits.
func NewConflictEvent(sessionID uuid.UUID, conflict *Conflict, culprits SignerSet, detectedAt time.Time) *ConflictEvent {
	event := &ConflictEvent{
		SessionID:  sessionID,
		Kind:       conflict.Kind,
		Round:      conflict.Round,
		LowerRound: conflict.Round,
		UpperRound: conflict.Round,
		Culprits:   culprits,
		First:      conflict.First.Copy(),
		Second:     conflict.Second.Copy(),
		DetectedAt: detectedAt,
	}
	if conflict.Kind == AcrossView {
		event.LowerRound = conflict.Commit1
		event.UpperRound = conflict.Commit2
		event.PrepareRound = conflict.Prepare
	}
	return event
}

// RoundSummary lists, for one round, the block each monitored replica reported a
// QC for. Replicas without a known QC for the round are absent from Blocks.
type RoundSummary struct {
	Round  uint64
	Blocks map[ReplicaID]string
}

// Label returns the block label the replica reported for the round, or "null".
func (s RoundSummary) Label(replica ReplicaID) string {
	label, ok := s.Blocks[replica]
	if !ok {
		return "null"
	}
	return label
}
