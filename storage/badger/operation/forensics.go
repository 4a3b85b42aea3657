package operation

import (
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"
)

// StoredRecord is the persisted form of a certificate record.
type StoredRecord struct {
	Epoch       uint64
	Round       uint64
	ProposedID  string
	ParentRound uint64
	ParentID    string
	CommitRound uint64
	CommitID    string
	Signatures  map[string][]byte
	Source      string
	IsNil       bool
}

// StoredConflictEvent is the persisted form of a conflict event.
type StoredConflictEvent struct {
	SessionID    string
	Kind         int
	Round        uint64
	LowerRound   uint64
	UpperRound   uint64
	PrepareRound uint64
	Culprits     []string
	First        StoredRecord
	Second       StoredRecord
	DetectedAt   time.Time
}

// StoredRoundSummary is the persisted form of a round summary.
type StoredRoundSummary struct {
	Round  uint64
	Blocks map[string]string
}

// InsertConflictEvent inserts the conflict event of a session.
// Returns storage.ErrAlreadyExists if the session already has an event.
func InsertConflictEvent(sessionID uuid.UUID, event *StoredConflictEvent) func(*badger.Txn) error {
	return insert(makePrefix(codeConflictEvent, sessionID), event)
}

// RetrieveConflictEvent retrieves the conflict event of a session.
// Returns storage.ErrNotFound if the session has no event.
func RetrieveConflictEvent(sessionID uuid.UUID, event *StoredConflictEvent) func(*badger.Txn) error {
	return retrieve(makePrefix(codeConflictEvent, sessionID), event)
}

// TraverseConflictEvents retrieves the conflict events of all sessions, in key order.
func TraverseConflictEvents(events *[]*StoredConflictEvent) func(*badger.Txn) error {
	prefix := makePrefix(codeConflictEvent)
	return scan(prefix, prefix, func(_ []byte, item *badger.Item) (bool, error) {
		var event StoredConflictEvent
		err := decodeItem(item, &event)
		if err != nil {
			return false, err
		}
		*events = append(*events, &event)
		return true, nil
	})
}

// UpsertRoundSummary writes the summary of a round, replacing an earlier summary of that round.
func UpsertRoundSummary(sessionID uuid.UUID, summary *StoredRoundSummary) func(*badger.Txn) error {
	return upsert(makePrefix(codeRoundSummary, sessionID, summary.Round), summary)
}

// RetrieveRoundSummary retrieves the summary of one round.
// Returns storage.ErrNotFound if the round has no summary.
func RetrieveRoundSummary(sessionID uuid.UUID, round uint64, summary *StoredRoundSummary) func(*badger.Txn) error {
	return retrieve(makePrefix(codeRoundSummary, sessionID, round), summary)
}

// LookupRoundSummaries retrieves the summaries of a session for rounds in [lo, hi], ascending by round.
func LookupRoundSummaries(sessionID uuid.UUID, lo, hi uint64, summaries *[]StoredRoundSummary) func(*badger.Txn) error {
	prefix := makePrefix(codeRoundSummary, sessionID)
	return scan(prefix, makePrefix(codeRoundSummary, sessionID, lo), func(key []byte, item *badger.Item) (bool, error) {
		if len(key) != len(prefix)+8 {
			return true, nil
		}
		if binary.BigEndian.Uint64(key[len(prefix):]) > hi {
			return false, nil
		}
		var summary StoredRoundSummary
		err := decodeItem(item, &summary)
		if err != nil {
			return false, err
		}
		*summaries = append(*summaries, summary)
		return true, nil
	})
}
