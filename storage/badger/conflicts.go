package badger

import (
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/storage"
	"github.com/onflow/hotstuff-forensics/storage/badger/operation"
)

// ConflictEvents implements storage.ConflictEvents on badger.
type ConflictEvents struct {
	db    *badger.DB
	cache *Cache[uuid.UUID, *model.ConflictEvent]
}

var _ storage.ConflictEvents = (*ConflictEvents)(nil)

func NewConflictEvents(db *badger.DB) *ConflictEvents {

	store := func(sessionID uuid.UUID, event *model.ConflictEvent) error {
		return db.Update(operation.InsertConflictEvent(sessionID, toStoredEvent(event)))
	}

	retrieve := func(sessionID uuid.UUID) (*model.ConflictEvent, error) {
		var stored operation.StoredConflictEvent
		err := db.View(operation.RetrieveConflictEvent(sessionID, &stored))
		if err != nil {
			return nil, err
		}
		return fromStoredEvent(&stored)
	}

	c := &ConflictEvents{
		db: db,
		cache: newCache(
			withLimit[uuid.UUID, *model.ConflictEvent](100),
			withStore(store),
			withRetrieve(retrieve),
		),
	}

	return c
}

func (c *ConflictEvents) Store(event *model.ConflictEvent) error {
	return c.cache.Put(event.SessionID, event)
}

func (c *ConflictEvents) ByID(sessionID uuid.UUID) (*model.ConflictEvent, error) {
	return c.cache.Get(sessionID)
}

func (c *ConflictEvents) All() ([]*model.ConflictEvent, error) {
	var stored []*operation.StoredConflictEvent
	err := c.db.View(operation.TraverseConflictEvents(&stored))
	if err != nil {
		return nil, fmt.Errorf("could not traverse conflict events: %w", err)
	}

	events := make([]*model.ConflictEvent, 0, len(stored))
	for _, s := range stored {
		event, err := fromStoredEvent(s)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DetectedAt.Before(events[j].DetectedAt)
	})
	return events, nil
}

func toStoredEvent(event *model.ConflictEvent) *operation.StoredConflictEvent {
	return &operation.StoredConflictEvent{
		SessionID:    event.SessionID.String(),
		Kind:         int(event.Kind),
		Round:        event.Round,
		LowerRound:   event.LowerRound,
		UpperRound:   event.UpperRound,
		PrepareRound: event.PrepareRound,
		Culprits:     event.Culprits.Strings(),
		First:        toStoredRecord(event.First),
		Second:       toStoredRecord(event.Second),
		DetectedAt:   event.DetectedAt,
	}
}

func fromStoredEvent(stored *operation.StoredConflictEvent) (*model.ConflictEvent, error) {
	sessionID, err := uuid.Parse(stored.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid stored session id %q: %w", stored.SessionID, err)
	}
	culprits := make([]model.ReplicaID, 0, len(stored.Culprits))
	for _, c := range stored.Culprits {
		culprits = append(culprits, model.ReplicaID(c))
	}
	return &model.ConflictEvent{
		SessionID:    sessionID,
		Kind:         model.ConflictKind(stored.Kind),
		Round:        stored.Round,
		LowerRound:   stored.LowerRound,
		UpperRound:   stored.UpperRound,
		PrepareRound: stored.PrepareRound,
		Culprits:     model.NewSignerSet(culprits...),
		First:        fromStoredRecord(stored.First),
		Second:       fromStoredRecord(stored.Second),
		DetectedAt:   stored.DetectedAt.UTC(),
	}, nil
}

func toStoredRecord(rec *model.Record) operation.StoredRecord {
	signatures := make(map[string][]byte, len(rec.Signatures))
	for signer, sig := range rec.Signatures {
		signatures[string(signer)] = sig
	}
	return operation.StoredRecord{
		Epoch:       rec.Epoch,
		Round:       rec.Round,
		ProposedID:  string(rec.ProposedID),
		ParentRound: rec.ParentRound,
		ParentID:    string(rec.ParentID),
		CommitRound: rec.CommitRound,
		CommitID:    string(rec.CommitID),
		Signatures:  signatures,
		Source:      string(rec.Source),
		IsNil:       rec.IsNil,
	}
}

func fromStoredRecord(stored operation.StoredRecord) *model.Record {
	signatures := make(map[model.ReplicaID][]byte, len(stored.Signatures))
	for signer, sig := range stored.Signatures {
		signatures[model.ReplicaID(signer)] = sig
	}
	return &model.Record{
		Epoch:       stored.Epoch,
		Round:       stored.Round,
		ProposedID:  model.BlockID(stored.ProposedID),
		ParentRound: stored.ParentRound,
		ParentID:    model.BlockID(stored.ParentID),
		CommitRound: stored.CommitRound,
		CommitID:    model.BlockID(stored.CommitID),
		Signatures:  signatures,
		Source:      model.ReplicaID(stored.Source),
		IsNil:       stored.IsNil,
	}
}
