package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/storage"
	"github.com/onflow/hotstuff-forensics/storage/badger/operation"
)

// RoundSummaries implements storage.RoundSummaries on badger.
type RoundSummaries struct {
	db *badger.DB
}

var _ storage.RoundSummaries = (*RoundSummaries)(nil)

func NewRoundSummaries(db *badger.DB) *RoundSummaries {
	return &RoundSummaries{db: db}
}

func (r *RoundSummaries) Store(sessionID uuid.UUID, summary model.RoundSummary) error {
	blocks := make(map[string]string, len(summary.Blocks))
	for replica, label := range summary.Blocks {
		blocks[string(replica)] = label
	}
	stored := &operation.StoredRoundSummary{Round: summary.Round, Blocks: blocks}
	return operation.RetryOnConflict(r.db.Update, operation.UpsertRoundSummary(sessionID, stored))
}

func (r *RoundSummaries) ByRange(sessionID uuid.UUID, lo, hi uint64) ([]model.RoundSummary, error) {
	var stored []operation.StoredRoundSummary
	err := r.db.View(operation.LookupRoundSummaries(sessionID, lo, hi, &stored))
	if err != nil {
		return nil, fmt.Errorf("could not look up round summaries: %w", err)
	}

	summaries := make([]model.RoundSummary, 0, len(stored))
	for _, s := range stored {
		blocks := make(map[model.ReplicaID]string, len(s.Blocks))
		for replica, label := range s.Blocks {
			blocks[model.ReplicaID(replica)] = label
		}
		summaries = append(summaries, model.RoundSummary{Round: s.Round, Blocks: blocks})
	}
	return summaries, nil
}
