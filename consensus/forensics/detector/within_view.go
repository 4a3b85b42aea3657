package detector

import (
	"sort"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/certstore"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// WithinView detects two distinct certified proposals for the same round, as
// reported by two vantage points. HotStuff's voting rule guarantees that at most
// one QC forms per round unless replicas double-vote.
type WithinView struct {
	a model.ReplicaID
	b model.ReplicaID
}

func NewWithinView(a, b model.ReplicaID) *WithinView {
	return &WithinView{a: a, b: b}
}

// Check compares the certificates both vantage points reported for the round.
// Returns (nil, nil) if either side has not reported the round yet or if both
// certified the same block.
// Expected errors during normal operations:
//   - model.EpochMismatchError if the two certificates belong to different epochs
func (d *WithinView) Check(reader certstore.Reader, round uint64) (*model.Conflict, error) {
	first, ok := reader.LookupByRound(d.a, round)
	if !ok {
		return nil, nil
	}
	second, ok := reader.LookupByRound(d.b, round)
	if !ok {
		return nil, nil
	}
	if first.Epoch != second.Epoch {
		return nil, model.EpochMismatchError{First: first.Key(), Second: second.Key()}
	}
	if first.ProposedID == second.ProposedID {
		return nil, nil
	}
	return &model.Conflict{
		Kind:   model.WithinView,
		Round:  round,
		First:  first,
		Second: second,
	}, nil
}

// Scan checks the given rounds in ascending order and returns the first conflict.
// Rounds whose comparison fails with an epoch mismatch are skipped; the first
// such error is returned alongside the scan result so the caller can report it.
func (d *WithinView) Scan(reader certstore.Reader, rounds []uint64) (*model.Conflict, error) {
	sorted := make([]uint64, len(rounds))
	copy(sorted, rounds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var mismatch error
	for _, round := range sorted {
		conflict, err := d.Check(reader, round)
		if err != nil {
			if mismatch == nil {
				mismatch = err
			}
			continue
		}
		if conflict != nil {
			return conflict, mismatch
		}
	}
	return nil, mismatch
}
