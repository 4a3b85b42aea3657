package detector

import (
	"sort"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/certstore"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/module/irrecoverable"
)

// Fork locates an across-view violation window.
//   - Commit1: the last round up to which both vantage points report commit
//     rounds advancing one by one; A's certificate there is the lock.
//   - Prepare: the first round at which vantage point B commits past Commit1.
//   - Commit2 = Prepare + 2: the round at which B's branch commit becomes final.
type Fork struct {
	Commit1 uint64
	Prepare uint64
	Commit2 uint64
}

// AcrossView detects a certificate that contradicts the lock established by an
// earlier committed chain. Vantage point A provides the locked certificate, B
// the chain that violates it.
type AcrossView struct {
	a model.ReplicaID
	b model.ReplicaID
}

func NewAcrossView(a, b model.ReplicaID) *AcrossView {
	return &AcrossView{a: a, b: b}
}

// LocateFork determines the violation window. Returns false while the history
// does not show a fork yet.
func (d *AcrossView) LocateFork(reader certstore.Reader) (Fork, bool) {
	commit1, ok := d.lastContiguousRound(reader)
	if !ok {
		return Fork{}, false
	}
	for _, round := range reader.Rounds(d.b) {
		rec, _ := reader.LookupByRound(d.b, round)
		if rec.CommitRound > commit1 {
			return Fork{Commit1: commit1, Prepare: round, Commit2: round + 2}, true
		}
	}
	return Fork{}, false
}

// lastContiguousRound returns the last round before the first break in the
// commit sequence. The walk starts at the first round where both vantage points
// report the same commit and then steps round by round. A round counts only
// once both vantage points reported it: a missing round ends the walk without a
// verdict, so a certificate that arrives late cannot be mistaken for a break.
// Zero commit rounds (nothing committed) are not part of the sequence.
func (d *AcrossView) lastContiguousRound(reader certstore.Reader) (uint64, bool) {
	lastRound, lastCommit, ok := d.firstAgreedCommit(reader)
	if !ok {
		return 0, false
	}
	for round := lastRound + 1; ; round++ {
		commits, complete := d.commitsAt(reader, round)
		if !complete {
			return 0, false
		}
		for _, commit := range commits {
			if commit != lastCommit+1 {
				return lastRound, true
			}
		}
		if len(commits) > 0 {
			lastCommit, lastRound = commits[0], round
		}
	}
}

// firstAgreedCommit returns the lowest round at which both vantage points report
// the same non-zero commit round. Earlier rounds on which they disagree are
// skipped.
func (d *AcrossView) firstAgreedCommit(reader certstore.Reader) (uint64, uint64, bool) {
	for _, round := range mergeRounds(reader.Rounds(d.a), reader.Rounds(d.b)) {
		commits, complete := d.commitsAt(reader, round)
		if complete && len(commits) == 2 && commits[0] == commits[1] {
			return round, commits[0], true
		}
	}
	return 0, 0, false
}

// commitsAt returns the non-zero commit rounds A and B report for the round, in
// that order. complete is false unless both vantage points reported the round.
func (d *AcrossView) commitsAt(reader certstore.Reader, round uint64) ([]uint64, bool) {
	commits := make([]uint64, 0, 2)
	for _, source := range []model.ReplicaID{d.a, d.b} {
		rec, ok := reader.LookupByRound(source, round)
		if !ok {
			return nil, false
		}
		if rec.CommitRound > 0 {
			commits = append(commits, rec.CommitRound)
		}
	}
	return commits, true
}

// Check locates the fork and searches B's chain between Commit1 and Prepare for
// the first certificate that could not legally descend from A's locked
// certificate. Returns (nil, nil) while no fork is observable.
// Expected errors during normal operations:
//   - model.EpochMismatchError if the violating candidate belongs to another epoch
//
// Exceptions:
//   - model.InconsistentWindowError (wrapped as irrecoverable.Exception) if a fork
//     is located but no certificate in the window violates the lock
func (d *AcrossView) Check(reader certstore.Reader) (*model.Conflict, error) {
	fork, ok := d.LocateFork(reader)
	if !ok {
		return nil, nil
	}
	locked, ok := reader.LookupByRound(d.a, fork.Commit1)
	if !ok {
		return nil, nil
	}

	for _, rec := range reader.ChainBetween(d.b, fork.Commit1, fork.Prepare) {
		if rec.Epoch != locked.Epoch {
			return nil, model.EpochMismatchError{First: locked.Key(), Second: rec.Key()}
		}
		if !violatesLock(locked, rec) {
			continue
		}
		return &model.Conflict{
			Kind:    model.AcrossView,
			Round:   fork.Commit2,
			Commit1: fork.Commit1,
			Prepare: fork.Prepare,
			Commit2: fork.Commit2,
			First:   locked,
			Second:  rec,
		}, nil
	}
	return nil, irrecoverable.NewException(model.InconsistentWindowError{
		Commit1: fork.Commit1,
		Prepare: fork.Prepare,
	})
}

// violatesLock reports whether a vote for rec contradicts the lock on `locked`.
// The locked certificate itself, and certificates extending it or a block
// above it, are safe.
func violatesLock(locked, rec *model.Record) bool {
	if rec.Round == locked.Round {
		return rec.ProposedID != locked.ProposedID
	}
	if rec.ParentRound < locked.Round {
		return true
	}
	return rec.ParentRound == locked.Round && rec.ParentID != locked.ProposedID
}

func mergeRounds(a, b []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(a)+len(b))
	merged := make([]uint64, 0, len(a)+len(b))
	for _, rounds := range [][]uint64{a, b} {
		for _, round := range rounds {
			if _, ok := seen[round]; ok {
				continue
			}
			seen[round] = struct{}{}
			merged = append(merged, round)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	return merged
}
