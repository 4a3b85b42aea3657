package unittest

import (
	"fmt"
	"math/rand"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// Vantage points used by the fixtures.
const (
	VantageA model.ReplicaID = "0"
	VantageB model.ReplicaID = "1"
)

// ReplicaIDs returns the replica identities n0 .. n<count-1>.
func ReplicaIDs(count int) []model.ReplicaID {
	ids := make([]model.ReplicaID, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, model.ReplicaID(fmt.Sprintf("n%d", i)))
	}
	return ids
}

// BlockIDFixture returns the deterministic identifier of the canonical block at the round.
func BlockIDFixture(round uint64) model.BlockID {
	return model.BlockID(fmt.Sprintf("%064x", round))
}

// RandomBlockID returns a random hex encoded 32 byte identifier.
func RandomBlockID() model.BlockID {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return model.BlockID(fmt.Sprintf("%x", buf))
}

// SignaturesFixture returns a signature map over the given signers.
func SignaturesFixture(signers ...model.ReplicaID) map[model.ReplicaID][]byte {
	signatures := make(map[model.ReplicaID][]byte, len(signers))
	for _, signer := range signers {
		signatures[signer] = []byte("sig-" + string(signer))
	}
	return signatures
}

// RecordFixture returns a valid record of epoch 1 at round 1, reported by
// VantageA and signed by n0, n1, n2.
func RecordFixture(opts ...func(*model.Record)) *model.Record {
	rec := &model.Record{
		Epoch:       1,
		Round:       1,
		ProposedID:  RandomBlockID(),
		ParentRound: 0,
		ParentID:    BlockIDFixture(0),
		Signatures:  SignaturesFixture(ReplicaIDs(3)...),
		Source:      VantageA,
	}
	for _, apply := range opts {
		apply(rec)
	}
	return rec
}

// WithRound sets the round and makes the parent the previous round.
func WithRound(round uint64) func(*model.Record) {
	return func(rec *model.Record) {
		rec.Round = round
		if round > 0 {
			rec.ParentRound = round - 1
		}
	}
}

func WithEpoch(epoch uint64) func(*model.Record) {
	return func(rec *model.Record) {
		rec.Epoch = epoch
	}
}

func WithProposedID(id model.BlockID) func(*model.Record) {
	return func(rec *model.Record) {
		rec.ProposedID = id
	}
}

func WithParent(round uint64, id model.BlockID) func(*model.Record) {
	return func(rec *model.Record) {
		rec.ParentRound = round
		rec.ParentID = id
	}
}

func WithCommit(round uint64, id model.BlockID) func(*model.Record) {
	return func(rec *model.Record) {
		rec.CommitRound = round
		rec.CommitID = id
	}
}

func WithSigners(signers ...model.ReplicaID) func(*model.Record) {
	return func(rec *model.Record) {
		rec.Signatures = SignaturesFixture(signers...)
	}
}

func WithSource(source model.ReplicaID) func(*model.Record) {
	return func(rec *model.Record) {
		rec.Source = source
	}
}

func AsNilBlock() func(*model.Record) {
	return func(rec *model.Record) {
		rec.IsNil = true
	}
}

// CanonicalRecord returns the certificate of the canonical chain at the round:
// it extends the canonical block of the previous round and commits the
// canonical block of its own round.
func CanonicalRecord(source model.ReplicaID, round uint64, signers ...model.ReplicaID) *model.Record {
	return RecordFixture(
		WithSource(source),
		WithRound(round),
		WithProposedID(BlockIDFixture(round)),
		WithParent(round-1, BlockIDFixture(round-1)),
		WithCommit(round, BlockIDFixture(round)),
		WithSigners(signers...),
	)
}

// ChainFixture returns the canonical certificates for rounds [from, to] as
// reported by the source.
func ChainFixture(source model.ReplicaID, from, to uint64, signers ...model.ReplicaID) []*model.Record {
	chain := make([]*model.Record, 0, to-from+1)
	for round := from; round <= to; round++ {
		chain = append(chain, CanonicalRecord(source, round, signers...))
	}
	return chain
}

// ForkedBlockID returns the identifier of the block of the forked branch at the round.
func ForkedBlockID(round uint64) model.BlockID {
	return model.BlockID(fmt.Sprintf("f%063x", round))
}

// AcrossViewFixture returns the histories of two vantage points diverging
// across views. Vantage A reports the canonical chain for rounds 1..5 signed
// by n0, n1, n2. Vantage B shares rounds 1..3 and then follows a branch
// signed by n1, n2, n3: its round 4 certificate extends round 2, skipping A's
// locked round 3 certificate, and commits round 5.
//
// The expected verdict: commit1 = 3, prepare = 4, commit2 = 6, violator = B's
// round 4 certificate, culprits = {n1, n2}.
func AcrossViewFixture() (a []*model.Record, b []*model.Record) {
	ids := ReplicaIDs(4)
	canonical := ids[0:3]
	forked := ids[1:4]

	a = ChainFixture(VantageA, 1, 5, canonical...)
	b = ChainFixture(VantageB, 1, 3, canonical...)
	b = append(b,
		RecordFixture(
			WithSource(VantageB),
			WithRound(4),
			WithProposedID(ForkedBlockID(4)),
			WithParent(2, BlockIDFixture(2)),
			WithCommit(5, ForkedBlockID(4)),
			WithSigners(forked...),
		),
		RecordFixture(
			WithSource(VantageB),
			WithRound(5),
			WithProposedID(ForkedBlockID(5)),
			WithParent(4, ForkedBlockID(4)),
			WithCommit(6, ForkedBlockID(5)),
			WithSigners(forked...),
		),
	)
	return a, b
}
