package unittest

import (
	"pgregory.net/rapid"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// SignerSetGenerator draws signer sets of size [min, max] from the replicas n0 .. n<total-1>.
func SignerSetGenerator(total, min, max int) *rapid.Generator[[]model.ReplicaID] {
	replicas := ReplicaIDs(total)
	return rapid.SliceOfNDistinct(rapid.SampledFrom(replicas), min, max, func(id model.ReplicaID) model.ReplicaID { return id })
}

// RecordGenerator draws valid records of epoch 1 reported by the source. Block
// identifiers are drawn from a small alphabet so that collisions are frequent.
func RecordGenerator(source model.ReplicaID, total, quorum int) *rapid.Generator[*model.Record] {
	return rapid.Custom(func(t *rapid.T) *model.Record {
		round := rapid.Uint64Range(1, 20).Draw(t, "round")
		id := rapid.SampledFrom([]model.BlockID{"aaa111", "bbb222", "ccc333"}).Draw(t, "id")
		signers := SignerSetGenerator(total, quorum, total).Draw(t, "signers")
		return RecordFixture(
			WithSource(source),
			WithRound(round),
			WithProposedID(id),
			WithSigners(signers...),
		)
	})
}
