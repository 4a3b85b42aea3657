package detector

import (
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// Attribute returns the replicas that signed both conflicting certificates. Since
// the two certificates are proven to conflict, every returned replica provably
// violated the voting rules.
// Expected errors during normal operations:
//   - model.EpochMismatchError if the certificates belong to different epochs
//   - model.AttributionEmptyError if no replica signed both certificates
func Attribute(conflict *model.Conflict) (model.SignerSet, error) {
	first, second := conflict.First, conflict.Second
	if first.Epoch != second.Epoch {
		return nil, model.EpochMismatchError{First: first.Key(), Second: second.Key()}
	}
	culprits := first.Signers().Intersect(second.Signers())
	if culprits.Len() == 0 {
		return nil, model.AttributionEmptyError{Kind: conflict.Kind, First: first.Key(), Second: second.Key()}
	}
	return culprits, nil
}
