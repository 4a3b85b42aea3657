package codec

import (
	"fmt"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// validate checks the structural invariants every certificate must satisfy,
// independently of any quorum configuration.
func validate(rec *model.Record) error {
	if rec.ProposedID == "" {
		return fmt.Errorf("missing proposed block id at round %d", rec.Round)
	}
	if rec.Round > 0 && rec.ParentRound >= rec.Round {
		return fmt.Errorf("parent round %d is not below round %d", rec.ParentRound, rec.Round)
	}
	if len(rec.Signatures) == 0 {
		return fmt.Errorf("certificate at round %d carries no signatures", rec.Round)
	}
	for signer := range rec.Signatures {
		if signer == "" {
			return fmt.Errorf("certificate at round %d has an empty signer identity", rec.Round)
		}
	}
	return nil
}
