package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// compactRecord is the CBOR form of a record. Integer keys keep it small enough
// to ship one certificate per log line or datagram.
type compactRecord struct {
	Epoch       uint64            `cbor:"1,keyasint"`
	Round       uint64            `cbor:"2,keyasint"`
	ProposedID  string            `cbor:"3,keyasint"`
	ParentRound uint64            `cbor:"4,keyasint"`
	ParentID    string            `cbor:"5,keyasint"`
	CommitRound uint64            `cbor:"6,keyasint"`
	CommitID    string            `cbor:"7,keyasint"`
	Signatures  map[string][]byte `cbor:"8,keyasint"`
	IsNil       bool              `cbor:"9,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("could not initialize cbor encoding mode: %s", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("could not initialize cbor decoding mode: %s", err))
	}
}

// EncodeCBOR renders a record in the compact CBOR form. The Source is not encoded.
func EncodeCBOR(rec *model.Record) ([]byte, error) {
	signatures := make(map[string][]byte, len(rec.Signatures))
	for signer, sig := range rec.Signatures {
		signatures[string(signer)] = sig
	}
	return encMode.Marshal(compactRecord{
		Epoch:       rec.Epoch,
		Round:       rec.Round,
		ProposedID:  string(rec.ProposedID),
		ParentRound: rec.ParentRound,
		ParentID:    string(rec.ParentID),
		CommitRound: rec.CommitRound,
		CommitID:    string(rec.CommitID),
		Signatures:  signatures,
		IsNil:       rec.IsNil,
	})
}

func decodeCBOR(raw []byte) (*model.Record, error) {
	var compact compactRecord
	err := decMode.Unmarshal(raw, &compact)
	if err != nil {
		return nil, fmt.Errorf("invalid cbor: %w", err)
	}

	signatures := make(map[model.ReplicaID][]byte, len(compact.Signatures))
	for signer, sig := range compact.Signatures {
		signatures[model.ReplicaID(signer)] = sig
	}
	return &model.Record{
		Epoch:       compact.Epoch,
		Round:       compact.Round,
		ProposedID:  model.BlockID(compact.ProposedID),
		ParentRound: compact.ParentRound,
		ParentID:    model.BlockID(compact.ParentID),
		CommitRound: compact.CommitRound,
		CommitID:    model.BlockID(compact.CommitID),
		Signatures:  signatures,
		IsNil:       compact.IsNil,
	}, nil
}
