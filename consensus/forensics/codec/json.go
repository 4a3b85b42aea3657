package codec

import (
	"encoding/json"
	"fmt"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

type blockInfo struct {
	Epoch uint64 `json:"epoch"`
	Round uint64 `json:"round"`
	ID    string `json:"id"`
}

type voteData struct {
	Proposed *blockInfo `json:"proposed"`
	Parent   *blockInfo `json:"parent"`
}

type ledgerInfo struct {
	CommitInfo *blockInfo `json:"commit_info"`
}

type signedLedgerInfoV0 struct {
	LedgerInfo *ledgerInfo       `json:"ledger_info"`
	Signatures map[string]string `json:"signatures"`
}

type signedLedgerInfo struct {
	V0 *signedLedgerInfoV0 `json:"V0"`
}

// quorumCert mirrors the JSON serialization of a LibraBFT quorum certificate.
type quorumCert struct {
	VoteData         *voteData         `json:"vote_data"`
	SignedLedgerInfo *signedLedgerInfo `json:"signed_ledger_info"`
}

// envelope covers the three shapes a certificate is found in.
type envelope struct {
	QuorumCert *quorumCert `json:"quorum_cert"`
	QC         *quorumCert `json:"qc"`
	IsNil      bool        `json:"is_nil"`

	quorumCert
}

func decodeJSON(raw []byte) (*model.Record, error) {
	var env envelope
	err := json.Unmarshal(raw, &env)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	qc := &env.quorumCert
	switch {
	case env.QuorumCert != nil:
		qc = env.QuorumCert
	case env.QC != nil:
		qc = env.QC
	}

	rec, err := fromQuorumCert(qc)
	if err != nil {
		return nil, err
	}
	rec.IsNil = env.IsNil
	return rec, nil
}

func fromQuorumCert(qc *quorumCert) (*model.Record, error) {
	if qc.VoteData == nil || qc.VoteData.Proposed == nil {
		return nil, fmt.Errorf("missing vote_data.proposed")
	}
	if qc.VoteData.Parent == nil {
		return nil, fmt.Errorf("missing vote_data.parent")
	}
	if qc.SignedLedgerInfo == nil || qc.SignedLedgerInfo.V0 == nil {
		return nil, fmt.Errorf("missing signed_ledger_info.V0")
	}
	v0 := qc.SignedLedgerInfo.V0
	if v0.LedgerInfo == nil || v0.LedgerInfo.CommitInfo == nil {
		return nil, fmt.Errorf("missing ledger_info.commit_info")
	}

	proposed := qc.VoteData.Proposed
	parent := qc.VoteData.Parent
	commit := v0.LedgerInfo.CommitInfo

	signatures := make(map[model.ReplicaID][]byte, len(v0.Signatures))
	for signer, sig := range v0.Signatures {
		signatures[model.ReplicaID(signer)] = []byte(sig)
	}

	return &model.Record{
		Epoch:       proposed.Epoch,
		Round:       proposed.Round,
		ProposedID:  model.BlockID(proposed.ID),
		ParentRound: parent.Round,
		ParentID:    model.BlockID(parent.ID),
		CommitRound: commit.Round,
		CommitID:    model.BlockID(commit.ID),
		Signatures:  signatures,
	}, nil
}

// EncodeJSON renders a record in the LibraBFT wire form wrapped as {"quorum_cert": ...}.
func EncodeJSON(rec *model.Record) ([]byte, error) {
	signatures := make(map[string]string, len(rec.Signatures))
	for signer, sig := range rec.Signatures {
		signatures[string(signer)] = string(sig)
	}
	env := struct {
		QuorumCert *quorumCert `json:"quorum_cert"`
	}{
		QuorumCert: &quorumCert{
			VoteData: &voteData{
				Proposed: &blockInfo{Epoch: rec.Epoch, Round: rec.Round, ID: string(rec.ProposedID)},
				Parent:   &blockInfo{Epoch: rec.Epoch, Round: rec.ParentRound, ID: string(rec.ParentID)},
			},
			SignedLedgerInfo: &signedLedgerInfo{
				V0: &signedLedgerInfoV0{
					LedgerInfo: &ledgerInfo{
						CommitInfo: &blockInfo{Epoch: rec.Epoch, Round: rec.CommitRound, ID: string(rec.CommitID)},
					},
					Signatures: signatures,
				},
			},
		},
	}
	return json.Marshal(env)
}
