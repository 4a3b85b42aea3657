package model

import (
	"fmt"
)

// ReplicaID identifies a consensus replica, either as a signer of a QC or as the
// vantage point that reported it.
type ReplicaID string

// BlockID is the opaque identifier (typically a hex encoded hash) of a block.
type BlockID string

// Short returns the abbreviated block ID used in round summaries.
func (id BlockID) Short() string {
	if len(id) <= 6 {
		return string(id)
	}
	return string(id[:6])
}

// CertificateKey is the identity of a logical quorum certificate. Two records with
// equal keys describe the same certificate, possibly observed from different replicas.
type CertificateKey struct {
	Epoch      uint64
	Round      uint64
	ProposedID BlockID
}

func (k CertificateKey) String() string {
	return fmt.Sprintf("(epoch=%d, round=%d, id=%s)", k.Epoch, k.Round, k.ProposedID)
}

// Record is the normalized form of one quorum certificate as reported by one
// monitored replica.
//
// A QC for block B at `Round` carries the identity of B's parent (the block its
// QC points to) and of the block that becomes committed once this QC forms.
// Records are never mutated once they are handed to the certificate store.
type Record struct {
	Epoch       uint64
	Round       uint64
	ProposedID  BlockID
	ParentRound uint64
	ParentID    BlockID
	CommitRound uint64
	CommitID    BlockID
	// Signatures maps each signer to its opaque signature. Signatures are not verified.
	Signatures map[ReplicaID][]byte
	// Source is the replica that reported this record.
	Source ReplicaID
	// IsNil is set when the certified block is a nil (timeout) block.
	IsNil bool
}

// Key returns the logical certificate identity of the record.
func (r *Record) Key() CertificateKey {
	return CertificateKey{
		Epoch:      r.Epoch,
		Round:      r.Round,
		ProposedID: r.ProposedID,
	}
}

// Signers returns the set of replicas that contributed a vote to the certificate.
func (r *Record) Signers() SignerSet {
	signers := make(SignerSet, len(r.Signatures))
	for id := range r.Signatures {
		signers[id] = struct{}{}
	}
	return signers
}

// Copy returns a deep copy of the record.
func (r *Record) Copy() *Record {
	cp := *r
	cp.Signatures = make(map[ReplicaID][]byte, len(r.Signatures))
	for id, sig := range r.Signatures {
		cp.Signatures[id] = append([]byte(nil), sig...)
	}
	return &cp
}

// WithSource returns a copy of the record reported by the given replica.
func (r *Record) WithSource(source ReplicaID) *Record {
	cp := r.Copy()
	cp.Source = source
	return cp
}

// Label returns the summary label of the certified block: its short ID, or
// "NIL BLOCK" for nil blocks.
func (r *Record) Label() string {
	if r.IsNil {
		return NilBlockLabel
	}
	return r.ProposedID.Short()
}

func (r *Record) String() string {
	return fmt.Sprintf("QC{epoch=%d round=%d id=%s parent=%d/%s commit=%d/%s signers=%d source=%s}",
		r.Epoch, r.Round, r.ProposedID.Short(), r.ParentRound, r.ParentID.Short(),
		r.CommitRound, r.CommitID.Short(), len(r.Signatures), r.Source)
}
