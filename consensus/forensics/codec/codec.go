// Package codec normalizes raw quorum certificates, as produced by replicas in
// their logs or over the forensic JSON-RPC API, into forensic records.
//
// Two encodings are accepted:
//   - JSON in the LibraBFT wire form, either wrapped as {"quorum_cert": ...},
//     as a forensic RPC result {"qc": ..., "is_nil": ...}, or bare;
//   - the compact CBOR form produced by EncodeCBOR.
package codec

import (
	"bytes"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// Normalize decodes a raw certificate. The returned record has no Source.
// Expected errors:
//   - model.ParseError if the blob is malformed or structurally invalid
func Normalize(raw []byte) (*model.Record, error) {
	return NormalizeFrom("", raw)
}

// NormalizeFrom decodes a raw certificate reported by the given replica.
// Expected errors:
//   - model.ParseError if the blob is malformed or structurally invalid
func NormalizeFrom(source model.ReplicaID, raw []byte) (*model.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, model.NewParseErrorf(source, "empty certificate")
	}

	var (
		rec *model.Record
		err error
	)
	if trimmed[0] == '{' {
		rec, err = decodeJSON(trimmed)
	} else {
		rec, err = decodeCBOR(trimmed)
	}
	if err != nil {
		return nil, model.ParseError{Source: source, Err: err}
	}

	rec.Source = source
	err = validate(rec)
	if err != nil {
		return nil, model.ParseError{Source: source, Err: err}
	}
	return rec, nil
}
