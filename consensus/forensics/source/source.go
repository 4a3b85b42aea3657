package source

import (
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// RawSink receives raw certificates reported by a replica, one batch per call.
// It is implemented by session.Session.
type RawSink interface {
	IngestRaw(source model.ReplicaID, blobs ...[]byte) error
}
