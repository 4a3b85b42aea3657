package rest

import (
	"time"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

type StatusResponse struct {
	SessionID    string `json:"session_id"`
	State        string `json:"state"`
	Mode         string `json:"mode"`
	Quorum       uint   `json:"quorum"`
	Epoch        uint64 `json:"epoch"`
	VantageA     string `json:"vantage_a"`
	VantageB     string `json:"vantage_b"`
	HighestRound uint64 `json:"highest_round"`
	Certificates int    `json:"certificates"`
	Observations int    `json:"observations"`
	Inconclusive bool   `json:"inconclusive"`
}

type RoundResponse struct {
	Round  uint64            `json:"round"`
	Blocks map[string]string `json:"blocks"`
}

type CertificateResponse struct {
	Epoch       uint64   `json:"epoch"`
	Round       uint64   `json:"round"`
	ProposedID  string   `json:"proposed_id"`
	ParentRound uint64   `json:"parent_round"`
	ParentID    string   `json:"parent_id"`
	CommitRound uint64   `json:"commit_round"`
	CommitID    string   `json:"commit_id"`
	Signers     []string `json:"signers"`
	Source      string   `json:"source"`
	IsNil       bool     `json:"is_nil,omitempty"`
}

type ConflictResponse struct {
	SessionID    string              `json:"session_id"`
	Kind         string              `json:"kind"`
	Round        uint64              `json:"round"`
	LowerRound   uint64              `json:"lower_round"`
	UpperRound   uint64              `json:"upper_round"`
	PrepareRound uint64              `json:"prepare_round,omitempty"`
	Culprits     []string            `json:"culprits"`
	First        CertificateResponse `json:"first"`
	Second       CertificateResponse `json:"second"`
	DetectedAt   time.Time           `json:"detected_at"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewCertificateResponse converts a record to its API representation.
func NewCertificateResponse(rec *model.Record) CertificateResponse {
	return CertificateResponse{
		Epoch:       rec.Epoch,
		Round:       rec.Round,
		ProposedID:  string(rec.ProposedID),
		ParentRound: rec.ParentRound,
		ParentID:    string(rec.ParentID),
		CommitRound: rec.CommitRound,
		CommitID:    string(rec.CommitID),
		Signers:     rec.Signers().Strings(),
		Source:      string(rec.Source),
		IsNil:       rec.IsNil,
	}
}

// NewConflictResponse converts a conflict event to its API representation.
func NewConflictResponse(event *model.ConflictEvent) ConflictResponse {
	return ConflictResponse{
		SessionID:    event.SessionID.String(),
		Kind:         event.Kind.String(),
		Round:        event.Round,
		LowerRound:   event.LowerRound,
		UpperRound:   event.UpperRound,
		PrepareRound: event.PrepareRound,
		Culprits:     event.Culprits.Strings(),
		First:        NewCertificateResponse(event.First),
		Second:       NewCertificateResponse(event.Second),
		DetectedAt:   event.DetectedAt,
	}
}

func NewRoundResponse(summary model.RoundSummary) RoundResponse {
	blocks := make(map[string]string, len(summary.Blocks))
	for replica, label := range summary.Blocks {
		blocks[string(replica)] = label
	}
	return RoundResponse{Round: summary.Round, Blocks: blocks}
}
