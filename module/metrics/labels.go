package metrics

const (
	LabelSource   = "source"
	LabelStatus   = "status"
	LabelReason   = "reason"
	LabelKind     = "kind"
	LabelEndpoint = "endpoint"
	LabelResult   = "result"
)

// Reasons a record is rejected.
const (
	ReasonParseError           = "parse_error"
	ReasonBelowQuorum          = "below_quorum"
	ReasonConflictingDuplicate = "conflicting_duplicate"
	ReasonOtherEpoch           = "other_epoch"
)

// Diagnostics raised during detection.
const (
	DiagnosticEpochMismatch      = "epoch_mismatch"
	DiagnosticAttributionEmpty   = "attribution_empty"
	DiagnosticInconsistentWindow = "inconsistent_window"
)
