package metrics

// Prometheus metric namespaces
const (
	namespaceForensics = "forensics"
)

// Forensics subsystems
const (
	subsystemSession = "session"
	subsystemStore   = "store"
	subsystemSource  = "source"
)
