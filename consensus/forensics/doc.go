// Package forensics analyzes the quorum certificates produced by the replicas of a
// HotStuff-family consensus protocol, detects safety violations and attributes
// them to the replicas that provably double-voted.
//
// Overview of the subpackages:
//   - model: certificate records, conflicts, conflict events and typed errors.
//   - codec: normalization of raw certificates (JSON or CBOR) into records.
//   - certstore: append-only, concurrency safe index of records.
//   - detector: within-view and across-view conflict detection, culprit attribution.
//   - session: one forensic analysis run, driving ingestion and detection.
//   - notifications: logging, no-op and fan-out implementations of Consumer.
//   - persister: Consumer writing events and round summaries to storage.
//   - source: replay of twins-harness logs and polling of the forensic JSON-RPC API.
//
// Signatures carried by certificates are not verified: signer identities are
// assumed to be authenticated upstream.
package forensics
