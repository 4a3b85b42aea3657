package model

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates that a component was initialized with invalid or
// inconsistent parameters.
type ConfigurationError struct {
	err error
}

func NewConfigurationErrorf(msg string, args ...interface{}) error {
	return ConfigurationError{fmt.Errorf(msg, args...)}
}

func (e ConfigurationError) Error() string { return e.err.Error() }
func (e ConfigurationError) Unwrap() error { return e.err }

// IsConfigurationError returns whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var e ConfigurationError
	return errors.As(err, &e)
}

// ParseError indicates that a raw certificate could not be normalized into a Record.
// The record is dropped; ingestion continues.
type ParseError struct {
	Source ReplicaID
	Err    error
}

func NewParseErrorf(source ReplicaID, msg string, args ...interface{}) error {
	return ParseError{Source: source, Err: fmt.Errorf(msg, args...)}
}

func (e ParseError) Error() string {
	return fmt.Sprintf("could not parse certificate from %q: %s", e.Source, e.Err.Error())
}

func (e ParseError) Unwrap() error { return e.Err }

// IsParseError returns whether an error is ParseError
func IsParseError(err error) bool {
	var e ParseError
	return errors.As(err, &e)
}

// QuorumNotReachedError indicates that a record carries fewer signers than the
// configured quorum. Such a record is not a valid certificate and is rejected.
type QuorumNotReachedError struct {
	Key     CertificateKey
	Signers int
	Quorum  uint
}

func (e QuorumNotReachedError) Error() string {
	return fmt.Sprintf("certificate %v has %d signers, below quorum %d", e.Key, e.Signers, e.Quorum)
}

// IsQuorumNotReachedError returns whether an error is QuorumNotReachedError
func IsQuorumNotReachedError(err error) bool {
	var e QuorumNotReachedError
	return errors.As(err, &e)
}

// ConflictingDuplicateError indicates that a certificate slot is already occupied
// by a record with different content: either the same replica reported two
// different certificates for one round, or the same logical certificate was
// observed with two different signer sets. The stored record is kept. This is a
// data-integrity diagnostic, not a safety violation.
type ConflictingDuplicateError struct {
	Stored   *Record
	Rejected *Record
}

func (e ConflictingDuplicateError) Error() string {
	return fmt.Sprintf("conflicting duplicate for %v from %q: stored signers %v, rejected signers %v",
		e.Rejected.Key(), e.Rejected.Source, e.Stored.Signers(), e.Rejected.Signers())
}

// IsConflictingDuplicateError returns whether an error is ConflictingDuplicateError
func IsConflictingDuplicateError(err error) bool {
	var e ConflictingDuplicateError
	return errors.As(err, &e)
}

// AsConflictingDuplicateError determines whether the given error is a ConflictingDuplicateError
// (potentially wrapped). It follows the same semantics as a checked type cast.
func AsConflictingDuplicateError(err error) (*ConflictingDuplicateError, bool) {
	var e ConflictingDuplicateError
	ok := errors.As(err, &e)
	if ok {
		return &e, true
	}
	return nil, false
}

// EpochMismatchError indicates that two certificates from different epochs were
// compared. They belong to different consensus instances; the comparison is aborted.
type EpochMismatchError struct {
	First  CertificateKey
	Second CertificateKey
}

func (e EpochMismatchError) Error() string {
	return fmt.Sprintf("cannot compare certificates across epochs: %v vs %v", e.First, e.Second)
}

// IsEpochMismatchError returns whether an error is EpochMismatchError
func IsEpochMismatchError(err error) bool {
	var e EpochMismatchError
	return errors.As(err, &e)
}

// AttributionEmptyError indicates that two certificates claimed to be conflicting
// share no signer. Either the quorum threshold is misconfigured or the pair is
// not actually conflicting. It is fatal to the conflict event.
type AttributionEmptyError struct {
	Kind   ConflictKind
	First  CertificateKey
	Second CertificateKey
}

func (e AttributionEmptyError) Error() string {
	return fmt.Sprintf("%s conflict between %v and %v has no common signer: check the quorum threshold",
		e.Kind, e.First, e.Second)
}

// IsAttributionEmptyError returns whether an error is AttributionEmptyError
func IsAttributionEmptyError(err error) bool {
	var e AttributionEmptyError
	return errors.As(err, &e)
}

// InconsistentWindowError indicates that the across-view detector located a
// fork but found no certificate violating the lock within [Commit1, Prepare].
// This signals a wrong window selection, never an absence of conflict.
type InconsistentWindowError struct {
	Commit1 uint64
	Prepare uint64
}

func (e InconsistentWindowError) Error() string {
	return fmt.Sprintf("no lock-violating certificate between rounds %d and %d", e.Commit1, e.Prepare)
}

// IsInconsistentWindowError returns whether an error is InconsistentWindowError
func IsInconsistentWindowError(err error) bool {
	var e InconsistentWindowError
	return errors.As(err, &e)
}
