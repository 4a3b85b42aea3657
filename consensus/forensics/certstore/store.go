package certstore

import (
	"sort"
	"sync"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// InsertStatus reports what Insert did with a valid record.
type InsertStatus int

const (
	// Inserted: the record is the first observation of a new logical certificate.
	Inserted InsertStatus = iota + 1
	// Observed: the logical certificate was already known from another vantage point;
	// the record was indexed for its source but the store size is unchanged.
	Observed
	// DuplicateIgnored: the source already reported an identical record for the round.
	DuplicateIgnored
)

func (s InsertStatus) String() string {
	switch s {
	case Inserted:
		return "inserted"
	case Observed:
		return "observed"
	case DuplicateIgnored:
		return "duplicate_ignored"
	default:
		return "unknown"
	}
}

// LogEntry is one accepted observation in insertion order.
type LogEntry struct {
	Seq    uint64
	Source model.ReplicaID
	Key    model.CertificateKey
	Status InsertStatus
}

// Reader is the read-only view detectors evaluate against.
type Reader interface {
	// LookupByRound returns the certificate the source reported for the round.
	LookupByRound(source model.ReplicaID, round uint64) (*model.Record, bool)
	// ChainBetween returns the certificates the source reported for rounds in
	// [lo, hi], ascending by round.
	ChainBetween(source model.ReplicaID, lo, hi uint64) []*model.Record
	// Rounds returns the rounds the source reported a certificate for, ascending.
	Rounds(source model.ReplicaID) []uint64
	// HighestRound returns the highest round of any stored certificate.
	HighestRound() uint64
}

// Store is an append-only index of observed quorum certificates, deduplicated by
// logical certificate identity and indexed by (source, round).
//
// Each (source, round) slot has first-writer-wins semantics: a later write with
// identical content is ignored, a later write with different content is rejected
// with a model.ConflictingDuplicateError. Stored records are private copies and
// are never mutated.
//
// Store is safe for concurrent use.
type Store struct {
	quorum uint

	mu           sync.RWMutex
	certificates map[model.CertificateKey]*model.Record
	bySource     map[model.ReplicaID]*sourceIndex
	log          []LogEntry
	highestRound uint64
	observations int
	version      uint64
}

// sourceIndex holds the certificates one replica reported, by round.
type sourceIndex struct {
	byRound map[uint64]*model.Record
	rounds  []uint64 // sorted ascending
}

func (idx *sourceIndex) add(rec *model.Record) {
	idx.byRound[rec.Round] = rec
	i := sort.Search(len(idx.rounds), func(i int) bool { return idx.rounds[i] >= rec.Round })
	idx.rounds = append(idx.rounds, 0)
	copy(idx.rounds[i+1:], idx.rounds[i:])
	idx.rounds[i] = rec.Round
}

var _ Reader = (*Store)(nil)

// New creates an empty store accepting certificates with at least `quorum` signers.
func New(quorum uint) (*Store, error) {
	if quorum == 0 {
		return nil, model.NewConfigurationErrorf("quorum threshold must be positive")
	}
	return &Store{
		quorum:       quorum,
		certificates: make(map[model.CertificateKey]*model.Record),
		bySource:     make(map[model.ReplicaID]*sourceIndex),
	}, nil
}

// Quorum returns the minimal number of signers of a valid certificate.
func (s *Store) Quorum() uint {
	return s.quorum
}

// Insert adds the record to the store.
// Expected errors during normal operations:
//   - model.QuorumNotReachedError if the record has fewer signers than the quorum; it is not stored
//   - model.ConflictingDuplicateError if the record disagrees with an already stored record
//     for the same (source, round) slot or the same logical certificate; the stored record is kept
func (s *Store) Insert(rec *model.Record) (InsertStatus, error) {
	if uint(len(rec.Signatures)) < s.quorum {
		return 0, model.QuorumNotReachedError{Key: rec.Key(), Signers: len(rec.Signatures), Quorum: s.quorum}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	signers := rec.Signers()
	key := rec.Key()

	idx, ok := s.bySource[rec.Source]
	if ok {
		if stored, ok := idx.byRound[rec.Round]; ok {
			if stored.Key() == key && stored.Signers().Equal(signers) {
				return DuplicateIgnored, nil
			}
			return 0, model.ConflictingDuplicateError{Stored: stored, Rejected: rec.Copy()}
		}
	}

	status := Inserted
	known, ok := s.certificates[key]
	if ok {
		if !known.Signers().Equal(signers) {
			return 0, model.ConflictingDuplicateError{Stored: known, Rejected: rec.Copy()}
		}
		status = Observed
	}

	stored := rec.Copy()
	if status == Inserted {
		s.certificates[key] = stored
	}
	if idx == nil {
		idx = &sourceIndex{byRound: make(map[uint64]*model.Record)}
		s.bySource[rec.Source] = idx
	}
	idx.add(stored)

	s.observations++
	s.version++
	if rec.Round > s.highestRound {
		s.highestRound = rec.Round
	}
	s.log = append(s.log, LogEntry{
		Seq:    uint64(len(s.log)),
		Source: rec.Source,
		Key:    key,
		Status: status,
	})
	return status, nil
}

// Read runs f against a consistent view of the store: no insert is applied while
// f executes. f must not call Insert.
func (s *Store) Read(f func(Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f(view{s})
}

func (s *Store) LookupByRound(source model.ReplicaID, round uint64) (*model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupByRound(source, round)
}

func (s *Store) ChainBetween(source model.ReplicaID, lo, hi uint64) []*model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainBetween(source, lo, hi)
}

func (s *Store) Rounds(source model.ReplicaID) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rounds(source)
}

func (s *Store) HighestRound() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highestRound
}

// Size returns the number of distinct logical certificates.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.certificates)
}

// Observations returns the number of (source, round) slots filled.
func (s *Store) Observations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observations
}

// Version is incremented on every accepted insert.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Log returns a copy of the insertion-order log.
func (s *Store) Log() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]LogEntry, len(s.log))
	copy(entries, s.log)
	return entries
}

func (s *Store) lookupByRound(source model.ReplicaID, round uint64) (*model.Record, bool) {
	idx, ok := s.bySource[source]
	if !ok {
		return nil, false
	}
	rec, ok := idx.byRound[round]
	return rec, ok
}

func (s *Store) chainBetween(source model.ReplicaID, lo, hi uint64) []*model.Record {
	idx, ok := s.bySource[source]
	if !ok || lo > hi {
		return nil
	}
	start := sort.Search(len(idx.rounds), func(i int) bool { return idx.rounds[i] >= lo })
	var chain []*model.Record
	for _, round := range idx.rounds[start:] {
		if round > hi {
			break
		}
		chain = append(chain, idx.byRound[round])
	}
	return chain
}

func (s *Store) rounds(source model.ReplicaID) []uint64 {
	idx, ok := s.bySource[source]
	if !ok {
		return nil
	}
	rounds := make([]uint64, len(idx.rounds))
	copy(rounds, idx.rounds)
	return rounds
}

// view gives lock-free access to the store while Read holds the read lock.
type view struct {
	s *Store
}

func (v view) LookupByRound(source model.ReplicaID, round uint64) (*model.Record, bool) {
	return v.s.lookupByRound(source, round)
}

func (v view) ChainBetween(source model.ReplicaID, lo, hi uint64) []*model.Record {
	return v.s.chainBetween(source, lo, hi)
}

func (v view) Rounds(source model.ReplicaID) []uint64 {
	return v.s.rounds(source)
}

func (v view) HighestRound() uint64 {
	return v.s.highestRound
}
