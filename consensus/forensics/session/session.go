package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/onflow/hotstuff-forensics/consensus/forensics"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/certstore"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/codec"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/detector"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/module"
	"github.com/onflow/hotstuff-forensics/module/metrics"
)

// State of a forensic session.
type State int32

const (
	// Watching: no conflict proven yet, detectors run on every batch.
	Watching State = iota
	// Detected: a conflict event was emitted. Terminal.
	Detected
)

func (s State) String() string {
	switch s {
	case Watching:
		return "watching"
	case Detected:
		return "detected"
	default:
		return "unknown"
	}
}

// Session is one forensic analysis run. It ingests certificate records in
// batches, keeps them in an append-only certificate store, runs the configured
// detectors after every batch and emits at most one conflict event.
//
// Ingest may be called concurrently; batches are evaluated one at a time.
type Session struct {
	log      zerolog.Logger
	id       uuid.UUID
	cfg      Config
	consumer forensics.Consumer
	metrics  module.ForensicsMetrics

	store  *certstore.Store
	within *detector.WithinView
	across *detector.AcrossView

	mu           sync.Mutex // serializes batch evaluation
	state        *atomic.Int32
	event        *model.ConflictEvent
	inconclusive *atomic.Bool
	rejected     map[rejectedConflict]struct{}
	window       *window
}

// rejectedConflict identifies a conflict whose attribution failed, so that it is
// reported once rather than on every batch.
type rejectedConflict struct {
	kind   model.ConflictKind
	first  model.CertificateKey
	second model.CertificateKey
}

// New creates a session in state Watching with an empty certificate store.
// Returns a model.ConfigurationError if the configuration is invalid.
func New(log zerolog.Logger, cfg Config, consumer forensics.Consumer, collector module.ForensicsMetrics) (*Session, error) {
	err := cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	store, err := certstore.New(cfg.Quorum)
	if err != nil {
		return nil, fmt.Errorf("could not create certificate store: %w", err)
	}

	id := uuid.New()
	s := &Session{
		log: log.With().
			Str("component", "forensic_session").
			Str("session_id", id.String()).
			Logger(),
		id:           id,
		cfg:          cfg,
		consumer:     consumer,
		metrics:      collector,
		store:        store,
		within:       detector.NewWithinView(cfg.VantageA, cfg.VantageB),
		across:       detector.NewAcrossView(cfg.VantageA, cfg.VantageB),
		state:        atomic.NewInt32(int32(Watching)),
		inconclusive: atomic.NewBool(false),
		rejected:     make(map[rejectedConflict]struct{}),
		window:       newWindow(cfg.WindowSize, cfg.Replicas),
	}
	s.metrics.SessionDetected(false)

	s.log.Info().
		Uint("quorum", cfg.Quorum).
		Uint64("epoch", cfg.Epoch).
		Str("vantage_a", string(cfg.VantageA)).
		Str("vantage_b", string(cfg.VantageB)).
		Str("mode", cfg.Mode.String()).
		Msg("forensic session started")

	return s, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Config() Config { return s.cfg }

// State returns the current state of the session.
func (s *Session) State() State { return State(s.state.Load()) }

// Store returns the certificate store of the session.
func (s *Session) Store() *certstore.Store { return s.store }

// Inconclusive reports whether across-view detection gave up on an inconsistent window.
func (s *Session) Inconclusive() bool { return s.inconclusive.Load() }

// Event returns the emitted conflict event, or nil while the session is Watching.
func (s *Session) Event() *model.ConflictEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.event
}

// Recent returns the summaries of the most recent rounds, ascending by round.
func (s *Session) Recent() []model.RoundSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.snapshot()
}

// IngestRaw normalizes raw certificates reported by the given replica and ingests
// them as one batch. Blobs that cannot be parsed are logged and dropped.
// The returned error aggregates the diagnostics of the batch; it never aborts ingestion.
func (s *Session) IngestRaw(source model.ReplicaID, blobs ...[]byte) error {
	records := make([]*model.Record, 0, len(blobs))
	for _, blob := range blobs {
		rec, err := codec.NormalizeFrom(source, blob)
		if err != nil {
			s.log.Warn().Err(err).Str("source", string(source)).Msg("dropping unparsable certificate")
			s.metrics.RecordRejected(metrics.ReasonParseError)
			continue
		}
		records = append(records, rec)
	}
	return s.Ingest(records...)
}

// Ingest feeds one batch of records into the certificate store and, while the
// session is Watching, re-evaluates the configured detectors.
//
// Per-record problems (below quorum, conflicting duplicates) and detection
// diagnostics (epoch mismatch, empty attribution, inconsistent across-view window)
// do not stop ingestion. They are logged, forwarded to the consumer and returned
// aggregated in a *multierror.Error.
func (s *Session) Ingest(records ...*model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error
	touched := make(map[uint64]struct{})
	for _, rec := range records {
		err := s.insert(rec)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		touched[rec.Round] = struct{}{}
	}
	s.metrics.HighestRound(s.store.HighestRound())

	if len(touched) == 0 || s.State() == Detected {
		return result.ErrorOrNil()
	}

	err := s.detect(touched)
	if err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// insert adds one record to the store and updates the rolling window.
func (s *Session) insert(rec *model.Record) error {
	log := s.log.With().
		Str("source", string(rec.Source)).
		Uint64("round", rec.Round).
		Str("proposed_id", string(rec.ProposedID)).
		Logger()

	if rec.Epoch != s.cfg.Epoch {
		log.Debug().Uint64("epoch", rec.Epoch).Msg("dropping certificate of another epoch")
		s.metrics.RecordRejected(metrics.ReasonOtherEpoch)
		return nil
	}

	status, err := s.store.Insert(rec)
	if err != nil {
		if model.IsQuorumNotReachedError(err) {
			log.Warn().Err(err).Msg("rejecting certificate below quorum")
			s.metrics.RecordRejected(metrics.ReasonBelowQuorum)
			return err
		}
		if dup, ok := model.AsConflictingDuplicateError(err); ok {
			log.Warn().Err(err).Msg("conflicting duplicate certificate")
			s.metrics.RecordRejected(metrics.ReasonConflictingDuplicate)
			s.consumer.OnConflictingDuplicate(*dup)
			return err
		}
		return fmt.Errorf("could not insert certificate: %w", err)
	}
	s.metrics.RecordIngested(string(rec.Source), status.String())
	if status == certstore.DuplicateIgnored {
		log.Debug().Msg("duplicate certificate ignored")
		return nil
	}

	summary := s.window.observe(rec)
	if summary != nil {
		s.consumer.OnRoundSummary(copySummary(summary))
	}
	return nil
}

// detect runs the configured detectors against a consistent view of the store.
// On the first attributed conflict, it emits the event and moves to Detected.
// A within-view conflict that cannot be attributed does not keep the across-view
// detector from running on the same batch.
func (s *Session) detect(touched map[uint64]struct{}) error {
	start := time.Now()
	defer func() { s.metrics.DetectionDuration(time.Since(start)) }()

	var candidates []*model.Conflict
	var diagnostics *multierror.Error
	err := s.store.Read(func(reader certstore.Reader) error {
		if s.cfg.Mode.withinView() {
			rounds := make([]uint64, 0, len(touched))
			for round := range touched {
				rounds = append(rounds, round)
			}
			found, err := s.within.Scan(reader, rounds)
			if err != nil {
				diagnostics = multierror.Append(diagnostics, s.onDetectionError(err))
			}
			if found != nil && !s.isRejected(found) {
				candidates = append(candidates, found)
				if _, err := detector.Attribute(found); err == nil {
					return nil
				}
			}
		}
		if s.cfg.Mode.acrossView() && !s.inconclusive.Load() {
			found, err := s.across.Check(reader)
			if err != nil {
				diagnostics = multierror.Append(diagnostics, s.onDetectionError(err))
			}
			if found != nil {
				candidates = append(candidates, found)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not evaluate detectors: %w", err)
	}

	for _, conflict := range candidates {
		err = s.emit(conflict)
		if err != nil {
			diagnostics = multierror.Append(diagnostics, err)
		}
		if s.State() == Detected {
			break
		}
	}
	return diagnostics.ErrorOrNil()
}

// onDetectionError reports a detector error and returns it for aggregation.
func (s *Session) onDetectionError(err error) error {
	var mismatch model.EpochMismatchError
	if errors.As(err, &mismatch) {
		s.log.Warn().Err(err).Msg("comparison aborted: epoch mismatch")
		s.metrics.DiagnosticRaised(metrics.DiagnosticEpochMismatch)
		s.consumer.OnEpochMismatch(mismatch)
		return err
	}
	var window model.InconsistentWindowError
	if errors.As(err, &window) {
		s.log.Error().Err(err).
			Uint64("commit1", window.Commit1).
			Uint64("prepare", window.Prepare).
			Msg("across-view analysis inconclusive, disabling across-view detection")
		s.inconclusive.Store(true)
		s.metrics.DiagnosticRaised(metrics.DiagnosticInconsistentWindow)
		s.consumer.OnAnalysisInconclusive(window)
		return err
	}
	s.log.Error().Err(err).Msg("unexpected detector failure")
	return err
}

// emit attributes the conflict and, on success, publishes the single event of
// this session.
func (s *Session) emit(conflict *model.Conflict) error {
	if s.isRejected(conflict) {
		return nil
	}
	key := rejectionKey(conflict)

	culprits, err := detector.Attribute(conflict)
	if err != nil {
		s.rejected[key] = struct{}{}
		var empty model.AttributionEmptyError
		if errors.As(err, &empty) {
			s.log.Error().Err(err).
				Str("kind", conflict.Kind.String()).
				Str("first", conflict.First.String()).
				Str("second", conflict.Second.String()).
				Msg("CONFLICT WITHOUT CULPRITS: quorum threshold misconfigured or pair not conflicting")
			s.metrics.DiagnosticRaised(metrics.DiagnosticAttributionEmpty)
			s.consumer.OnAttributionEmpty(empty)
			return err
		}
		return s.onDetectionError(err)
	}

	s.event = model.NewConflictEvent(s.id, conflict, culprits, time.Now().UTC())
	s.state.Store(int32(Detected))

	s.log.Warn().
		Str("kind", conflict.Kind.String()).
		Uint64("round", s.event.Round).
		Uint64("lower_round", s.event.LowerRound).
		Uint64("upper_round", s.event.UpperRound).
		Strs("culprits", culprits.Strings()).
		Msg("safety violation detected")
	s.metrics.ConflictDetected(conflict.Kind.String())
	s.metrics.SessionDetected(true)
	s.consumer.OnConflictDetected(s.event)
	return nil
}

func (s *Session) isRejected(conflict *model.Conflict) bool {
	_, ok := s.rejected[rejectionKey(conflict)]
	return ok
}

func rejectionKey(conflict *model.Conflict) rejectedConflict {
	return rejectedConflict{kind: conflict.Kind, first: conflict.First.Key(), second: conflict.Second.Key()}
}

// Close ends the session. The store is append-only and holds no external
// resources, so a session may be closed between any two batches.
func (s *Session) Close() {
	s.log.Info().
		Str("state", s.State().String()).
		Int("certificates", s.store.Size()).
		Uint64("highest_round", s.store.HighestRound()).
		Msg("forensic session closed")
}

func copySummary(s *model.RoundSummary) model.RoundSummary {
	blocks := make(map[model.ReplicaID]string, len(s.Blocks))
	for replica, label := range s.Blocks {
		blocks[replica] = label
	}
	return model.RoundSummary{Round: s.Round, Blocks: blocks}
}
