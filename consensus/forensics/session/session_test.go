package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/codec"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/mocks"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/module/metrics"
	"github.com/onflow/hotstuff-forensics/utils/unittest"
)

func TestSession(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

type SessionTestSuite struct {
	suite.Suite

	replicas []model.ReplicaID
	cfg      Config
	consumer *mocks.Consumer
	session  *Session
	events   []*model.ConflictEvent
}

func (s *SessionTestSuite) SetupTest() {
	s.replicas = unittest.ReplicaIDs(6)
	s.cfg = Config{
		Quorum:   3,
		Epoch:    1,
		VantageA: unittest.VantageA,
		VantageB: unittest.VantageB,
		Mode:     ModeBoth,
	}
	s.events = nil
	s.consumer = mocks.NewConsumer(s.T())
	s.consumer.On("OnRoundSummary", mock.Anything).Maybe()
	s.consumer.On("OnConflictDetected", mock.Anything).Run(func(args mock.Arguments) {
		s.events = append(s.events, args.Get(0).(*model.ConflictEvent))
	}).Maybe()
	s.start()
}

func (s *SessionTestSuite) start() {
	var err error
	s.session, err = New(unittest.Logger(), s.cfg, s.consumer, metrics.NewNoopCollector())
	require.NoError(s.T(), err)
	require.Equal(s.T(), Watching, s.session.State())
}

func (s *SessionTestSuite) TearDownTest() {
	s.session.Close()
}

// TestNoConflict checks that agreeing histories never produce an event.
func (s *SessionTestSuite) TestNoConflict() {
	signers := s.replicas[:3]
	require.NoError(s.T(), s.session.Ingest(unittest.ChainFixture(unittest.VantageA, 1, 10, signers...)...))
	require.NoError(s.T(), s.session.Ingest(unittest.ChainFixture(unittest.VantageB, 1, 10, signers...)...))

	require.Equal(s.T(), Watching, s.session.State())
	require.Nil(s.T(), s.session.Event())
	require.Empty(s.T(), s.events)
	require.Equal(s.T(), 10, s.session.Store().Size())
	require.Equal(s.T(), uint64(10), s.session.Store().HighestRound())
}

// TestWithinView checks detection and attribution of two certified blocks in round 7.
func (s *SessionTestSuite) TestWithinView() {
	a, b := s.withinViewFixture()
	require.NoError(s.T(), s.session.Ingest(a...))
	require.Equal(s.T(), Watching, s.session.State())
	require.NoError(s.T(), s.session.Ingest(b...))

	require.Equal(s.T(), Detected, s.session.State())
	require.Len(s.T(), s.events, 1)
	event := s.session.Event()
	require.Equal(s.T(), s.events[0], event)
	require.Equal(s.T(), s.session.ID(), event.SessionID)
	require.Equal(s.T(), model.WithinView, event.Kind)
	require.Equal(s.T(), uint64(7), event.Round)
	require.Equal(s.T(), []string{"n1", "n2"}, event.Culprits.Strings())
	require.Equal(s.T(), model.BlockID("aaa111"), event.First.ProposedID)
	require.Equal(s.T(), model.BlockID("bbb222"), event.Second.ProposedID)
	require.WithinDuration(s.T(), time.Now(), event.DetectedAt, time.Minute)
}

// TestAcrossView checks the across-view verdict on the forked fixture.
func (s *SessionTestSuite) TestAcrossView() {
	s.cfg.Mode = ModeAcrossView
	s.start()

	a, b := unittest.AcrossViewFixture()
	require.NoError(s.T(), s.session.Ingest(a...))
	require.Equal(s.T(), Watching, s.session.State())
	require.NoError(s.T(), s.session.Ingest(b...))

	require.Equal(s.T(), Detected, s.session.State())
	require.Len(s.T(), s.events, 1)
	event := s.events[0]
	require.Equal(s.T(), model.AcrossView, event.Kind)
	require.Equal(s.T(), uint64(6), event.Round)
	require.Equal(s.T(), uint64(3), event.LowerRound)
	require.Equal(s.T(), uint64(4), event.PrepareRound)
	require.Equal(s.T(), uint64(6), event.UpperRound)
	require.Equal(s.T(), uint64(3), event.First.Round)
	require.Equal(s.T(), uint64(4), event.Second.Round)
	require.Equal(s.T(), []string{"n1", "n2"}, event.Culprits.Strings())
}

// TestAcrossView_LateRound checks that agreeing histories with a round
// delivered one batch late neither produce an event nor disable across-view detection.
func (s *SessionTestSuite) TestAcrossView_LateRound() {
	s.cfg.Mode = ModeAcrossView
	s.start()

	signers := s.replicas[:3]
	a := unittest.ChainFixture(unittest.VantageA, 1, 10, signers...)
	b := unittest.ChainFixture(unittest.VantageB, 1, 10, signers...)
	early := append(append(a[:3:3], a[4:]...), append(b[:3:3], b[4:]...)...)

	require.NoError(s.T(), s.session.Ingest(early...))
	require.False(s.T(), s.session.Inconclusive())
	require.NoError(s.T(), s.session.Ingest(a[3], b[3]))
	require.False(s.T(), s.session.Inconclusive())
	require.Equal(s.T(), Watching, s.session.State())
	require.Empty(s.T(), s.events)
}

// TestAcrossView_OutOfOrder checks that the verdict is pinned at the same rounds
// when B's round 4 certificate arrives after its round 5 certificate.
func (s *SessionTestSuite) TestAcrossView_OutOfOrder() {
	s.cfg.Mode = ModeAcrossView
	s.start()

	a, b := unittest.AcrossViewFixture()
	require.NoError(s.T(), s.session.Ingest(a...))
	require.NoError(s.T(), s.session.Ingest(b[0], b[1], b[2], b[4]))
	require.Equal(s.T(), Watching, s.session.State())
	require.NoError(s.T(), s.session.Ingest(b[3]))

	require.Equal(s.T(), Detected, s.session.State())
	require.Len(s.T(), s.events, 1)
	event := s.events[0]
	require.Equal(s.T(), model.AcrossView, event.Kind)
	require.Equal(s.T(), uint64(3), event.LowerRound)
	require.Equal(s.T(), uint64(4), event.PrepareRound)
	require.Equal(s.T(), uint64(6), event.UpperRound)
	require.Equal(s.T(), uint64(4), event.Second.Round)
	require.Equal(s.T(), []string{"n1", "n2"}, event.Culprits.Strings())
}

// TestAcrossViewAfterUnattributedWithinView checks that a within-view conflict
// without culprits does not hide an across-view conflict completed by the same batch.
func (s *SessionTestSuite) TestAcrossViewAfterUnattributedWithinView() {
	a, b := unittest.AcrossViewFixture()
	// A's round 4 certificate is signed by replicas disjoint from B's branch
	a[3] = unittest.CanonicalRecord(unittest.VantageA, 4, s.replicas[0], s.replicas[4], s.replicas[5])
	s.consumer.On("OnAttributionEmpty", mock.Anything).Once()

	err := s.session.Ingest(append(a, b[0], b[1], b[3])...)
	require.True(s.T(), model.IsAttributionEmptyError(err))
	require.Equal(s.T(), Watching, s.session.State())

	// the last batch completes the across-view window and touches round 4 again
	require.NoError(s.T(), s.session.Ingest(b[2], b[3]))

	require.Equal(s.T(), Detected, s.session.State())
	require.Len(s.T(), s.events, 1)
	require.Equal(s.T(), model.AcrossView, s.events[0].Kind)
	require.Equal(s.T(), uint64(3), s.events[0].LowerRound)
	require.Equal(s.T(), []string{"n1", "n2"}, s.events[0].Culprits.Strings())
}

// TestBothModes_WithinViewFirst checks that the within-view detector takes
// precedence when both could fire on the same batch.
func (s *SessionTestSuite) TestBothModes_WithinViewFirst() {
	a, b := unittest.AcrossViewFixture()
	require.NoError(s.T(), s.session.Ingest(a...))
	require.NoError(s.T(), s.session.Ingest(b...))

	require.Len(s.T(), s.events, 1)
	require.Equal(s.T(), model.WithinView, s.events[0].Kind)
	require.Equal(s.T(), uint64(4), s.events[0].Round)
	require.Equal(s.T(), []string{"n1", "n2"}, s.events[0].Culprits.Strings())
}

// TestWithinViewOnly checks that the across-view detector is not run.
func (s *SessionTestSuite) TestWithinViewOnly() {
	s.cfg.Mode = ModeWithinView
	s.start()

	signers := s.replicas[:3]
	a := unittest.ChainFixture(unittest.VantageA, 1, 5, signers...)
	b := unittest.ChainFixture(unittest.VantageB, 1, 3, signers...)
	// B's round 6 certificate skips A's locked rounds
	b = append(b, unittest.RecordFixture(
		unittest.WithSource(unittest.VantageB),
		unittest.WithRound(6),
		unittest.WithParent(2, unittest.BlockIDFixture(2)),
		unittest.WithCommit(6, "abc"),
		unittest.WithSigners(signers...),
	))
	require.NoError(s.T(), s.session.Ingest(a...))
	require.NoError(s.T(), s.session.Ingest(b...))
	require.Equal(s.T(), Watching, s.session.State())
}

// TestSingleEvent checks that the session stays Detected and never emits again.
func (s *SessionTestSuite) TestSingleEvent() {
	a, b := s.withinViewFixture()
	require.NoError(s.T(), s.session.Ingest(append(a, b...)...))
	require.Equal(s.T(), Detected, s.session.State())
	first := s.session.Event()

	// a second conflict in a later round
	signers := s.replicas[:3]
	require.NoError(s.T(), s.session.Ingest(
		unittest.RecordFixture(unittest.WithRound(9), unittest.WithSigners(signers...)),
		unittest.RecordFixture(unittest.WithRound(9), unittest.WithSigners(signers...), unittest.WithSource(unittest.VantageB)),
	))

	require.Equal(s.T(), Detected, s.session.State())
	require.Len(s.T(), s.events, 1)
	require.Same(s.T(), first, s.session.Event())
	require.Equal(s.T(), uint64(9), s.session.Store().HighestRound())
}

// TestConcurrentIngest checks that concurrent batches from both vantage points
// produce exactly one event.
func (s *SessionTestSuite) TestConcurrentIngest() {
	a, b := s.withinViewFixture()
	var wg sync.WaitGroup
	for _, history := range [][]*model.Record{a, b} {
		for _, rec := range history {
			wg.Add(1)
			go func(rec *model.Record) {
				defer wg.Done()
				_ = s.session.Ingest(rec)
			}(rec)
		}
	}
	unittest.RequireReturnsBefore(s.T(), wg.Wait, 5*time.Second, "ingestion did not finish")

	require.Equal(s.T(), Detected, s.session.State())
	require.Len(s.T(), s.events, 1)
	require.Equal(s.T(), uint64(7), s.events[0].Round)
}

// TestRejectedRecords checks that invalid records are dropped without stopping ingestion.
func (s *SessionTestSuite) TestRejectedRecords() {
	s.Run("below quorum", func() {
		rec := unittest.RecordFixture(unittest.WithRound(2), unittest.WithSigners(s.replicas[:2]...))
		err := s.session.Ingest(rec, unittest.CanonicalRecord(unittest.VantageA, 3, s.replicas[:3]...))
		require.True(s.T(), model.IsQuorumNotReachedError(err))
		_, ok := s.session.Store().LookupByRound(unittest.VantageA, 3)
		require.True(s.T(), ok)
	})

	s.Run("other epoch", func() {
		rec := unittest.RecordFixture(unittest.WithRound(4), unittest.WithEpoch(2))
		require.NoError(s.T(), s.session.Ingest(rec))
		_, ok := s.session.Store().LookupByRound(unittest.VantageA, 4)
		require.False(s.T(), ok)
	})

	s.Run("conflicting duplicate", func() {
		rec := unittest.RecordFixture(unittest.WithRound(3))
		s.consumer.On("OnConflictingDuplicate", mock.Anything).Run(func(args mock.Arguments) {
			dup := args.Get(0).(model.ConflictingDuplicateError)
			require.Equal(s.T(), rec.ProposedID, dup.Rejected.ProposedID)
		}).Once()
		err := s.session.Ingest(rec)
		require.True(s.T(), model.IsConflictingDuplicateError(err))
	})

	s.Run("unparsable blobs", func() {
		raw, err := codec.EncodeJSON(unittest.CanonicalRecord(unittest.VantageB, 5, s.replicas[:3]...))
		require.NoError(s.T(), err)
		require.NoError(s.T(), s.session.IngestRaw(unittest.VantageB, []byte("{not json"), raw, nil))
		stored, ok := s.session.Store().LookupByRound(unittest.VantageB, 5)
		require.True(s.T(), ok)
		require.Equal(s.T(), unittest.VantageB, stored.Source)
	})

	require.Equal(s.T(), Watching, s.session.State())
}

// TestAttributionEmpty checks that a conflict between disjoint signer sets is
// reported once and does not end the session.
func (s *SessionTestSuite) TestAttributionEmpty() {
	a := unittest.RecordFixture(unittest.WithRound(2), unittest.WithSigners(s.replicas[0:3]...))
	b := unittest.RecordFixture(unittest.WithRound(2), unittest.WithSigners(s.replicas[3:6]...), unittest.WithSource(unittest.VantageB))
	s.consumer.On("OnAttributionEmpty", mock.Anything).Once()

	err := s.session.Ingest(a, b)
	require.True(s.T(), model.IsAttributionEmptyError(err))
	require.Equal(s.T(), Watching, s.session.State())

	// re-evaluating the same round does not report it again
	require.NoError(s.T(), s.session.Ingest(b))
	require.Equal(s.T(), Watching, s.session.State())
	require.Empty(s.T(), s.events)
}

// TestInconclusive checks that an inconsistent window disables across-view
// detection and is reported once.
func (s *SessionTestSuite) TestInconclusive() {
	s.cfg.Mode = ModeAcrossView
	s.start()

	signers := s.replicas[:3]
	a := unittest.ChainFixture(unittest.VantageA, 1, 5, signers...)
	b := unittest.ChainFixture(unittest.VantageB, 1, 3, signers...)
	b = append(b, unittest.RecordFixture(
		unittest.WithSource(unittest.VantageB),
		unittest.WithRound(4),
		unittest.WithProposedID(unittest.ForkedBlockID(4)),
		unittest.WithParent(3, unittest.BlockIDFixture(3)),
		unittest.WithCommit(5, unittest.ForkedBlockID(4)),
		unittest.WithSigners(signers...),
	))
	s.consumer.On("OnAnalysisInconclusive", model.InconsistentWindowError{Commit1: 3, Prepare: 4}).Once()

	require.NoError(s.T(), s.session.Ingest(a...))
	err := s.session.Ingest(b...)
	require.True(s.T(), model.IsInconsistentWindowError(err))
	require.True(s.T(), s.session.Inconclusive())

	require.NoError(s.T(), s.session.Ingest(unittest.CanonicalRecord(unittest.VantageA, 6, signers...)))
	require.Equal(s.T(), Watching, s.session.State())
}

// TestEpochMismatch checks that certificates of a foreign epoch that slipped
// into the store abort the comparison instead of producing a conflict.
func (s *SessionTestSuite) TestEpochMismatch() {
	a := unittest.RecordFixture(unittest.WithRound(2))
	b := unittest.RecordFixture(unittest.WithRound(2), unittest.WithEpoch(2), unittest.WithSource(unittest.VantageB))
	_, err := s.session.Store().Insert(b)
	require.NoError(s.T(), err)
	s.consumer.On("OnEpochMismatch", mock.Anything).Once()

	err = s.session.Ingest(a)
	require.True(s.T(), model.IsEpochMismatchError(err))
	require.Equal(s.T(), Watching, s.session.State())
}

// TestRecentRounds checks the rolling window of round summaries.
func (s *SessionTestSuite) TestRecentRounds() {
	signers := s.replicas[:3]
	require.NoError(s.T(), s.session.Ingest(unittest.ChainFixture(unittest.VantageA, 1, 5, signers...)...))
	require.NoError(s.T(), s.session.Ingest(
		unittest.CanonicalRecord(unittest.VantageB, 4, signers...),
		unittest.RecordFixture(unittest.WithRound(5), unittest.AsNilBlock(), unittest.WithSource(unittest.VantageB),
			unittest.WithProposedID("ddd444"), unittest.WithSigners(signers...)),
	))

	recent := s.session.Recent()
	require.Len(s.T(), recent, 3)
	require.Equal(s.T(), uint64(3), recent[0].Round)
	require.Equal(s.T(), uint64(5), recent[2].Round)
	require.Equal(s.T(), "000000", recent[0].Label(unittest.VantageA))
	require.Equal(s.T(), "null", recent[0].Label(unittest.VantageB))
	require.Equal(s.T(), "000000", recent[1].Label(unittest.VantageB))
	require.Equal(s.T(), model.NilBlockLabel, recent[2].Label(unittest.VantageB))

	// older rounds do not enter a full window
	require.NoError(s.T(), s.session.Ingest(unittest.CanonicalRecord(unittest.VantageB, 1, signers...)))
	require.Equal(s.T(), recent, s.session.Recent())
}

// TestRoundSummaries checks that summary updates are published to the consumer.
func (s *SessionTestSuite) TestRoundSummaries() {
	consumer := mocks.NewConsumer(s.T())
	var summaries []model.RoundSummary
	consumer.On("OnRoundSummary", mock.Anything).Run(func(args mock.Arguments) {
		summaries = append(summaries, args.Get(0).(model.RoundSummary))
	})
	session, err := New(unittest.Logger(), s.cfg, consumer, metrics.NewNoopCollector())
	require.NoError(s.T(), err)

	rec := unittest.CanonicalRecord(unittest.VantageA, 1, s.replicas[:3]...)
	require.NoError(s.T(), session.Ingest(rec, rec.WithSource(unittest.VantageB), rec.WithSource("5")))
	// duplicates do not update the window
	require.NoError(s.T(), session.Ingest(rec))

	require.Len(s.T(), summaries, 2)
	require.Equal(s.T(), map[model.ReplicaID]string{unittest.VantageA: "000000"}, summaries[0].Blocks)
	require.Equal(s.T(), map[model.ReplicaID]string{unittest.VantageA: "000000", unittest.VantageB: "000000"}, summaries[1].Blocks)
}

// withinViewFixture returns two histories agreeing on rounds 1..6 and
// certifying different blocks in round 7.
func (s *SessionTestSuite) withinViewFixture() ([]*model.Record, []*model.Record) {
	a := unittest.ChainFixture(unittest.VantageA, 1, 6, s.replicas[0:3]...)
	b := unittest.ChainFixture(unittest.VantageB, 1, 6, s.replicas[0:3]...)
	a = append(a, unittest.RecordFixture(
		unittest.WithRound(7),
		unittest.WithProposedID("aaa111"),
		unittest.WithParent(6, unittest.BlockIDFixture(6)),
		unittest.WithSigners(s.replicas[0:3]...),
	))
	b = append(b, unittest.RecordFixture(
		unittest.WithSource(unittest.VantageB),
		unittest.WithRound(7),
		unittest.WithProposedID("bbb222"),
		unittest.WithParent(6, unittest.BlockIDFixture(6)),
		unittest.WithSigners(s.replicas[1:4]...),
	))
	return a, b
}
