package persister

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/notifications/pubsub"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/session"
	"github.com/onflow/hotstuff-forensics/module/irrecoverable"
	"github.com/onflow/hotstuff-forensics/module/metrics"
	"github.com/onflow/hotstuff-forensics/storage"
	bstorage "github.com/onflow/hotstuff-forensics/storage/badger"
	"github.com/onflow/hotstuff-forensics/utils/unittest"
)

// TestPersister_Session checks that a session wired to the persister leaves its
// verdict and its round summaries in the database.
func TestPersister_Session(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		events := bstorage.NewConflictEvents(db)
		summaries := bstorage.NewRoundSummaries(db)
		ctx := irrecoverable.NewMockSignalerContext(t, context.Background())

		distributor := pubsub.NewDistributor()
		s, err := session.New(unittest.Logger(), session.Config{
			Quorum:   3,
			Epoch:    1,
			VantageA: unittest.VantageA,
			VantageB: unittest.VantageB,
			Mode:     session.ModeAcrossView,
		}, distributor, metrics.NewNoopCollector())
		require.NoError(t, err)

		p := New(unittest.Logger(), ctx, s.ID(), events, summaries)
		distributor.AddConflictConsumer(p)
		distributor.AddRoundConsumer(p)

		a, b := unittest.AcrossViewFixture()
		require.NoError(t, s.Ingest(a...))
		require.NoError(t, s.Ingest(b...))
		require.Equal(t, session.Detected, s.State())

		stored, err := bstorage.NewConflictEvents(db).ByID(s.ID())
		require.NoError(t, err)
		assert.Equal(t, s.Event().Culprits, stored.Culprits)
		assert.Equal(t, uint64(6), stored.Round)
		assert.True(t, s.Event().DetectedAt.Equal(stored.DetectedAt))

		persisted, err := summaries.ByRange(s.ID(), 0, 10)
		require.NoError(t, err)
		require.Len(t, persisted, 5)
		assert.Equal(t, s.Recent(), persisted[2:])
	})
}

// TestPersister_Throws checks that a failed write is escalated to the signaler.
func TestPersister_Throws(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		events := bstorage.NewConflictEvents(db)
		ctx, errCh := irrecoverable.WithSignaler(context.Background())
		sessionID := uuid.New()
		p := New(unittest.Logger(), ctx, sessionID, events, bstorage.NewRoundSummaries(db))

		rec := unittest.RecordFixture()
		conflict := &model.Conflict{Kind: model.WithinView, Round: 1, First: rec, Second: rec.WithSource(unittest.VantageB)}
		event := model.NewConflictEvent(sessionID, conflict, rec.Signers(), time.Now().UTC())
		require.NoError(t, events.Store(event))

		// Throw terminates the calling goroutine
		go p.OnConflictDetected(event)

		select {
		case err := <-errCh:
			assert.True(t, errors.Is(err, storage.ErrAlreadyExists))
			var exception irrecoverable.Exception
			assert.ErrorAs(t, err, &exception)
		case <-time.After(5 * time.Second):
			t.Fatal("persister did not throw")
		}
	})
}
