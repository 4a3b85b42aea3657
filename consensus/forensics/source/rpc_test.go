package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/codec"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/module/metrics"
	"github.com/onflow/hotstuff-forensics/utils/unittest"
)

// replicaServer serves the forensic JSON-RPC API of one replica from a fixed
// history of certificates.
type replicaServer struct {
	t *testing.T

	mu       sync.Mutex
	latest   uint64
	history  map[uint64]*model.Record
	requests map[uint64]int
	failures *atomic.Int32 // number of requests to fail with HTTP 503
	server   *httptest.Server
}

func newReplicaServer(t *testing.T, latest uint64, history ...*model.Record) *replicaServer {
	rs := &replicaServer{
		t:        t,
		latest:   latest,
		history:  make(map[uint64]*model.Record),
		requests: make(map[uint64]int),
		failures: atomic.NewInt32(0),
	}
	for _, rec := range history {
		rs.history[rec.Round] = rec
	}
	rs.server = httptest.NewServer(http.HandlerFunc(rs.handle))
	t.Cleanup(rs.server.Close)
	return rs
}

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

func (rs *replicaServer) handle(w http.ResponseWriter, r *http.Request) {
	if rs.failures.Load() > 0 {
		rs.failures.Dec()
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var req rpcRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	require.NoError(rs.t, err)

	rs.mu.Lock()
	defer rs.mu.Unlock()

	response := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case methodLatestRound:
		response["result"] = rs.latest
	case methodQuorumCertAtRound:
		var round uint64
		require.Len(rs.t, req.Params, 1)
		require.NoError(rs.t, json.Unmarshal(req.Params[0], &round))
		rs.requests[round]++

		entries := []map[string]interface{}{}
		if rec, ok := rs.history[round]; ok {
			raw, err := codec.EncodeJSON(rec)
			require.NoError(rs.t, err)
			var wrapped struct {
				QuorumCert json.RawMessage `json:"quorum_cert"`
			}
			require.NoError(rs.t, json.Unmarshal(raw, &wrapped))
			entries = append(entries, map[string]interface{}{"qc": wrapped.QuorumCert, "is_nil": rec.IsNil})
		}
		response["result"] = entries
	default:
		response["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	require.NoError(rs.t, json.NewEncoder(w).Encode(response))
}

func (rs *replicaServer) Requests(round uint64) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.requests[round]
}

func (rs *replicaServer) Advance(latest uint64, history ...*model.Record) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.latest = latest
	for _, rec := range history {
		rs.history[rec.Round] = rec
	}
}

// Serve makes the replica answer requests for the round with the record.
func (rs *replicaServer) Serve(round uint64, rec *model.Record) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.history[round] = rec
}

func TestRPCPoller(t *testing.T) {
	suite.Run(t, new(RPCPollerSuite))
}

type RPCPollerSuite struct {
	suite.Suite

	signers []model.ReplicaID
	a       *replicaServer
	b       *replicaServer
	sink    *recordingSink
	cfg     RPCPollerConfig
	poller  *RPCPoller
}

func (s *RPCPollerSuite) SetupTest() {
	s.signers = unittest.ReplicaIDs(3)
	s.a = newReplicaServer(s.T(), 5, unittest.ChainFixture("", 1, 5, s.signers...)...)
	// B lags behind and has not formed a certificate for round 5 yet
	s.b = newReplicaServer(s.T(), 4, unittest.ChainFixture("", 1, 4, s.signers...)...)
	s.sink = &recordingSink{}

	s.cfg = DefaultRPCPollerConfig()
	s.cfg.Interval = 10 * time.Millisecond
	s.cfg.RetryBase = time.Millisecond
	s.cfg.RetryMax = 5 * time.Millisecond

	var err error
	s.poller, err = NewRPCPoller(unittest.Logger(), s.sink, metrics.NewNoopCollector(), []Endpoint{
		{Replica: unittest.VantageA, URL: s.a.server.URL},
		{Replica: unittest.VantageB, URL: s.b.server.URL},
	}, s.cfg)
	require.NoError(s.T(), err)
}

// received returns the rounds forwarded to the sink per replica.
func (s *RPCPollerSuite) received() map[model.ReplicaID][]uint64 {
	out := make(map[model.ReplicaID][]uint64)
	for _, batch := range s.sink.Batches() {
		for _, blob := range batch.blobs {
			rec, err := codec.NormalizeFrom(batch.source, blob)
			require.NoError(s.T(), err)
			out[batch.source] = append(out[batch.source], rec.Round)
		}
	}
	return out
}

// TestPoll checks that one poll fetches the look-back window of every replica.
func (s *RPCPollerSuite) TestPoll() {
	require.NoError(s.T(), s.poller.Poll(context.Background()))
	require.Equal(s.T(), uint64(5), s.poller.LatestRound())
	require.Equal(s.T(), uint64(1), s.poller.Polls())

	received := s.received()
	require.Equal(s.T(), []uint64{3, 4, 5}, received[unittest.VantageA])
	require.Equal(s.T(), []uint64{3, 4}, received[unittest.VantageB])
}

// TestPoll_SkipsFetched checks that fetched rounds are not requested again,
// while rounds a replica could not serve yet are.
func (s *RPCPollerSuite) TestPoll_SkipsFetched() {
	require.NoError(s.T(), s.poller.Poll(context.Background()))

	s.a.Advance(6, unittest.CanonicalRecord("", 6, s.signers...))
	s.b.Advance(5, unittest.CanonicalRecord("", 5, s.signers...))
	require.NoError(s.T(), s.poller.Poll(context.Background()))

	require.Equal(s.T(), 1, s.a.Requests(4))
	require.Equal(s.T(), 1, s.a.Requests(5))
	require.Equal(s.T(), 2, s.b.Requests(5))

	received := s.received()
	require.Equal(s.T(), []uint64{3, 4, 5, 6}, received[unittest.VantageA])
	require.Equal(s.T(), []uint64{3, 4, 5}, received[unittest.VantageB])
}

// TestPoll_UnexpectedRound checks that a certificate of another round than the
// requested one is dropped and the round is requested again on the next poll.
func (s *RPCPollerSuite) TestPoll_UnexpectedRound() {
	s.b.Serve(4, unittest.CanonicalRecord("", 3, s.signers...))
	require.NoError(s.T(), s.poller.Poll(context.Background()))
	require.Equal(s.T(), []uint64{3}, s.received()[unittest.VantageB])

	s.b.Serve(4, unittest.CanonicalRecord("", 4, s.signers...))
	require.NoError(s.T(), s.poller.Poll(context.Background()))

	require.Equal(s.T(), 1, s.b.Requests(3))
	require.Equal(s.T(), 2, s.b.Requests(4))
	require.Equal(s.T(), []uint64{3, 4}, s.received()[unittest.VantageB])
}

// TestPoll_Retry checks that transient HTTP failures are retried.
func (s *RPCPollerSuite) TestPoll_Retry() {
	s.a.failures.Store(2)
	require.NoError(s.T(), s.poller.Poll(context.Background()))
	require.Equal(s.T(), uint64(5), s.poller.LatestRound())
}

// TestPoll_GivesUp checks that a replica failing every attempt fails the poll.
func (s *RPCPollerSuite) TestPoll_GivesUp() {
	s.b.failures.Store(1000)
	err := s.poller.Poll(context.Background())
	require.Error(s.T(), err)
	require.Contains(s.T(), err.Error(), "503")
	require.Equal(s.T(), uint64(0), s.poller.Polls())
}

// TestRun checks that the poller keeps polling until cancelled.
func (s *RPCPollerSuite) TestRun() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(s.T(), s.poller.Run(ctx))
	}()

	require.Eventually(s.T(), func() bool { return s.poller.Polls() >= 3 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	unittest.RequireCloseBefore(s.T(), done, 5*time.Second, "poller did not stop")
}

func TestParseEndpoint(t *testing.T) {
	endpoint, err := ParseEndpoint("0=http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, Endpoint{Replica: "0", URL: "http://localhost:8080"}, endpoint)

	for _, invalid := range []string{"", "0", "=http://localhost", "0="} {
		_, err := ParseEndpoint(invalid)
		assert.True(t, model.IsConfigurationError(err), fmt.Sprintf("input %q", invalid))
	}
}

func TestNewRPCPoller_Invalid(t *testing.T) {
	_, err := NewRPCPoller(unittest.Logger(), &recordingSink{}, metrics.NewNoopCollector(), nil, DefaultRPCPollerConfig())
	assert.True(t, model.IsConfigurationError(err))

	cfg := DefaultRPCPollerConfig()
	cfg.MaxAttempts = 0
	_, err = NewRPCPoller(unittest.Logger(), &recordingSink{}, metrics.NewNoopCollector(), []Endpoint{{Replica: "0", URL: "http://localhost"}}, cfg)
	assert.True(t, model.IsConfigurationError(err))
}
