package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/codec"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/module"
)

const (
	methodLatestRound       = "forensic_get_latest_round"
	methodQuorumCertAtRound = "forensic_get_quorum_cert_at_round"
)

// Endpoint is the forensic JSON-RPC endpoint of one replica.
type Endpoint struct {
	Replica model.ReplicaID
	URL     string
}

// ParseEndpoint parses an endpoint of the form `replica=url`.
func ParseEndpoint(s string) (Endpoint, error) {
	replica, url, ok := strings.Cut(s, "=")
	if !ok || replica == "" || url == "" {
		return Endpoint{}, model.NewConfigurationErrorf("invalid endpoint %q, expected replica=url", s)
	}
	return Endpoint{Replica: model.ReplicaID(replica), URL: url}, nil
}

// RPCPollerConfig parameterizes an RPCPoller.
type RPCPollerConfig struct {
	// Interval between two polls.
	Interval time.Duration
	// LookBack is the number of most recent rounds requested on every poll.
	LookBack uint64
	// RequestTimeout bounds one HTTP request.
	RequestTimeout time.Duration
	// RetryBase and RetryMax bound the exponential backoff of a failing request.
	RetryBase time.Duration
	RetryMax  time.Duration
	// MaxAttempts bounds the attempts of one request.
	MaxAttempts uint64
	// CacheSize is the number of (replica, round) pairs remembered as fetched.
	CacheSize int
}

func DefaultRPCPollerConfig() RPCPollerConfig {
	return RPCPollerConfig{
		Interval:       5 * time.Second,
		LookBack:       3,
		RequestTimeout: 2 * time.Second,
		RetryBase:      100 * time.Millisecond,
		RetryMax:       2 * time.Second,
		MaxAttempts:    5,
		CacheSize:      4096,
	}
}

type fetchKey struct {
	replica model.ReplicaID
	round   uint64
}

// RPCPoller polls the forensic JSON-RPC API of a set of replicas and forwards the
// certificates of the most recent rounds to a sink. The latest round is taken
// from the first endpoint. Certificates already fetched from a replica are not
// requested again; rounds a replica could not serve yet are retried on the next
// poll while they remain in the look-back window.
type RPCPoller struct {
	log       zerolog.Logger
	sink      RawSink
	metrics   module.SourceMetrics
	client    *http.Client
	endpoints []Endpoint
	cfg       RPCPollerConfig
	latest    *atomic.Uint64
	polls     *atomic.Uint64
	fetched   *lru.Cache[fetchKey, struct{}]
}

func NewRPCPoller(log zerolog.Logger, sink RawSink, collector module.SourceMetrics, endpoints []Endpoint, cfg RPCPollerConfig) (*RPCPoller, error) {
	if len(endpoints) == 0 {
		return nil, model.NewConfigurationErrorf("at least one endpoint is required")
	}
	if cfg.Interval <= 0 || cfg.RequestTimeout <= 0 || cfg.RetryBase <= 0 || cfg.MaxAttempts == 0 {
		return nil, model.NewConfigurationErrorf("invalid poller config %+v", cfg)
	}
	if cfg.LookBack == 0 {
		cfg.LookBack = 1
	}
	fetched, err := lru.New[fetchKey, struct{}](cfg.CacheSize)
	if err != nil {
		return nil, model.NewConfigurationErrorf("invalid cache size %d: %w", cfg.CacheSize, err)
	}
	return &RPCPoller{
		log:       log.With().Str("component", "rpc_poller").Logger(),
		sink:      sink,
		metrics:   collector,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		endpoints: endpoints,
		cfg:       cfg,
		latest:    atomic.NewUint64(0),
		polls:     atomic.NewUint64(0),
		fetched:   fetched,
	}, nil
}

// LatestRound returns the latest round reported by the first endpoint.
func (p *RPCPoller) LatestRound() uint64 {
	return p.latest.Load()
}

// Polls returns the number of completed polls.
func (p *RPCPoller) Polls() uint64 {
	return p.polls.Load()
}

// Run polls until the context is cancelled. A failed poll is logged and
// retried on the next tick.
func (p *RPCPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		err := p.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("poll failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one poll over all endpoints. Sink diagnostics are logged, not
// returned: they concern the certificates, not the poll.
func (p *RPCPoller) Poll(ctx context.Context) error {
	var latest uint64
	err := p.call(ctx, p.endpoints[0], methodLatestRound, []interface{}{}, &latest)
	if err != nil {
		return fmt.Errorf("could not get latest round from %s: %w", p.endpoints[0].Replica, err)
	}
	p.latest.Store(latest)

	lo := uint64(0)
	if latest >= p.cfg.LookBack {
		lo = latest - p.cfg.LookBack + 1
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, endpoint := range p.endpoints {
		endpoint := endpoint
		group.Go(func() error {
			return p.pollEndpoint(ctx, endpoint, lo, latest)
		})
	}
	err = group.Wait()
	if err != nil {
		return err
	}

	p.polls.Inc()
	p.log.Debug().Uint64("latest_round", latest).Uint64("from_round", lo).Msg("poll completed")
	return nil
}

func (p *RPCPoller) pollEndpoint(ctx context.Context, endpoint Endpoint, lo, hi uint64) error {
	var (
		blobs  [][]byte
		rounds []uint64
	)
	for round := lo; round <= hi; round++ {
		key := fetchKey{replica: endpoint.Replica, round: round}
		if p.fetched.Contains(key) {
			continue
		}

		var entries []json.RawMessage
		err := p.call(ctx, endpoint, methodQuorumCertAtRound, []uint64{round}, &entries)
		if err != nil {
			return fmt.Errorf("could not get certificate of round %d from %s: %w", round, endpoint.Replica, err)
		}
		if len(entries) == 0 {
			p.log.Debug().Str("replica", string(endpoint.Replica)).Uint64("round", round).Msg("no certificate for round yet")
			continue
		}
		matched := true
		for _, entry := range entries {
			rec, err := codec.Normalize(entry)
			if err == nil && rec.Round != round {
				p.log.Warn().
					Str("replica", string(endpoint.Replica)).
					Uint64("requested_round", round).
					Uint64("returned_round", rec.Round).
					Msg("dropping certificate of unexpected round")
				matched = false
				continue
			}
			blobs = append(blobs, entry)
		}
		// a round answered with another round's certificate is requested again
		if matched {
			rounds = append(rounds, round)
		}
	}
	if len(blobs) == 0 {
		return nil
	}

	p.metrics.SourceBlobsFetched(string(endpoint.Replica), len(blobs))
	err := p.sink.IngestRaw(endpoint.Replica, blobs...)
	if err != nil {
		p.log.Warn().Err(err).Str("replica", string(endpoint.Replica)).Msg("certificates ingested with diagnostics")
	}
	for _, round := range rounds {
		p.fetched.Add(fetchKey{replica: endpoint.Replica, round: round}, struct{}{})
	}
	return nil
}

// call performs one JSON-RPC 2.0 call, retrying transport failures with
// exponential backoff. Errors returned by the remote method are not retried.
func (p *RPCPoller) call(ctx context.Context, endpoint Endpoint, method string, params interface{}, reply interface{}) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("could not encode request: %w", err)
	}

	backoff, err := retry.NewExponential(p.cfg.RetryBase)
	if err != nil {
		return fmt.Errorf("could not create backoff: %w", err)
	}
	backoff = retry.WithCappedDuration(p.cfg.RetryMax, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(p.cfg.MaxAttempts-1, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		start := time.Now()
		err := p.post(ctx, endpoint, body, reply)
		p.metrics.SourceRequest(string(endpoint.Replica), time.Since(start), err)
		if err == nil {
			return nil
		}

		var rpcErr *json2.Error
		if errors.As(err, &rpcErr) {
			return err
		}
		p.log.Debug().Err(err).Str("replica", string(endpoint.Replica)).Str("method", method).Msg("request failed, retrying")
		return retry.RetryableError(err)
	})
}

func (p *RPCPoller) post(ctx context.Context, endpoint Endpoint, body []byte, reply interface{}) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cannot create HTTP request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := p.client.Do(request)
	if err != nil {
		return fmt.Errorf("cannot do HTTP request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status %s", response.Status)
	}
	err = json2.DecodeClientResponse(response.Body, reply)
	if err != nil {
		return fmt.Errorf("cannot decode response: %w", err)
	}
	return nil
}
