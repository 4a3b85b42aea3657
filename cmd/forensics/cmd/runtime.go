package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/notifications"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/notifications/pubsub"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/persister"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/session"
	"github.com/onflow/hotstuff-forensics/engine/forensics/rest"
	"github.com/onflow/hotstuff-forensics/module"
	"github.com/onflow/hotstuff-forensics/module/irrecoverable"
	"github.com/onflow/hotstuff-forensics/module/metrics"
	"github.com/onflow/hotstuff-forensics/storage"
	bstorage "github.com/onflow/hotstuff-forensics/storage/badger"
)

// runtime wires a forensic session with its consumers, storage and servers.
type runtime struct {
	log           zerolog.Logger
	session       *session.Session
	db            *badger.DB
	events        storage.ConflictEvents
	registry      *prometheus.Registry
	sourceMetrics module.SourceMetrics
}

func newRuntime(ctx irrecoverable.SignalerContext, log zerolog.Logger, v *viper.Viper) (*runtime, error) {
	cfg, err := sessionConfig(v)
	if err != nil {
		return nil, err
	}

	rt := &runtime{log: log}

	var (
		forensicsMetrics module.ForensicsMetrics = metrics.NewNoopCollector()
		sourceMetrics    module.SourceMetrics    = metrics.NewNoopCollector()
	)
	if v.GetUint(keyMetricsPort) > 0 {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(collectors.NewGoCollector())
		forensicsMetrics = metrics.NewForensicsCollector(rt.registry)
		sourceMetrics = metrics.NewSourceCollector(rt.registry)
	}
	rt.sourceMetrics = sourceMetrics

	distributor := pubsub.NewDistributor()
	distributor.AddConsumer(notifications.NewLogConsumer(log))

	rt.session, err = session.New(log, cfg, distributor, forensicsMetrics)
	if err != nil {
		return nil, err
	}

	dir := v.GetString(keyDatadir)
	if dir != "" {
		rt.db, err = openDB(dir)
		if err != nil {
			return nil, err
		}
		rt.events = bstorage.NewConflictEvents(rt.db)
		p := persister.New(log, ctx, rt.session.ID(), rt.events, bstorage.NewRoundSummaries(rt.db))
		distributor.AddConflictConsumer(p)
		distributor.AddRoundConsumer(p)
	}

	return rt, nil
}

func openDB(dir string) (*badger.DB, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	return db, nil
}

// serve starts the enabled servers and stops them once the context is done.
func (rt *runtime) serve(ctx context.Context, group *errgroup.Group, v *viper.Viper) {
	if rt.registry != nil {
		server := metrics.NewServer(rt.log, v.GetUint(keyMetricsPort), rt.registry)
		<-server.Ready()
		group.Go(func() error {
			<-ctx.Done()
			<-server.Done()
			return nil
		})
	}

	addr := v.GetString(keyHTTPAddr)
	if addr == "" {
		return
	}
	server := rest.NewServer(rt.log, addr, rt.session, rt.events)
	group.Go(func() error {
		rt.log.Info().Str("address", addr).Msg("status api started")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status api failed: %w", err)
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

// report prints the verdict of the session.
func (rt *runtime) report(out io.Writer) {
	event := rt.session.Event()
	if event == nil {
		fmt.Fprintf(out, "no conflict detected (highest round %d, %d certificates)\n",
			rt.session.Store().HighestRound(), rt.session.Store().Size())
		if rt.session.Inconclusive() {
			fmt.Fprintln(out, "across-view analysis was inconclusive")
		}
		return
	}
	fmt.Fprintf(out, "CONFLICT %s at round %d\n", event.Kind, event.Round)
	fmt.Fprintf(out, "  culprits: %v\n", event.Culprits)
	fmt.Fprintf(out, "  first:    %v\n", event.First)
	fmt.Fprintf(out, "  second:   %v\n", event.Second)
}

func (rt *runtime) close() {
	rt.session.Close()
	if rt.db != nil {
		err := rt.db.Close()
		if err != nil {
			rt.log.Error().Err(err).Msg("could not close database")
		}
	}
}

// runSession runs drive against a fresh session until drive returns, the
// process is interrupted or an irrecoverable error is thrown.
func runSession(cmd *cobra.Command, drive func(ctx context.Context, rt *runtime) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalerCtx, errCh := irrecoverable.WithSignaler(ctx)
	rt, err := newRuntime(signalerCtx, log, viper.GetViper())
	if err != nil {
		return err
	}
	defer rt.close()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		select {
		case err := <-errCh:
			return fmt.Errorf("irrecoverable error: %w", err)
		case <-groupCtx.Done():
			return nil
		}
	})
	rt.serve(groupCtx, group, viper.GetViper())
	group.Go(func() error {
		defer cancel()
		return drive(groupCtx, rt)
	})

	err = group.Wait()
	rt.report(cmd.OutOrStdout())
	return err
}
