package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/source"
)

var (
	flagEndpoints []string
	pollerConfig  = source.DefaultRPCPollerConfig()
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the forensic JSON-RPC API of live replicas",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&flagEndpoints, "endpoint", nil, "replica endpoint as replica=url, repeatable; the first endpoint provides the latest round")
	_ = watchCmd.MarkFlagRequired("endpoint")
	watchCmd.Flags().DurationVar(&pollerConfig.Interval, "interval", pollerConfig.Interval, "interval between two polls")
	watchCmd.Flags().Uint64Var(&pollerConfig.LookBack, "look-back", pollerConfig.LookBack, "number of most recent rounds requested on every poll")
	watchCmd.Flags().DurationVar(&pollerConfig.RequestTimeout, "request-timeout", pollerConfig.RequestTimeout, "timeout of one request")
	watchCmd.Flags().Uint64Var(&pollerConfig.MaxAttempts, "max-attempts", pollerConfig.MaxAttempts, "attempts of one request before the poll fails")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	endpoints := make([]source.Endpoint, 0, len(flagEndpoints))
	for _, e := range flagEndpoints {
		endpoint, err := source.ParseEndpoint(e)
		if err != nil {
			return err
		}
		endpoints = append(endpoints, endpoint)
	}

	return runSession(cmd, func(ctx context.Context, rt *runtime) error {
		poller, err := source.NewRPCPoller(rt.log, rt.session, rt.sourceMetrics, endpoints, pollerConfig)
		if err != nil {
			return err
		}
		return poller.Run(ctx)
	})
}
