package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/source"
)

var (
	flagLogFile   string
	flagBatchSize int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay the quorum certificates of a twins test log",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&flagLogFile, "log", "", "path to the twins test log")
	_ = replayCmd.MarkFlagRequired("log")
	replayCmd.Flags().IntVar(&flagBatchSize, "batch", source.DefaultBatchSize, "certificates forwarded per batch")
}

func runReplay(cmd *cobra.Command, _ []string) error {
	return runSession(cmd, func(ctx context.Context, rt *runtime) error {
		file, err := os.Open(flagLogFile)
		if err != nil {
			return fmt.Errorf("could not open log: %w", err)
		}
		defer file.Close()

		replay := source.NewLogReplay(rt.log, rt.session, flagBatchSize)
		stats, err := replay.Replay(ctx, file)
		if errors.Is(err, context.Canceled) {
			rt.log.Info().Int("certificates", stats.Certificates).Msg("replay interrupted")
			return nil
		}
		if err != nil {
			return err
		}
		if stats.Diagnostics != nil {
			rt.log.Warn().Err(stats.Diagnostics).Msg("replay finished with diagnostics")
		}
		return nil
	})
}
