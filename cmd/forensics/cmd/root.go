package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "FORENSICS"

var (
	flagConfig string
	log        zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "forensics",
	Short: "Detect and attribute safety violations from HotStuff quorum certificates",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "path to a YAML config file")
	flags.Uint(keyQuorum, 3, "number of signers a valid quorum certificate needs")
	flags.Uint64(keyEpoch, 1, "epoch under analysis")
	flags.String(keyVantageA, "0", "canonical vantage point (replica id)")
	flags.String(keyVantageB, "1", "vantage point compared against the canonical one")
	flags.StringSlice(keyReplicas, nil, "replicas listed in round summaries (defaults to both vantage points)")
	flags.String(keyMode, "both", "detectors to run: within, across or both")
	flags.Int(keyWindow, 3, "number of recent rounds summarized")
	flags.String(keyDatadir, "", "badger directory persisting conflict events and round summaries (disabled if empty)")
	flags.Uint(keyMetricsPort, 0, "port of the prometheus metrics server (disabled if 0)")
	flags.String(keyHTTPAddr, "", "listen address of the status API (disabled if empty)")
	flags.String(keyLogLevel, "info", "log level (trace, debug, info, warn, error)")

	err := viper.BindPFlags(flags)
	if err != nil {
		panic(fmt.Sprintf("could not bind flags: %v", err))
	}

	log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(inspectCmd)
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if flagConfig == "" {
		return
	}
	viper.SetConfigFile(flagConfig)
	err := viper.ReadInConfig()
	if err != nil {
		log.Fatal().Err(err).Str("config", flagConfig).Msg("could not read config file")
	}
}

func initLogger() error {
	level, err := zerolog.ParseLevel(viper.GetString(keyLogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log = log.Level(level)
	return nil
}
