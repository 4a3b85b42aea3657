package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/onflow/hotstuff-forensics/engine/forensics/rest"
	"github.com/onflow/hotstuff-forensics/storage"
	bstorage "github.com/onflow/hotstuff-forensics/storage/badger"
)

var flagSessionID string

type inspectReport struct {
	Event  *rest.ConflictResponse `json:"event"`
	Rounds []rest.RoundResponse   `json:"rounds"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the conflict events persisted in the data directory",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&flagSessionID, "session", "", "print only the event and round summaries of this session")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	dir := viper.GetString(keyDatadir)
	if dir == "" {
		return fmt.Errorf("--%s is required", keyDatadir)
	}
	db, err := openDB(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	events := bstorage.NewConflictEvents(db)
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")

	if flagSessionID == "" {
		all, err := events.All()
		if err != nil {
			return err
		}
		log.Info().Int("events", len(all)).Msg("persisted conflict events")
		responses := make([]rest.ConflictResponse, 0, len(all))
		for _, event := range all {
			responses = append(responses, rest.NewConflictResponse(event))
		}
		return encoder.Encode(responses)
	}

	sessionID, err := uuid.Parse(flagSessionID)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	event, err := events.ByID(sessionID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("could not read conflict event of session %v: %w", sessionID, err)
	}
	summaries, err := bstorage.NewRoundSummaries(db).ByRange(sessionID, 0, math.MaxUint64)
	if err != nil {
		return err
	}
	report := inspectReport{Rounds: make([]rest.RoundResponse, 0, len(summaries))}
	if event != nil {
		conflict := rest.NewConflictResponse(event)
		report.Event = &conflict
	}
	for _, summary := range summaries {
		report.Rounds = append(report.Rounds, rest.NewRoundResponse(summary))
	}
	return encoder.Encode(report)
}
