package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// DefaultBatchSize is the number of certificates forwarded per sink call.
const DefaultBatchSize = 64

// twinsLine matches the certificate log lines of the twins test harness:
// the first group is the index of the reporting replica, the second the JSON
// encoded certificate.
var twinsLine = regexp.MustCompile(`([0-9]+)-node-twins.*({"quorum_cert":.*})`)

// maxLineSize bounds the length of a single log line.
const maxLineSize = 4 * 1024 * 1024

// LogReplay replays the certificates found in a twins-harness log. Lines are
// processed in order; consecutive certificates of the same replica are
// forwarded in batches of at most batchSize.
type LogReplay struct {
	log       zerolog.Logger
	sink      RawSink
	batchSize int
}

// ReplayStats summarizes one replay.
type ReplayStats struct {
	Lines        int
	Certificates int
	Batches      int
	// Diagnostics aggregates the errors returned by the sink.
	Diagnostics error
}

func NewLogReplay(log zerolog.Logger, sink RawSink, batchSize int) *LogReplay {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &LogReplay{
		log:       log.With().Str("component", "log_replay").Logger(),
		sink:      sink,
		batchSize: batchSize,
	}
}

// Replay reads the log until EOF or until the context is cancelled. Diagnostics
// returned by the sink do not stop the replay; they are aggregated in the
// returned stats. Reading failures and context cancellation stop the replay
// and are returned as error.
func (r *LogReplay) Replay(ctx context.Context, reader io.Reader) (ReplayStats, error) {
	var (
		stats       ReplayStats
		diagnostics *multierror.Error
		current     model.ReplicaID
		batch       [][]byte
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		err := r.sink.IngestRaw(current, batch...)
		if err != nil {
			diagnostics = multierror.Append(diagnostics, err)
		}
		stats.Batches++
		batch = nil
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			flush()
			stats.Diagnostics = diagnostics.ErrorOrNil()
			return stats, err
		}
		stats.Lines++

		match := twinsLine.FindSubmatch(scanner.Bytes())
		if match == nil {
			continue
		}
		source := model.ReplicaID(match[1])
		if source != current {
			flush()
			current = source
		}
		blob := make([]byte, len(match[2]))
		copy(blob, match[2])
		batch = append(batch, blob)
		stats.Certificates++

		if len(batch) >= r.batchSize {
			flush()
		}
	}
	flush()
	stats.Diagnostics = diagnostics.ErrorOrNil()

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("could not read log: %w", err)
	}

	r.log.Info().
		Int("lines", stats.Lines).
		Int("certificates", stats.Certificates).
		Int("batches", stats.Batches).
		Msg("log replay finished")

	return stats, nil
}
