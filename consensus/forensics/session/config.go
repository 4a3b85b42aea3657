package session

import (
	"fmt"
	"strings"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// Mode selects which detectors a session runs.
type Mode int

const (
	ModeWithinView Mode = iota + 1
	ModeAcrossView
	ModeBoth
)

func (m Mode) String() string {
	switch m {
	case ModeWithinView:
		return "within"
	case ModeAcrossView:
		return "across"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

func (m Mode) withinView() bool { return m == ModeWithinView || m == ModeBoth }
func (m Mode) acrossView() bool { return m == ModeAcrossView || m == ModeBoth }

// ParseMode parses the textual representation of a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "within", "within-view", "within_view":
		return ModeWithinView, nil
	case "across", "across-view", "across_view":
		return ModeAcrossView, nil
	case "both", "":
		return ModeBoth, nil
	default:
		return 0, fmt.Errorf("unknown detection mode %q", s)
	}
}

// DefaultWindowSize is the number of recent rounds kept for live reporting.
const DefaultWindowSize = 3

// Config parameterizes a forensic session.
type Config struct {
	// Quorum is the number of signers a valid certificate needs.
	Quorum uint
	// Epoch is the epoch under analysis. Records of other epochs are dropped.
	Epoch uint64
	// VantageA is the canonical replica. Its certificates provide the lock for
	// across-view detection.
	VantageA model.ReplicaID
	// VantageB is the replica compared against A, typically A's Byzantine twin.
	VantageB model.ReplicaID
	Mode     Mode
	// WindowSize is the number of recent rounds summarized for live reporting.
	WindowSize int
	// Replicas are the replicas listed in round summaries. Defaults to A and B.
	Replicas []model.ReplicaID
}

func (c *Config) validate() error {
	if c.Quorum == 0 {
		return model.NewConfigurationErrorf("quorum threshold must be positive")
	}
	if c.VantageA == "" || c.VantageB == "" {
		return model.NewConfigurationErrorf("both vantage points must be set")
	}
	if c.VantageA == c.VantageB {
		return model.NewConfigurationErrorf("vantage points must differ, got %q twice", c.VantageA)
	}
	if c.Mode == 0 {
		c.Mode = ModeBoth
	}
	if c.Mode < ModeWithinView || c.Mode > ModeBoth {
		return model.NewConfigurationErrorf("invalid detection mode %d", c.Mode)
	}
	if c.WindowSize < 0 {
		return model.NewConfigurationErrorf("window size must not be negative, got %d", c.WindowSize)
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if len(c.Replicas) == 0 {
		c.Replicas = []model.ReplicaID{c.VantageA, c.VantageB}
	}
	return nil
}
