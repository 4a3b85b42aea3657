package session

import (
	"sort"

	"github.com/ef-ds/deque"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

// window keeps the summaries of the most recent rounds, ascending by round.
// Not concurrency safe; guarded by the session lock.
type window struct {
	size     int
	replicas map[model.ReplicaID]struct{}
	rounds   deque.Deque // of *model.RoundSummary
}

func newWindow(size int, replicas []model.ReplicaID) *window {
	monitored := make(map[model.ReplicaID]struct{}, len(replicas))
	for _, r := range replicas {
		monitored[r] = struct{}{}
	}
	return &window{
		size:     size,
		replicas: monitored,
	}
}

// observe records the label a monitored replica reported for a round. Returns
// the updated summary, or nil if the replica is not monitored or the round is
// older than every round in a full window.
func (w *window) observe(rec *model.Record) *model.RoundSummary {
	if _, ok := w.replicas[rec.Source]; !ok {
		return nil
	}

	summaries := w.drain()
	defer func() { w.refill(summaries) }()

	i := sort.Search(len(summaries), func(i int) bool { return summaries[i].Round >= rec.Round })
	if i < len(summaries) && summaries[i].Round == rec.Round {
		summaries[i].Blocks[rec.Source] = rec.Label()
		return summaries[i]
	}
	if len(summaries) >= w.size && i == 0 {
		return nil
	}

	summary := &model.RoundSummary{
		Round:  rec.Round,
		Blocks: map[model.ReplicaID]string{rec.Source: rec.Label()},
	}
	summaries = append(summaries, nil)
	copy(summaries[i+1:], summaries[i:])
	summaries[i] = summary
	if len(summaries) > w.size {
		summaries = summaries[len(summaries)-w.size:]
	}
	return summary
}

// snapshot returns copies of the summaries, ascending by round.
func (w *window) snapshot() []model.RoundSummary {
	summaries := w.drain()
	defer w.refill(summaries)

	out := make([]model.RoundSummary, 0, len(summaries))
	for _, s := range summaries {
		blocks := make(map[model.ReplicaID]string, len(s.Blocks))
		for replica, label := range s.Blocks {
			blocks[replica] = label
		}
		out = append(out, model.RoundSummary{Round: s.Round, Blocks: blocks})
	}
	return out
}

func (w *window) drain() []*model.RoundSummary {
	summaries := make([]*model.RoundSummary, 0, w.rounds.Len()+1)
	for w.rounds.Len() > 0 {
		v, _ := w.rounds.PopFront()
		summaries = append(summaries, v.(*model.RoundSummary))
	}
	return summaries
}

func (w *window) refill(summaries []*model.RoundSummary) {
	for _, s := range summaries {
		w.rounds.PushBack(s)
	}
}
