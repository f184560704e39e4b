// =============================================================================
// LEARNER - Who Finds Out What Was Chosen
// =============================================================================
//
// The proposer's own accept count stands in for acceptors notifying
// learners: once it sees a majority it emits a Decision. The Learner
// collects those decisions so callers can ask what became of a submission
// or wait for a number of them.
//
// =============================================================================

package paxos

import (
	"context"
	"log/slog"
	"sync"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

type Learner struct {
	mu      sync.Mutex
	byID    map[ballot.ID]Decision
	order   []Decision
	changed chan struct{}
	log     *slog.Logger
}

func NewLearner(logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		byID:    make(map[ballot.ID]Decision),
		changed: make(chan struct{}),
		log:     logger.With("role", "learner"),
	}
}

// Observe records d. A second decision for the same ballot is ignored.
func (l *Learner) Observe(d Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.byID[d.Ballot]; ok {
		if prev.Proposal != d.Proposal {
			l.log.Warn("conflicting decision", "ballot", d.Ballot.Short(),
				"had", prev.Proposal.String(), "got", d.Proposal.String())
		}
		return
	}
	l.byID[d.Ballot] = d
	l.order = append(l.order, d)
	if d.Chosen() {
		l.log.Info("value chosen", "ballot", d.Ballot.Short(), "value", d.Proposal.Value, "votes", d.Votes)
	} else {
		l.log.Warn("round failed", "ballot", d.Ballot.Short(), "err", d.Err)
	}
	close(l.changed)
	l.changed = make(chan struct{})
}

func (l *Learner) Lookup(id ballot.ID) (Decision, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.byID[id]
	return d, ok
}

// Decisions returns every decision in the order observed.
func (l *Learner) Decisions() []Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Decision(nil), l.order...)
}

// WaitN blocks until at least n decisions were observed.
func (l *Learner) WaitN(ctx context.Context, n int) ([]Decision, error) {
	for {
		l.mu.Lock()
		if len(l.order) >= n {
			out := append([]Decision(nil), l.order...)
			l.mu.Unlock()
			return out, nil
		}
		changed := l.changed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

// Run observes decisions until the channel closes or ctx is done.
func (l *Learner) Run(ctx context.Context, decisions <-chan Decision) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-decisions:
			if !ok {
				return nil
			}
			l.Observe(d)
		}
	}
}
