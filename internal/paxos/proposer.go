// =============================================================================
// PROPOSER - The Driver of Paxos Consensus
// =============================================================================
//
// One goroutine runs the proposer's event loop. It waits on two sources at
// once and serves whichever is ready:
//
//   client values   ──▶ Propose: new round, broadcast PrepareRequest
//   acceptor replies ──▶ HandlePrepareResponse / HandleAcceptResponse
//
// PHASE 1
// ┌─────────────────────────────────────────────────────────────────────────┐
// │ 1. Mint a fresh ballot, record (ballot, value) in history              │
// │ 2. Broadcast PrepareRequest to every subscribed acceptor               │
// │ 3. Count PrepareResponses per round. A response naming a newer ballot  │
// │    than ours means an acceptor already promised it: look up that       │
// │    ballot's value in history and propose THAT value from now on.       │
// │ 4. On a strict majority, broadcast AcceptRequest once                  │
// └─────────────────────────────────────────────────────────────────────────┘
//
// PHASE 2
// ┌─────────────────────────────────────────────────────────────────────────┐
// │ 5. Count AcceptResponses per round                                     │
// │ 6. On a strict majority the value is chosen: emit one Decision         │
// └─────────────────────────────────────────────────────────────────────────┘
//
// Each client value gets its own round with its own vote sets. Rounds are
// found by ballot id, so late replies from an older round land in that
// round and never in a newer one.
//
// The majority is computed against ClusterView at the moment of each check.
// A phase that does not reach a majority before PhaseTimeout is prepared
// again under a fresh, higher ballot.
//
// All state is owned by the loop goroutine. The handler methods are exported
// for tests and for callers that drive the engine themselves; they must not
// be called concurrently with Run.
//
// =============================================================================

package paxos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/senutpal/singlepaxos/internal/ballot"
	"github.com/senutpal/singlepaxos/internal/config"
	"github.com/senutpal/singlepaxos/internal/storage"
	"github.com/senutpal/singlepaxos/internal/transport"
)

type Proposer struct {
	id   uint64
	cfg  config.Config
	out  transport.Broadcaster[Message]
	view ClusterView

	history storage.History
	log     *slog.Logger
	now     func() time.Time

	latest    Proposal
	hasLatest bool

	rounds  map[ballot.ID]*round
	active  []*round
	current *round
	pending []uint64

	decisions chan Decision
}

type Option func(*Proposer)

func WithHistory(h storage.History) Option {
	return func(p *Proposer) { p.history = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Proposer) { p.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Proposer) { p.now = now }
}

func NewProposer(cfg config.Config, out transport.Broadcaster[Message], view ClusterView, opts ...Option) *Proposer {
	p := &Proposer{
		id:     cfg.NodeID,
		cfg:    cfg,
		out:    out,
		view:   view,
		now:    time.Now,
		rounds: make(map[ballot.ID]*round),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.history == nil {
		p.history = storage.NewMemoryHistory()
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("node", p.id, "role", "proposer")
	defaults := config.Default()
	if p.cfg.TickInterval <= 0 {
		p.cfg.TickInterval = defaults.TickInterval
	}
	if p.cfg.RetryInterval <= 0 {
		p.cfg.RetryInterval = defaults.RetryInterval
	}
	size := cfg.QueueSize
	if size < 1 {
		size = 1
	}
	p.decisions = make(chan Decision, size)
	return p
}

// Decisions delivers one Decision per round. If nobody drains it and the
// buffer fills, further decisions are dropped and logged.
func (p *Proposer) Decisions() <-chan Decision { return p.decisions }

// Latest is the leading proposal, if any round has started.
func (p *Proposer) Latest() (Proposal, bool) { return p.latest, p.hasLatest }

// ActiveRounds counts rounds that are neither decided nor failed.
func (p *Proposer) ActiveRounds() int { return len(p.active) }

// Pending counts client values waiting for acceptors to appear.
func (p *Proposer) Pending() int { return len(p.pending) }

// Run is the event loop. It returns nil when ctx is cancelled and an error
// wrapping ErrBroadcastUnavailable when the transport is gone for good.
func (p *Proposer) Run(ctx context.Context, clients <-chan uint64, responses <-chan Message) error {
	var tick <-chan time.Time
	if p.cfg.PhaseTimeout > 0 {
		t := time.NewTicker(p.cfg.TickInterval)
		defer t.Stop()
		tick = t.C
	}
	retry := time.NewTicker(p.cfg.RetryInterval)
	defer retry.Stop()

	p.log.Info("proposer started", "phase_timeout", p.cfg.PhaseTimeout, "max_attempts", p.cfg.MaxAttempts)
	defer p.log.Info("proposer stopped")

	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case value, ok := <-clients:
			if !ok {
				clients = nil
				continue
			}
			err = p.submit(value)
		case msg, ok := <-responses:
			if !ok {
				return fmt.Errorf("%w: response inbox closed", ErrBroadcastUnavailable)
			}
			err = p.Handle(msg)
		case now := <-tick:
			err = p.expire(now)
		case <-retry.C:
			err = p.retryPending()
		}
		if err == nil {
			continue
		}
		if errors.Is(err, transport.ErrClosed) {
			p.log.Error("transport lost", "err", err)
			return err
		}
		p.log.Warn("round error", "err", err)
	}
}

func (p *Proposer) submit(value uint64) error {
	err := p.Propose(value)
	if errors.Is(err, transport.ErrNoReceivers) {
		p.pending = append(p.pending, value)
		p.log.Warn("no acceptors, value buffered", "value", value, "pending", len(p.pending))
		return nil
	}
	return err
}

func (p *Proposer) retryPending() error {
	for len(p.pending) > 0 {
		err := p.Propose(p.pending[0])
		if errors.Is(err, transport.ErrNoReceivers) {
			return nil
		}
		p.pending = p.pending[1:]
		if err != nil {
			return err
		}
	}
	return nil
}

// Handle dispatches an acceptor reply. Requests and unknown messages are
// ignored.
func (p *Proposer) Handle(msg Message) error {
	switch m := msg.(type) {
	case PrepareResponse:
		return p.HandlePrepareResponse(m)
	case AcceptResponse:
		return p.HandleAcceptResponse(m)
	default:
		if msg != nil {
			p.log.Debug("ignoring message", "msg", Describe(msg))
		}
		return nil
	}
}

// Propose starts a round for value: mint a ballot, record it in history
// and broadcast the prepare. The round only exists once the broadcast went
// out.
func (p *Proposer) Propose(value uint64) error {
	id := ballot.New()
	if _, err := p.history.Record(id, value); err != nil {
		return fmt.Errorf("record proposal %s: %w", id, err)
	}
	p.log.Debug("proposal history", "size", p.history.Len())

	n, err := p.broadcast(PrepareRequest{From: p.id, ProposalID: id})
	if err != nil {
		return err
	}

	r := newRound(id, value)
	r.deadline = p.deadline()
	p.track(r, id)
	p.current = r
	p.setLatest(r.proposal)
	p.log.Info("prepare sent", "id", id.Short(), "value", value, "acceptors", n)
	return nil
}

func (p *Proposer) HandlePrepareResponse(m PrepareResponse) error {
	r, ok := p.rounds[m.ProposalID]
	if !ok {
		if !p.hasLatest || !m.ProposalID.Greater(p.latest.ID) {
			p.log.Debug("stale prepare response", "from", m.From, "id", m.ProposalID.Short())
			return nil
		}
		// The acceptor promised a newer ballot than ours. Its value wins.
		r = p.current
		value, found := p.history.Lookup(m.ProposalID)
		if !found {
			err := missingHistory(m.ProposalID)
			if r != nil {
				p.fail(r, err)
			}
			return err
		}
		adopted := NewProposal(m.ProposalID, value)
		p.setLatest(adopted)
		// An accept already in flight stays bound to the ballot it was sent
		// under; only a round still preparing takes the newer value.
		if r == nil || r.phase != phasePreparing {
			p.log.Info("newer proposal observed", "id", m.ProposalID.Short(), "value", value,
				"phase", roundPhase(r))
			return nil
		}
		r.proposal = adopted
		p.rounds[m.ProposalID] = r
		r.keys = append(r.keys, m.ProposalID)
		p.log.Info("adopted newer proposal", "id", m.ProposalID.Short(), "value", value)
	}
	if r.done() {
		return nil
	}
	if r.proposal.NewerThan(p.latest) {
		p.setLatest(r.proposal)
	}

	if r.prepared.add(m.From) {
		p.log.Debug("received prepare response", "from", m.From, "id", m.ProposalID.Short(),
			"votes", r.prepared.len(), "phase", r.phase)
	}
	if r.phase != phasePreparing {
		return nil
	}
	if HasQuorum(r.prepared.len(), p.view.AcceptorCount()) {
		return p.sendAccept(r)
	}
	return nil
}

// SendAcceptRequest broadcasts the accept for the latest proposal. The
// engine calls it on its own once a prepare majority forms.
func (p *Proposer) SendAcceptRequest() error {
	if !p.hasLatest {
		return ErrNoLatestProposal
	}
	r, ok := p.rounds[p.latest.ID]
	if !ok || r.done() {
		return fmt.Errorf("%w: %s", ErrUnknownRound, p.latest.ID)
	}
	return p.sendAccept(r)
}

func (p *Proposer) sendAccept(r *round) error {
	id := r.proposal.ID
	value, ok := p.history.Lookup(id)
	if !ok {
		err := missingHistory(id)
		p.fail(r, err)
		return err
	}
	n, err := p.broadcast(AcceptRequest{From: p.id, ProposalID: id, Value: value})
	if err != nil {
		return err
	}
	r.phase = phaseAccepting
	r.deadline = p.deadline()
	p.log.Info("accept sent", "id", id.Short(), "value", value, "acceptors", n)
	return nil
}

func (p *Proposer) HandleAcceptResponse(m AcceptResponse) error {
	r, ok := p.rounds[m.ProposalID]
	if !ok || r.done() {
		p.log.Debug("stale accept response", "from", m.From, "id", m.ProposalID.Short())
		return nil
	}
	value, found := p.history.Lookup(m.ProposalID)
	if !found || m.Value != value {
		p.log.Warn("accept response value mismatch",
			"from", m.From, "id", m.ProposalID.Short(), "got", m.Value, "want", value, "known", found)
		return nil
	}
	r.accepted.add(m.From)
	p.log.Debug("received accepted value", "from", m.From, "id", m.ProposalID.Short(), "value", m.Value)

	votes := r.accepted.len()
	if !HasQuorum(votes, p.view.AcceptorCount()) {
		return nil
	}
	r.phase = phaseDecided
	r.proposal = NewProposal(m.ProposalID, value)
	p.log.Info("quorum reached", "votes", votes, "value", r.proposal.Value, "id", r.proposal.ID.Short())
	p.retire(r)
	p.emit(Decision{
		Ballot:      r.origin,
		Proposal:    r.proposal,
		ClientValue: r.clientValue,
		Votes:       votes,
		Attempts:    r.attempt,
	})
	return nil
}

// expire re-prepares every round whose phase deadline passed, or abandons
// it once MaxAttempts is used up.
func (p *Proposer) expire(now time.Time) error {
	if p.cfg.PhaseTimeout <= 0 {
		return nil
	}
	var errs []error
	for _, r := range append([]*round(nil), p.active...) {
		if r.done() || !now.After(r.deadline) {
			continue
		}
		if p.cfg.MaxAttempts > 0 && r.attempt >= p.cfg.MaxAttempts {
			p.fail(r, fmt.Errorf("%w: %d attempts", ErrRoundAbandoned, r.attempt))
			continue
		}
		if err := p.reprepare(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Proposer) reprepare(r *round) error {
	id := ballot.New()
	if _, err := p.history.Record(id, r.proposal.Value); err != nil {
		return fmt.Errorf("record proposal %s: %w", id, err)
	}
	// Replies to the timed-out attempt must not count toward the new one.
	p.untrack(r)
	r.restart(id)
	r.deadline = p.deadline()
	p.track(r, id)
	p.current = r
	p.setLatest(r.proposal)

	n, err := p.broadcast(PrepareRequest{From: p.id, ProposalID: id})
	if err != nil {
		return err
	}
	p.log.Info("phase timed out, prepare resent", "id", id.Short(), "value", r.proposal.Value,
		"attempt", r.attempt, "acceptors", n)
	return nil
}

func (p *Proposer) broadcast(msg Message) (int, error) {
	n, err := p.out.Broadcast(msg)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrBroadcastUnavailable, msg.Kind(), err)
	}
	return n, nil
}

func (p *Proposer) deadline() time.Time {
	if p.cfg.PhaseTimeout <= 0 {
		return time.Time{}
	}
	return p.now().Add(p.cfg.PhaseTimeout)
}

func (p *Proposer) setLatest(prop Proposal) {
	p.latest = prop
	p.hasLatest = true
}

func (p *Proposer) track(r *round, id ballot.ID) {
	p.rounds[id] = r
	r.keys = append(r.keys, id)
	for _, a := range p.active {
		if a == r {
			return
		}
	}
	p.active = append(p.active, r)
}

func (p *Proposer) untrack(r *round) {
	for _, k := range r.keys {
		if p.rounds[k] == r {
			delete(p.rounds, k)
		}
	}
	r.keys = nil
}

func (p *Proposer) retire(r *round) {
	p.untrack(r)
	for i, a := range p.active {
		if a == r {
			p.active = append(p.active[:i], p.active[i+1:]...)
			break
		}
	}
	if p.current == r {
		p.current = nil
	}
}

func (p *Proposer) fail(r *round, err error) {
	if r.done() {
		return
	}
	p.log.Error("round failed", "id", r.proposal.ID.Short(), "phase", r.phase, "attempt", r.attempt, "err", err)
	r.phase = phaseFailed
	p.retire(r)
	p.emit(Decision{
		Ballot:      r.origin,
		Proposal:    r.proposal,
		ClientValue: r.clientValue,
		Attempts:    r.attempt,
		Err:         err,
	})
}

func roundPhase(r *round) string {
	if r == nil {
		return "idle"
	}
	return r.phase.String()
}

func (p *Proposer) emit(d Decision) {
	select {
	case p.decisions <- d:
	default:
		p.log.Warn("decision dropped, buffer full", "ballot", d.Ballot.Short())
	}
}
