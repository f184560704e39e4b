package paxos

import (
	"time"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

type phase int

const (
	phasePreparing phase = iota
	phaseAccepting
	phaseDecided
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phasePreparing:
		return "preparing"
	case phaseAccepting:
		return "accepting"
	case phaseDecided:
		return "decided"
	default:
		return "failed"
	}
}

// round is the state of one client value from its first prepare until it
// is decided or given up on. Every attempt gets fresh vote sets, so votes
// never leak between rounds or between attempts of the same round.
type round struct {
	origin      ballot.ID
	clientValue uint64

	proposal Proposal
	phase    phase
	attempt  int
	deadline time.Time

	prepared voteSet
	accepted voteSet

	// ids under which the proposer indexes this round: the attempt's own
	// ballot plus any ballot adopted from a prepare response.
	keys []ballot.ID
}

func newRound(id ballot.ID, value uint64) *round {
	return &round{
		origin:      id,
		clientValue: value,
		proposal:    NewProposal(id, value),
		phase:       phasePreparing,
		attempt:     1,
		prepared:    make(voteSet),
		accepted:    make(voteSet),
	}
}

// restart begins a new attempt under id, carrying the current value.
func (r *round) restart(id ballot.ID) {
	r.proposal = NewProposal(id, r.proposal.Value)
	r.phase = phasePreparing
	r.attempt++
	r.prepared = make(voteSet)
	r.accepted = make(voteSet)
}

func (r *round) done() bool {
	return r.phase == phaseDecided || r.phase == phaseFailed
}

// Decision is emitted once per round.
type Decision struct {
	// Ballot is the first ballot of the round and identifies the client
	// submission.
	Ballot      ballot.ID
	Proposal    Proposal
	ClientValue uint64
	Votes       int
	Attempts    int
	Err         error
}

func (d Decision) Chosen() bool { return d.Err == nil }
