package paxos

import (
	"fmt"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

// Proposal binds a ballot to the value carried under it. It is replaced
// wholesale, never mutated.
type Proposal struct {
	ID    ballot.ID
	Value uint64
}

func NewProposal(id ballot.ID, value uint64) Proposal {
	return Proposal{ID: id, Value: value}
}

// NewerThan reports whether p outranks other.
func (p Proposal) NewerThan(other Proposal) bool {
	return p.ID.Greater(other.ID)
}

func (p Proposal) String() string {
	return fmt.Sprintf("(id=%s, value=%d)", p.ID.Short(), p.Value)
}
