// =============================================================================
// STORAGE INTERFACES
// =============================================================================
//
// Two stores live here:
//
// 1. History - the proposer's memory of which value every ballot carries.
//    It is append-only: once a ballot is recorded, its value never changes.
//    When a peer reports a newer ballot, the proposer looks the value up
//    here so it re-proposes that value instead of its own.
//
// 2. AcceptorStore - the acceptor's promised and accepted state.
//
// Both interfaces exist so a durable backend can replace the in-memory one.
// The in-memory versions lose everything on restart; proposer state is
// ephemeral, acceptor state should not be in production.
//
// =============================================================================

package storage

import (
	"errors"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

var ErrClosed = errors.New("storage closed")

type History interface {
	// Record binds id to value if id is absent. It reports whether the
	// binding was created; an existing binding is left untouched.
	Record(id ballot.ID, value uint64) (bool, error)
	Lookup(id ballot.ID) (uint64, bool)
	Len() int
	Close() error
}

// AcceptorState is saved and loaded as one unit.
type AcceptorState struct {
	Promised ballot.ID
	Accepted ballot.ID
	Value    uint64
}

// HasAccepted reports whether any value was accepted.
func (s AcceptorState) HasAccepted() bool {
	return !s.Accepted.IsZero()
}

type AcceptorStore interface {
	Save(state AcceptorState) error
	Load() (AcceptorState, error)
	Close() error
}
