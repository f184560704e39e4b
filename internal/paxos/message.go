// =============================================================================
// PAXOS MESSAGE TYPES
// =============================================================================
//
// Four messages, two phases, two directions each:
//
// ┌──────────────┐  PrepareRequest(id)       ┌──────────────┐
// │   PROPOSER   │ ─────────────────────────▶│   ACCEPTOR   │
// │              │◀───────────────────────── │              │
// └──────────────┘  PrepareResponse(id)      └──────────────┘
//
// ┌──────────────┐  AcceptRequest(id, v)     ┌──────────────┐
// │   PROPOSER   │ ─────────────────────────▶│   ACCEPTOR   │
// │              │◀───────────────────────── │              │
// └──────────────┘  AcceptResponse(id, v)    └──────────────┘
//
// Requests and responses travel as the same Message interface so a single
// channel type carries both directions. A PrepareResponse carries the highest
// ballot the acceptor has promised, which may be newer than the one it is
// answering.
//
// =============================================================================

package paxos

import (
	"fmt"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindPrepareRequest
	KindPrepareResponse
	KindAcceptRequest
	KindAcceptResponse
)

func (k Kind) String() string {
	switch k {
	case KindPrepareRequest:
		return "prepare-request"
	case KindPrepareResponse:
		return "prepare-response"
	case KindAcceptRequest:
		return "accept-request"
	case KindAcceptResponse:
		return "accept-response"
	default:
		return "unknown"
	}
}

// Message is implemented by every value that crosses the proposer/acceptor
// boundary. Receivers switch on the concrete type and ignore anything they
// do not recognize.
type Message interface {
	Kind() Kind
	GetFrom() uint64
	Ballot() ballot.ID
}

type PrepareRequest struct {
	From       uint64
	ProposalID ballot.ID
}

func (m PrepareRequest) Kind() Kind        { return KindPrepareRequest }
func (m PrepareRequest) GetFrom() uint64   { return m.From }
func (m PrepareRequest) Ballot() ballot.ID { return m.ProposalID }

type PrepareResponse struct {
	From       uint64
	ProposalID ballot.ID
}

func (m PrepareResponse) Kind() Kind        { return KindPrepareResponse }
func (m PrepareResponse) GetFrom() uint64   { return m.From }
func (m PrepareResponse) Ballot() ballot.ID { return m.ProposalID }

type AcceptRequest struct {
	From       uint64
	ProposalID ballot.ID
	Value      uint64
}

func (m AcceptRequest) Kind() Kind        { return KindAcceptRequest }
func (m AcceptRequest) GetFrom() uint64   { return m.From }
func (m AcceptRequest) Ballot() ballot.ID { return m.ProposalID }

type AcceptResponse struct {
	From       uint64
	ProposalID ballot.ID
	Value      uint64
}

func (m AcceptResponse) Kind() Kind        { return KindAcceptResponse }
func (m AcceptResponse) GetFrom() uint64   { return m.From }
func (m AcceptResponse) Ballot() ballot.ID { return m.ProposalID }

// Describe renders a message for log lines.
func Describe(m Message) string {
	switch v := m.(type) {
	case AcceptRequest:
		return fmt.Sprintf("%s(from=%d, id=%s, value=%d)", v.Kind(), v.From, v.ProposalID.Short(), v.Value)
	case AcceptResponse:
		return fmt.Sprintf("%s(from=%d, id=%s, value=%d)", v.Kind(), v.From, v.ProposalID.Short(), v.Value)
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%s(from=%d, id=%s)", m.Kind(), m.GetFrom(), m.Ballot().Short())
	}
}
