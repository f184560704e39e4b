// =============================================================================
// TRANSPORT - How Messages Move Between Roles
// =============================================================================
//
// Two shapes of delivery are needed:
//
//   proposer ──Broadcast──▶ every subscribed acceptor      (Hub)
//   acceptors ──Send──▶ one proposer                       (Inbox)
//
// Broadcast is fire-and-forget: it never waits on a slow subscriber. A
// subscriber whose buffer is full misses the message, the same as a lost
// packet. The number of current subscribers doubles as the live cluster
// size.
//
// Everything here is in-process and generic over the message type so the
// paxos package can use it without this package importing paxos.
//
// =============================================================================

package transport

import (
	"context"
	"errors"
)

var (
	// ErrNoReceivers is returned by Broadcast when nobody is subscribed.
	// Callers may retry once subscribers appear.
	ErrNoReceivers = errors.New("no receivers subscribed")

	// ErrClosed is returned once the hub or inbox has been closed. It is
	// not retryable.
	ErrClosed = errors.New("transport closed")
)

// Broadcaster sends one message to every current subscriber and reports
// how many subscribers there were.
type Broadcaster[T any] interface {
	Broadcast(msg T) (int, error)
}

// Sender delivers one message to a single destination.
type Sender[T any] interface {
	Send(ctx context.Context, msg T) error
}
