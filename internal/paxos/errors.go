package paxos

import (
	"errors"
	"fmt"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

var (
	// ErrMissingHistoryEntry means a ballot was referenced before its value
	// was recorded. The engine was driven out of protocol order; the round
	// that hit it is failed.
	ErrMissingHistoryEntry = errors.New("ballot missing from proposal history")

	// ErrNoLatestProposal is returned when an accept is requested before any
	// prepare was sent.
	ErrNoLatestProposal = errors.New("no latest proposal")

	// ErrUnknownRound is returned when an accept is requested for a ballot
	// with no live round.
	ErrUnknownRound = errors.New("no live round for ballot")

	// ErrBroadcastUnavailable wraps transport failures. Wrapping
	// transport.ErrNoReceivers is retryable, wrapping transport.ErrClosed is
	// not.
	ErrBroadcastUnavailable = errors.New("broadcast unavailable")

	// ErrRoundAbandoned is carried by the Decision of a round that ran out
	// of prepare attempts.
	ErrRoundAbandoned = errors.New("round abandoned after max attempts")
)

type MissingHistoryEntryError struct {
	ID ballot.ID
}

func (e *MissingHistoryEntryError) Error() string {
	return fmt.Sprintf("could not find proposal %s in history", e.ID)
}

func (e *MissingHistoryEntryError) Is(target error) bool {
	return target == ErrMissingHistoryEntry
}

func missingHistory(id ballot.ID) error {
	return &MissingHistoryEntryError{ID: id}
}
