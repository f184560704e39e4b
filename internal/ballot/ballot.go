// =============================================================================
// BALLOT IDS - Total Order of Proposals
// =============================================================================
//
// A ballot id is the proposal number of this Paxos implementation. It is a
// UUIDv7: the leading 48 bits are a millisecond timestamp and the following
// bits are a per-process monotonic sequence, so ids minted later always
// compare greater and two ids are never equal.
//
// Ordering is by generation time only. Node identity plays no part, which
// is fine while a single proposer is active.
//
// =============================================================================

package ballot

import (
	"bytes"

	"github.com/google/uuid"
)

// ID is comparable and can be used as a map key.
type ID uuid.UUID

// Zero sorts before every generated id.
var Zero ID

// New returns a fresh id strictly greater than any id previously returned
// by this process.
func New() ID {
	return ID(uuid.Must(uuid.NewV7()))
}

// Compare returns -1, 0 or +1.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

func (id ID) Less(other ID) bool    { return id.Compare(other) < 0 }
func (id ID) Greater(other ID) bool { return id.Compare(other) > 0 }
func (id ID) IsZero() bool          { return id == Zero }

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Short is the trailing 12 hex digits, which is what differs between ids
// minted close together. Used in log lines.
func (id ID) Short() string {
	s := id.String()
	return s[len(s)-12:]
}

// Max returns the greater of a and b.
func Max(a, b ID) ID {
	if a.Less(b) {
		return b
	}
	return a
}
