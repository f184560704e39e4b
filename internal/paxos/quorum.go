package paxos

// ClusterView reports how many acceptors the proposer should count a
// majority against. It is consulted at every quorum check, so the answer
// may change between checks.
type ClusterView interface {
	AcceptorCount() int
}

// StaticView is a fixed-size cluster.
type StaticView int

func (v StaticView) AcceptorCount() int { return int(v) }

// HasQuorum reports a strict majority: votes > acceptors/2 with integer
// division. 2 of 4 is not a quorum, 3 of 4 is. Zero acceptors never form
// a quorum.
func HasQuorum(votes, acceptors int) bool {
	if acceptors <= 0 {
		return false
	}
	return votes > acceptors/2
}

// voteSet counts each acceptor once no matter how often it replies.
type voteSet map[uint64]struct{}

func (s voteSet) add(node uint64) bool {
	if _, ok := s[node]; ok {
		return false
	}
	s[node] = struct{}{}
	return true
}

func (s voteSet) len() int { return len(s) }
