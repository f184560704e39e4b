package paxos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/singlepaxos/internal/ballot"
)

func TestLearnerObserveOncePerBallot(t *testing.T) {
	l := NewLearner(quietLogger())
	id := ballot.New()
	d := Decision{Ballot: id, Proposal: NewProposal(id, 4), ClientValue: 4, Votes: 2}

	l.Observe(d)
	l.Observe(Decision{Ballot: id, Proposal: NewProposal(id, 5)})

	got, ok := l.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, d, got)
	assert.Len(t, l.Decisions(), 1)

	_, ok = l.Lookup(ballot.New())
	assert.False(t, ok)
}

func TestLearnerWaitN(t *testing.T) {
	l := NewLearner(quietLogger())
	decisions := make(chan Decision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx, decisions) }()

	go func() {
		for i := 0; i < 3; i++ {
			id := ballot.New()
			decisions <- Decision{Ballot: id, Proposal: NewProposal(id, uint64(i))}
		}
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
	defer waitCancel()
	got, err := l.WaitN(waitCtx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, d := range got {
		assert.Equal(t, uint64(i), d.Proposal.Value)
	}
}

func TestLearnerWaitNTimesOut(t *testing.T) {
	l := NewLearner(quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.WaitN(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
