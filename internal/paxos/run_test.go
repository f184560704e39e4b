package paxos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/senutpal/singlepaxos/internal/transport"
)

type loop struct {
	hub      *transport.Hub[Message]
	inbox    *transport.Inbox[Message]
	clients  chan uint64
	proposer *Proposer
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	runErr   chan error
}

func startLoop(t *testing.T) *loop {
	t.Helper()
	cfg := testConfig()
	cfg.RetryInterval = 10 * time.Millisecond
	cfg.TickInterval = 10 * time.Millisecond
	cfg.PhaseTimeout = 200 * time.Millisecond
	cfg.MaxAttempts = 0

	l := &loop{
		hub:     transport.NewHub[Message](16),
		inbox:   transport.NewInbox[Message](16),
		clients: make(chan uint64, 4),
		runErr:  make(chan error, 1),
	}
	l.proposer = NewProposer(cfg, l.hub, l.hub, WithLogger(quietLogger()))
	l.ctx, l.cancel = context.WithCancel(context.Background())
	go func() { l.runErr <- l.proposer.Run(l.ctx, l.clients, l.inbox.C()) }()
	return l
}

func (l *loop) addAcceptor(t *testing.T, id uint64) {
	t.Helper()
	sub, err := l.hub.Subscribe()
	require.NoError(t, err)
	a := NewAcceptor(id, nil, quietLogger())
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer sub.Close()
		_ = a.Serve(l.ctx, sub.C(), l.inbox)
	}()
}

func (l *loop) stop(t *testing.T) {
	t.Helper()
	l.cancel()
	require.NoError(t, <-l.runErr)
	l.wg.Wait()
	l.hub.Close()
	l.inbox.Close()
}

func waitDecision(t *testing.T, p *Proposer) Decision {
	t.Helper()
	select {
	case d := <-p.Decisions():
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("no decision")
		return Decision{}
	}
}

func TestRunDecidesEachSubmittedValue(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	for id := uint64(2); id <= 4; id++ {
		l.addAcceptor(t, id)
	}

	l.clients <- 10
	d := waitDecision(t, l.proposer)
	require.True(t, d.Chosen())
	assert.Equal(t, uint64(10), d.Proposal.Value)

	l.clients <- 20
	d = waitDecision(t, l.proposer)
	require.True(t, d.Chosen())
	assert.Equal(t, uint64(20), d.ClientValue)

	l.stop(t)
}

func TestRunBuffersValuesUntilAcceptorsJoin(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	l.clients <- 5

	select {
	case d := <-l.proposer.Decisions():
		t.Fatalf("decided without acceptors: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}

	l.addAcceptor(t, 2)
	d := waitDecision(t, l.proposer)
	require.True(t, d.Chosen())
	assert.Equal(t, uint64(5), d.Proposal.Value)

	l.stop(t)
}

func TestRunStopsWhenTransportCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	l.hub.Close()
	l.clients <- 1

	select {
	case err := <-l.runErr:
		assert.ErrorIs(t, err, ErrBroadcastUnavailable)
		assert.ErrorIs(t, err, transport.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
	l.cancel()
	l.inbox.Close()
}
