// =============================================================================
// ACCEPTOR - The Proposer's Counterpart
// =============================================================================
//
// Only as much acceptor as the proposer needs to talk to. Two rules:
//
// PROMISE RULE:    PrepareRequest(n) with n > promised → promise n.
//                  The reply always names max(promised, n), so a proposer
//                  learns about a newer ballot it has to defer to.
//
// ACCEPTANCE RULE: AcceptRequest(n, v) with n >= promised → accept (n, v)
//                  and reply. Otherwise stay silent.
//
// State is saved to the store before the reply is produced.
//
// =============================================================================

package paxos

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/senutpal/singlepaxos/internal/ballot"
	"github.com/senutpal/singlepaxos/internal/storage"
	"github.com/senutpal/singlepaxos/internal/transport"
)

type Acceptor struct {
	id    uint64
	store storage.AcceptorStore
	log   *slog.Logger
	mu    sync.Mutex
}

func NewAcceptor(id uint64, store storage.AcceptorStore, logger *slog.Logger) *Acceptor {
	if store == nil {
		store = storage.NewMemoryAcceptorStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Acceptor{
		id:    id,
		store: store,
		log:   logger.With("node", id, "role", "acceptor"),
	}
}

func (a *Acceptor) ID() uint64 { return a.id }

func (a *Acceptor) HandlePrepare(m PrepareRequest) (PrepareResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, err := a.store.Load()
	if err != nil {
		return PrepareResponse{}, fmt.Errorf("acceptor %d: load state: %w", a.id, err)
	}
	if m.ProposalID.Greater(st.Promised) {
		st.Promised = m.ProposalID
		if err := a.store.Save(st); err != nil {
			return PrepareResponse{}, fmt.Errorf("acceptor %d: save promise: %w", a.id, err)
		}
		a.log.Debug("promised", "id", m.ProposalID.Short())
	}
	return PrepareResponse{From: a.id, ProposalID: ballot.Max(st.Promised, m.ProposalID)}, nil
}

// HandleAccept reports false when the request was refused.
func (a *Acceptor) HandleAccept(m AcceptRequest) (AcceptResponse, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, err := a.store.Load()
	if err != nil {
		return AcceptResponse{}, false, fmt.Errorf("acceptor %d: load state: %w", a.id, err)
	}
	if m.ProposalID.Less(st.Promised) {
		a.log.Debug("refused accept", "id", m.ProposalID.Short(), "promised", st.Promised.Short())
		return AcceptResponse{}, false, nil
	}
	st.Promised = m.ProposalID
	st.Accepted = m.ProposalID
	st.Value = m.Value
	if err := a.store.Save(st); err != nil {
		return AcceptResponse{}, false, fmt.Errorf("acceptor %d: save accept: %w", a.id, err)
	}
	a.log.Debug("accepted", "id", m.ProposalID.Short(), "value", m.Value)
	return AcceptResponse{From: a.id, ProposalID: m.ProposalID, Value: m.Value}, true, nil
}

// Handle returns the reply for msg, or nil when there is nothing to say.
func (a *Acceptor) Handle(msg Message) (Message, error) {
	switch m := msg.(type) {
	case PrepareRequest:
		return a.HandlePrepare(m)
	case AcceptRequest:
		resp, ok, err := a.HandleAccept(m)
		if err != nil || !ok {
			return nil, err
		}
		return resp, nil
	default:
		return nil, nil
	}
}

// State returns the saved promise and accepted proposal.
func (a *Acceptor) State() (storage.AcceptorState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Load()
}

// Serve answers requests from in until it is closed or ctx is done.
func (a *Acceptor) Serve(ctx context.Context, in <-chan Message, out transport.Sender[Message]) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			reply, err := a.Handle(msg)
			if err != nil {
				a.log.Error("handle request", "msg", Describe(msg), "err", err)
				continue
			}
			if reply == nil {
				continue
			}
			if err := out.Send(ctx, reply); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("acceptor %d: send reply: %w", a.id, err)
			}
		}
	}
}
