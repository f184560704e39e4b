// =============================================================================
// NODE - Wiring One Proposer to Its Acceptors
// =============================================================================
//
//                    ┌───────────────────────────┐
//   Submit(v) ──────▶│ Proposer                  │── Decisions ──▶ Learner
//                    │   Run(clients, responses) │
//                    └──────┬──────────▲─────────┘
//                  Broadcast│          │ Inbox
//                    ┌──────▼─────┐    │
//                    │    Hub     │    │
//                    └─┬───┬───┬──┘    │
//                      ▼   ▼   ▼       │
//                    acceptors ──Send──┘
//
// A Cluster owns all of the above and runs every goroutine under one
// errgroup. Acceptors can join and leave while it runs; the hub's live
// subscriber count is the proposer's cluster view.
//
// =============================================================================

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/senutpal/singlepaxos/internal/config"
	"github.com/senutpal/singlepaxos/internal/paxos"
	"github.com/senutpal/singlepaxos/internal/storage"
	"github.com/senutpal/singlepaxos/internal/transport"
)

var (
	ErrNotRunning     = errors.New("cluster not running")
	ErrAlreadyRunning = errors.New("cluster already running")
	ErrUnknownNode    = errors.New("unknown acceptor")
)

type Cluster struct {
	cfg config.Config
	log *slog.Logger

	hub      *transport.Hub[paxos.Message]
	inbox    *transport.Inbox[paxos.Message]
	clients  chan uint64
	proposer *paxos.Proposer
	learner  *paxos.Learner

	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	acceptors map[uint64]*member
	nextID    uint64
}

type member struct {
	acceptor *paxos.Acceptor
	sub      *transport.Subscription[paxos.Message]
	cancel   context.CancelFunc
}

func NewCluster(cfg config.Config, logger *slog.Logger) *Cluster {
	if logger == nil {
		logger = slog.Default()
	}
	hub := transport.NewHub[paxos.Message](cfg.QueueSize)
	c := &Cluster{
		cfg:       cfg,
		log:       logger,
		hub:       hub,
		inbox:     transport.NewInbox[paxos.Message](cfg.QueueSize),
		clients:   make(chan uint64, cfg.QueueSize),
		learner:   paxos.NewLearner(logger),
		acceptors: make(map[uint64]*member),
		nextID:    cfg.NodeID,
	}
	c.proposer = paxos.NewProposer(cfg, hub, hub, paxos.WithLogger(logger))
	return c
}

func (c *Cluster) Proposer() *paxos.Proposer { return c.proposer }
func (c *Cluster) Learner() *paxos.Learner   { return c.learner }

// AcceptorCount is the number of acceptors currently subscribed.
func (c *Cluster) AcceptorCount() int { return c.hub.ReceiverCount() }

// Start launches the proposer, the learner and cfg.Acceptors acceptors.
// Wait returns once ctx is cancelled or one of them fails.
func (c *Cluster) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.group, c.ctx = errgroup.WithContext(ctx)
	c.running = true

	c.group.Go(func() error {
		return c.proposer.Run(c.ctx, c.clients, c.inbox.C())
	})
	c.group.Go(func() error {
		return c.learner.Run(c.ctx, c.proposer.Decisions())
	})
	for i := 0; i < c.cfg.Acceptors; i++ {
		if _, err := c.addLocked(); err != nil {
			cancel()
			_ = c.group.Wait()
			c.group = nil
			c.running = false
			c.acceptors = make(map[uint64]*member)
			return err
		}
	}
	c.cancel = cancel
	c.log.Info("cluster started", "acceptors", c.cfg.Acceptors)
	return nil
}

// Wait blocks until every goroutine has exited, then closes the transport.
func (c *Cluster) Wait() error {
	c.mu.Lock()
	g := c.group
	c.mu.Unlock()
	if g == nil {
		return ErrNotRunning
	}
	err := g.Wait()

	c.mu.Lock()
	c.running = false
	c.acceptors = make(map[uint64]*member)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.hub.Close()
	c.inbox.Close()
	return err
}

// Submit queues a client value for the proposer.
func (c *Cluster) Submit(ctx context.Context, value uint64) error {
	select {
	case c.clients <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddAcceptor subscribes a new acceptor and returns its id.
func (c *Cluster) AddAcceptor() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0, ErrNotRunning
	}
	return c.addLocked()
}

func (c *Cluster) addLocked() (uint64, error) {
	sub, err := c.hub.Subscribe()
	if err != nil {
		return 0, fmt.Errorf("subscribe acceptor: %w", err)
	}
	c.nextID++
	id := c.nextID
	ctx, cancel := context.WithCancel(c.ctx)
	m := &member{
		acceptor: paxos.NewAcceptor(id, storage.NewMemoryAcceptorStore(), c.log),
		sub:      sub,
		cancel:   cancel,
	}
	c.acceptors[id] = m
	c.group.Go(func() error {
		defer sub.Close()
		err := m.acceptor.Serve(ctx, sub.C(), c.inbox)
		if errors.Is(err, transport.ErrClosed) {
			return nil
		}
		return err
	})
	c.log.Debug("acceptor joined", "id", id, "acceptors", c.hub.ReceiverCount())
	return id, nil
}

// RemoveAcceptor unsubscribes an acceptor. The quorum threshold shrinks
// from the next check on.
func (c *Cluster) RemoveAcceptor(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.acceptors[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	delete(c.acceptors, id)
	m.sub.Close()
	m.cancel()
	c.log.Debug("acceptor left", "id", id, "acceptors", c.hub.ReceiverCount())
	return nil
}

// Acceptor returns a running acceptor by id.
func (c *Cluster) Acceptor(id uint64) (*paxos.Acceptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.acceptors[id]
	if !ok {
		return nil, false
	}
	return m.acceptor, true
}

// AcceptorIDs lists the running acceptors.
func (c *Cluster) AcceptorIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint64, 0, len(c.acceptors))
	for id := range c.acceptors {
		ids = append(ids, id)
	}
	return ids
}
