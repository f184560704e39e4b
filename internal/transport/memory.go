// =============================================================================
// IN-MEMORY TRANSPORT
// =============================================================================
//
//   ┌──────────┐  Broadcast   ┌────────────────┐
//   │ Proposer │ ───────────▶ │ Hub            │──▶ sub 1 chan
//   └──────────┘              │  subscribers   │──▶ sub 2 chan
//        ▲                    └────────────────┘──▶ sub 3 chan
//        │ Inbox chan
//        └──────────────────── acceptors Send()
//
// =============================================================================

package transport

import (
	"context"
	"sync"
	"sync/atomic"
)

type Hub[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription[T]
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// NewHub creates a hub whose subscribers each get a channel buffered to
// buffer messages.
func NewHub[T any](buffer int) *Hub[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub[T]{
		subs:   make(map[uint64]*Subscription[T]),
		buffer: buffer,
	}
}

type Subscription[T any] struct {
	id   uint64
	hub  *Hub[T]
	ch   chan T
	once sync.Once
}

// C is closed when the subscription or the hub is closed.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.hub.unsubscribe(s)
}

func (h *Hub[T]) Subscribe() (*Subscription[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	h.nextID++
	sub := &Subscription[T]{
		id:  h.nextID,
		hub: h,
		ch:  make(chan T, h.buffer),
	}
	h.subs[sub.id] = sub
	return sub, nil
}

func (h *Hub[T]) unsubscribe(sub *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	sub.once.Do(func() { close(sub.ch) })
}

func (h *Hub[T]) Broadcast(msg T) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0, ErrClosed
	}
	if len(h.subs) == 0 {
		return 0, ErrNoReceivers
	}
	for _, sub := range h.subs {
		select {
		case sub.ch <- msg:
		default:
			h.dropped.Add(1)
		}
	}
	return len(h.subs), nil
}

// ReceiverCount is the number of live subscribers at the time of the call.
func (h *Hub[T]) ReceiverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// AcceptorCount lets a hub act as the proposer's cluster view.
func (h *Hub[T]) AcceptorCount() int {
	return h.ReceiverCount()
}

// Dropped counts deliveries skipped because a subscriber buffer was full.
func (h *Hub[T]) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes every subscription. Later Broadcasts return ErrClosed.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
}

// Inbox is a many-writer single-reader queue.
type Inbox[T any] struct {
	mu       sync.RWMutex
	ch       chan T
	done     chan struct{}
	doneOnce sync.Once
	closed   bool
}

func NewInbox[T any](buffer int) *Inbox[T] {
	if buffer < 0 {
		buffer = 0
	}
	return &Inbox[T]{
		ch:   make(chan T, buffer),
		done: make(chan struct{}),
	}
}

func (in *Inbox[T]) C() <-chan T { return in.ch }

// Send blocks while the buffer is full, until the message is queued, the
// inbox is closed or ctx is done.
func (in *Inbox[T]) Send(ctx context.Context, msg T) error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.closed {
		return ErrClosed
	}
	select {
	case in.ch <- msg:
		return nil
	case <-in.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *Inbox[T]) Close() {
	// Release blocked senders before taking the write lock.
	in.doneOnce.Do(func() { close(in.done) })
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.closed = true
	close(in.ch)
}
