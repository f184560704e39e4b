package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub[int](4)
	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)

	n, err := hub.Broadcast(42)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 42, <-a.C())
	assert.Equal(t, 42, <-b.C())
}

func TestHubNoReceivers(t *testing.T) {
	hub := NewHub[int](1)
	n, err := hub.Broadcast(1)
	assert.ErrorIs(t, err, ErrNoReceivers)
	assert.Zero(t, n)
}

func TestHubReceiverCountTracksMembership(t *testing.T) {
	hub := NewHub[int](1)
	assert.Equal(t, 0, hub.AcceptorCount())

	a, _ := hub.Subscribe()
	b, _ := hub.Subscribe()
	assert.Equal(t, 2, hub.ReceiverCount())

	a.Close()
	a.Close()
	assert.Equal(t, 1, hub.ReceiverCount())

	_, open := <-a.C()
	assert.False(t, open)

	b.Close()
	assert.Equal(t, 0, hub.AcceptorCount())
}

func TestHubBroadcastDoesNotBlockOnFullSubscriber(t *testing.T) {
	hub := NewHub[int](1)
	slow, _ := hub.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_, _ = hub.Broadcast(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
	assert.Equal(t, 0, <-slow.C())
	assert.Equal(t, uint64(9), hub.Dropped())
}

func TestHubClose(t *testing.T) {
	hub := NewHub[int](1)
	sub, _ := hub.Subscribe()
	hub.Close()
	hub.Close()

	_, open := <-sub.C()
	assert.False(t, open)

	_, err := hub.Broadcast(1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, ErrClosed)
	sub.Close()
}

func TestInboxSendReceive(t *testing.T) {
	in := NewInbox[string](2)
	require.NoError(t, in.Send(context.Background(), "a"))
	require.NoError(t, in.Send(context.Background(), "b"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, in.Send(ctx, "c"), context.DeadlineExceeded, "buffer is full")

	assert.Equal(t, "a", <-in.C())
	assert.Equal(t, "b", <-in.C())
}

func TestInboxCloseReleasesBlockedSenders(t *testing.T) {
	in := NewInbox[int](0)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			errs <- in.Send(context.Background(), v)
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	in.Close()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
	assert.ErrorIs(t, in.Send(context.Background(), 1), ErrClosed)
}

func TestInboxSendHonorsContext(t *testing.T) {
	in := NewInbox[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, in.Send(ctx, 1), context.DeadlineExceeded)
}
