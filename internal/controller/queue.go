package controller

import (
	"context"
	"sync"
	"time"
)

// DefaultSendTimeout is how long Send waits for space in a full channel.
const DefaultSendTimeout = 100 * time.Millisecond

// Queue is the bounded multi-producer, single-consumer command channel
// between producers (clients, triggers) and the owner.
type Queue struct {
	ch          chan Envelope
	sendTimeout time.Duration
	stopped     chan struct{}
	stopOnce    sync.Once
}

// NewQueue creates a command channel holding up to capacity envelopes.
// A non-positive sendTimeout selects DefaultSendTimeout.
func NewQueue(capacity int, sendTimeout time.Duration) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Queue{
		ch:          make(chan Envelope, capacity),
		sendTimeout: sendTimeout,
		stopped:     make(chan struct{}),
	}
}

// Send enqueues env, waiting at most the send timeout for space.
//
// Returns:
//   - ErrChannelFull: the channel stayed full for the whole timeout
//   - ErrOwnerStopped: the owner has exited
//   - ctx.Err(): the caller gave up first
func (q *Queue) Send(ctx context.Context, env Envelope) error {
	select {
	case <-q.stopped:
		return ErrOwnerStopped
	default:
	}

	select {
	case q.ch <- env:
		return nil
	default:
	}

	timer := time.NewTimer(q.sendTimeout)
	defer timer.Stop()

	select {
	case q.ch <- env:
		return nil
	case <-timer.C:
		return ErrChannelFull
	case <-q.stopped:
		return ErrOwnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the receive side, read only by the owner.
func (q *Queue) C() <-chan Envelope {
	return q.ch
}

// Len returns the number of queued envelopes.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the channel capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Stopped is closed once the owner has exited.
func (q *Queue) Stopped() <-chan struct{} {
	return q.stopped
}

// markStopped rejects further sends. The channel itself is never closed so
// a producer racing with shutdown cannot panic.
func (q *Queue) markStopped() {
	q.stopOnce.Do(func() { close(q.stopped) })
}
