package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// BoundedChannel is a fixed-capacity FIFO hand-off between two adjacent stages.
//
// Put blocks while the channel is full, Get blocks while it is empty and open.
// Once closed, Put fails with ErrChannelClosed while Get keeps draining the
// pending items and then reports the end of the stream.
type BoundedChannel[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf       []T
	head      int
	size      int
	closed    bool
	highWater int
}

// NewBoundedChannel creates a channel holding at most capacity items.
func NewBoundedChannel[T any](capacity int) (*BoundedChannel[T], error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d", capacity)
	}
	c := &BoundedChannel[T]{
		buf: make([]T, capacity),
	}
	c.notEmpty = sync.NewCond(&c.mu)
	c.notFull = sync.NewCond(&c.mu)

	return c, nil
}

// Put appends item, waiting for room if the channel is full.
// It fails with ErrChannelClosed if the channel is closed, and with the
// context error if ctx is done before room is available.
func (c *BoundedChannel[T]) Put(ctx context.Context, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := c.wakeOnDone(ctx)
	defer stop()

	for c.size == len(c.buf) && !c.closed {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "put")
		}
		c.notFull.Wait()
	}
	if c.closed {
		return ErrChannelClosed
	}

	c.buf[(c.head+c.size)%len(c.buf)] = item
	c.size++
	if c.size > c.highWater {
		c.highWater = c.size
	}
	c.notEmpty.Signal()

	return nil
}

// Get removes and returns the oldest item. ok is false once the channel is
// closed and drained: no item will ever arrive again.
func (c *BoundedChannel[T]) Get(ctx context.Context) (item T, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := c.wakeOnDone(ctx)
	defer stop()

	for c.size == 0 && !c.closed {
		if err := ctx.Err(); err != nil {
			return item, false, errors.Wrap(err, "get")
		}
		c.notEmpty.Wait()
	}
	if c.size == 0 {
		return item, false, nil
	}

	var zero T
	item = c.buf[c.head]
	c.buf[c.head] = zero
	c.head = (c.head + 1) % len(c.buf)
	c.size--
	c.notFull.Signal()

	return item, true, nil
}

// Close marks the channel closed and wakes every blocked caller.
// Closing an already closed channel has no effect.
func (c *BoundedChannel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
}

// Len returns the number of pending items.
func (c *BoundedChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// Cap returns the capacity of the channel.
func (c *BoundedChannel[T]) Cap() int {
	return len(c.buf)
}

// HighWater returns the largest number of items ever pending at once.
func (c *BoundedChannel[T]) HighWater() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.highWater
}

// Closed reports whether Close has been called.
func (c *BoundedChannel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// wakeOnDone broadcasts to every waiter once ctx is done, so that a blocked
// Put or Get can observe the cancellation. Must be called with c.mu held.
func (c *BoundedChannel[T]) wakeOnDone(ctx context.Context) func() bool {
	if ctx.Done() == nil {
		return func() bool { return false }
	}

	return context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.notEmpty.Broadcast()
		c.notFull.Broadcast()
	})
}
