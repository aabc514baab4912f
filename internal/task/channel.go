package task

import (
	"sync"

	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

// Channel is a FIFO message queue between execution contexts. A capacity
// of zero or less means unbounded.
type Channel struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []value.Value
	capacity int
	closed   bool
}

// NewChannel creates a channel. capacity <= 0 selects an unbounded queue.
func NewChannel(capacity int) *Channel {
	c := &Channel{capacity: capacity}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Send enqueues v, blocking while a bounded channel is full. Sending on a
// closed channel fails with ChannelClosed.
func (c *Channel) Send(v value.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.capacity > 0 && len(c.items) >= c.capacity && !c.closed {
		c.cond.Wait()
	}
	if c.closed {
		return rterr.New(rterr.ChannelClosed, "send on closed channel")
	}
	c.items = append(c.items, v)
	c.cond.Broadcast()
	return nil
}

// Receive dequeues the oldest message, suspending the caller until one is
// available. Receiving from a closed and drained channel fails with
// ChannelClosed.
func (c *Channel) Receive() (value.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.items) == 0 && !c.closed {
		c.cond.Wait()
	}
	if len(c.items) == 0 {
		return value.Value{}, rterr.New(rterr.ChannelClosed, "receive on closed channel")
	}
	v := c.items[0]
	c.items = c.items[1:]
	c.cond.Broadcast()
	return v, nil
}

// Close marks the channel closed. Queued messages remain receivable.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Len reports the number of queued messages.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
