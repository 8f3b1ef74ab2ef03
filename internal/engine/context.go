package engine

import (
	"context"
	"sync"
)

// Context is a submission context: the commands of one client, counted
// while in flight, with waiters woken when the count drops to zero.
//
// Thread-safety: all methods are safe for concurrent use.
type Context struct {
	id string

	mu       sync.Mutex
	inFlight int
	wake     chan struct{} // closed by WakeAll, then replaced
}

// NewContext creates a context with the given id.
func NewContext(id string) *Context {
	return &Context{id: id, wake: make(chan struct{})}
}

// ID implements blit.Owner.
func (c *Context) ID() string { return c.id }

// InFlight implements blit.Owner.
func (c *Context) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// WakeAll implements blit.Owner.
func (c *Context) WakeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.wake)
	c.wake = make(chan struct{})
}

// Wait blocks until the context has no commands in flight or ctx is done.
func (c *Context) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.inFlight == 0 {
			c.mu.Unlock()
			return nil
		}
		wake := c.wake
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (c *Context) add(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight += n
}
