package engine

import (
	"sync"

	"github.com/roach88/blitcore/internal/blit"
)

// CommandQueue is the thread-safe FIFO of pending commands.
//
// Submitters Add from any goroutine. The drain worker peeks the head with
// Next and removes it with Remove only after the command has finished, so a
// command stays queued (and counted in flight) while it executes.
type CommandQueue struct {
	mu     sync.Mutex
	cmds   []*blit.Command
	closed bool
}

// NewCommandQueue creates an empty queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{
		cmds: make([]*blit.Command, 0, 64),
	}
}

// Add appends cmd, owned by c, and counts it in flight on c.
// Returns false if the queue is closed.
func (q *CommandQueue) Add(c *Context, cmd *blit.Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	cmd.Ctx = c
	c.add(1)
	q.cmds = append(q.cmds, cmd)
	return true
}

// Next implements Queue.
func (q *CommandQueue) Next() *blit.Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.cmds) == 0 {
		return nil
	}
	return q.cmds[0]
}

// Remove implements Queue.
func (q *CommandQueue) Remove(cmd *blit.Command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, c := range q.cmds {
		if c != cmd {
			continue
		}
		copy(q.cmds[i:], q.cmds[i+1:])
		// Nil out the vacated slot so the command can be collected.
		q.cmds[len(q.cmds)-1] = nil
		q.cmds = q.cmds[:len(q.cmds)-1]
		if owner, ok := cmd.Ctx.(*Context); ok {
			owner.add(-1)
		}
		return
	}
}

// Len returns the number of queued commands, including the executing one.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// Close rejects further submissions. Queued commands are still drained.
func (q *CommandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
