package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/blitcore/internal/blit"
)

// Engine ties the state, the command queue and the supervisor of one
// accelerator together and provides the submission path.
//
// Thread-safety model:
//   - Submit, NewContext: safe from any goroutine
//   - Register: once, before the first Submit
//   - the drain worker is started by Submit; callers never run it
type Engine struct {
	state *State
	queue *CommandQueue
	clock *Clock
	ids   IDGenerator
	sup   *Supervisor

	regMu      sync.Mutex
	registered bool

	// idle is closed when a drain activation ends with an empty queue.
	idleMu sync.Mutex
	idle   chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the completion wait bound.
//
// Default: 2s (DefaultTimeout)
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.sup.timeout = d
	}
}

// WithPower sets the clock/power gate acquired around each drain activation.
func WithPower(p Power) Option {
	return func(e *Engine) {
		e.sup.power = p
	}
}

// WithDiagnostics sets the postmortem command dumper.
// Default: structured log via slog.
func WithDiagnostics(d Diagnostics) Option {
	return func(e *Engine) {
		e.sup.diag = d
	}
}

// WithTracer sets the per-command trace sink.
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		e.sup.tracer = t
	}
}

// WithIDGenerator sets the context id generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the sequence clock. Used to resume numbering.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// ErrNotRegistered is returned by Submit before an Ops table is registered.
var ErrNotRegistered = errors.New("no device operations registered")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("engine closed")

// New creates an engine. If ops is non-nil it is registered immediately.
func New(ops Ops, opts ...Option) *Engine {
	state := NewState()
	queue := NewCommandQueue()
	e := &Engine{
		state: state,
		queue: queue,
		clock: NewClock(),
		ids:   UUIDv7Generator{},
		sup: &Supervisor{
			state:   state,
			queue:   queue,
			power:   nopPower{},
			diag:    logDiagnostics{},
			tracer:  nopTracer{},
			timeout: DefaultTimeout,
		},
		idle: make(chan struct{}),
	}
	close(e.idle)

	for _, opt := range opts {
		opt(e)
	}

	if ops != nil {
		// Cannot fail on a fresh engine.
		_ = e.Register(ops)
	}
	return e
}

// Register binds the device operations table. It may be called once.
// Devices implementing InterruptSource get a handler routing their
// completion interrupt to ops.Stop.
func (e *Engine) Register(ops Ops) error {
	e.regMu.Lock()
	defer e.regMu.Unlock()

	if e.registered {
		return fmt.Errorf("register ops: already registered")
	}
	if ops == nil {
		return fmt.Errorf("register ops: nil table")
	}

	e.sup.ops = ops
	if irq, ok := ops.(InterruptSource); ok {
		irq.SetInterruptHandler(func() {
			ops.Stop(e.state)
		})
	}
	e.registered = true

	slog.Info("device operations registered", "ops", fmt.Sprintf("%T", ops))
	return nil
}

// State returns the engine state.
func (e *Engine) State() *State { return e.state }

// Clock returns the sequence clock.
func (e *Engine) Clock() *Clock { return e.clock }

// QueueLen returns the number of queued commands.
func (e *Engine) QueueLen() int { return e.queue.Len() }

// NewContext creates a submission context with a generated id.
func (e *Engine) NewContext() *Context {
	return NewContext(e.ids.Generate())
}

// Submit queues cmd for execution on behalf of c and starts a drain
// activation if the engine is inactive. It does not wait for execution;
// use c.Wait for that.
func (e *Engine) Submit(c *Context, cmd *blit.Command) error {
	e.regMu.Lock()
	registered := e.registered
	e.regMu.Unlock()
	if !registered {
		return ErrNotRegistered
	}

	if !e.enqueue(c, cmd) {
		return ErrClosed
	}

	slog.Debug("blit submitted", "seq", cmd.Seq, "context", c.ID(), "op", cmd.Op)
	e.kick()
	return nil
}

// Idle returns a channel closed once no drain activation is running and the
// queue is empty.
func (e *Engine) Idle() <-chan struct{} {
	e.idleMu.Lock()
	defer e.idleMu.Unlock()
	return e.idle
}

// Close rejects further submissions. Queued commands still drain.
func (e *Engine) Close() {
	e.queue.Close()
}

// enqueue numbers cmd, adds it and re-arms the idle channel under idleMu, so
// seq order is queue order and signalIdle never observes an empty queue
// between the add and the re-arm.
func (e *Engine) enqueue(c *Context, cmd *blit.Command) bool {
	e.idleMu.Lock()
	defer e.idleMu.Unlock()
	cmd.Seq = e.clock.Next()
	if !e.queue.Add(c, cmd) {
		return false
	}
	select {
	case <-e.idle:
		e.idle = make(chan struct{})
	default:
	}
	return true
}

// kick starts a drain activation unless one is running.
func (e *Engine) kick() {
	if e.state.active.CompareAndSwap(false, true) {
		go e.activate()
	}
}

// activate runs drain activations until the queue stays empty. A submission
// racing with the end of an activation finds active already cleared and
// either kicks a new activation itself or is picked up by the re-check here.
func (e *Engine) activate() {
	for {
		e.sup.Drain()
		if e.queue.Len() == 0 || !e.state.active.CompareAndSwap(false, true) {
			break
		}
	}
	e.signalIdle()
}

func (e *Engine) signalIdle() {
	e.idleMu.Lock()
	defer e.idleMu.Unlock()
	if e.queue.Len() != 0 || e.state.Active() {
		return
	}
	select {
	case <-e.idle:
	default:
		close(e.idle)
	}
}
