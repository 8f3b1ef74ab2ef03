// Package soft is the software renderer generation. It executes commands
// on in-memory RGBA buffers addressed by DMA address, with the same
// configure/run/stop contract and completion interrupt as the register-level
// generation.
package soft

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/device/hw"
	"github.com/roach88/blitcore/internal/engine"
	"github.com/roach88/blitcore/internal/pipeline"
)

// Name identifies this generation in the device registry.
const Name = "soft"

// Device implements engine.Ops by rendering in software.
type Device struct {
	mem     *Memory
	gate    *hw.ClockGate
	faults  hw.FaultTable
	sink    hw.DumpSink
	latency time.Duration

	// next is programmed by Configure. Only the drain goroutine touches it.
	next plan
	seq  uint64

	mu      sync.Mutex
	fault   hw.Fault
	gen     uint64
	done    bool
	irqEn   bool
	irq     func()
	lastErr error
}

var (
	_ engine.Ops             = (*Device)(nil)
	_ engine.InterruptSource = (*Device)(nil)
)

// Option configures a Device.
type Option func(*Device)

// WithLatency adds a fixed delay before each transfer renders.
func WithLatency(d time.Duration) Option {
	return func(dev *Device) {
		dev.latency = d
	}
}

// WithDumpSink also sends plan dumps to sink.
func WithDumpSink(sink hw.DumpSink) Option {
	return func(dev *Device) {
		dev.sink = sink
	}
}

// New creates a device rendering into mem. A nil mem gets a fresh Memory.
func New(mem *Memory, opts ...Option) *Device {
	if mem == nil {
		mem = NewMemory()
	}
	d := &Device{
		mem:  mem,
		gate: hw.NewClockGate(Name),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Memory returns the buffer space.
func (d *Device) Memory() *Memory { return d.mem }

// Power returns the clock gate for engine.WithPower.
func (d *Device) Power() engine.Power { return d.gate }

// Gate returns the clock gate.
func (d *Device) Gate() *hw.ClockGate { return d.gate }

// InjectFault arms f for the command with sequence number seq.
func (d *Device) InjectFault(seq uint64, f hw.Fault) {
	d.faults.Set(seq, f)
}

// LastError returns the error of the most recent failed transfer.
func (d *Device) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// SetInterruptHandler implements engine.InterruptSource.
func (d *Device) SetInterruptHandler(h func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.irq = h
}

// Configure implements engine.Ops.
func (d *Device) Configure(_ *engine.State, cmd *blit.Command) (blit.Op, error) {
	d.seq = cmd.Seq
	f := d.faults.Take(cmd.Seq)

	d.mu.Lock()
	d.fault = f
	d.mu.Unlock()

	return pipeline.Configure(programmer{p: &d.next}, cmd)
}

// Run implements engine.Ops.
func (d *Device) Run(s *engine.State) {
	p := d.next
	seq := d.seq

	d.mu.Lock()
	d.gen++
	gen := d.gen
	fault := d.fault
	d.fault = hw.FaultNone
	d.done = false
	d.irqEn = true
	d.mu.Unlock()

	s.ClearSignal()
	s.MarkStarted()
	slog.Debug("soft: start blit", "seq", seq, "op", p.op)

	if fault == hw.FaultHang {
		slog.Debug("soft: injected hang", "seq", seq)
		return
	}
	go d.execute(gen, seq, &p, fault)
}

func (d *Device) execute(gen, seq uint64, p *plan, fault hw.Fault) {
	if d.latency > 0 {
		time.Sleep(d.latency)
	}

	if err := render(p, d.mem); err != nil {
		// The engine stalls; the supervisor sees a timeout.
		slog.Error("soft: transfer aborted", "seq", seq, "error", err)
		d.mu.Lock()
		d.lastErr = err
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.done = true
	raise := d.irqEn && fault != hw.FaultLostIRQ
	irq := d.irq
	d.mu.Unlock()

	if fault == hw.FaultLostIRQ {
		slog.Debug("soft: injected lost interrupt", "seq", seq)
	}
	if raise && irq != nil {
		irq()
	}
}

// Stop implements engine.Ops.
func (d *Device) Stop(s *engine.State) bool {
	d.mu.Lock()
	if !d.done {
		d.mu.Unlock()
		return false
	}
	d.irqEn = false
	d.mu.Unlock()

	slog.Debug("soft: blit done")
	s.Complete()
	return true
}

// Dump implements engine.Ops.
func (d *Device) Dump(_ *engine.State) {
	body := d.next.String()
	slog.Error("soft engine dump", "seq", d.seq, "plan", body)
	if d.sink != nil {
		if err := d.sink.WriteDump(d.seq, "plan", body); err != nil {
			slog.Error("soft: write plan dump", "seq", d.seq, "error", err)
		}
	}
}
