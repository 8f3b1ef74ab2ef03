// Package g2d4x is the register-level accelerator generation. It drives an
// emulated register window through the shared configuration pipeline.
package g2d4x

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/device/hw"
	"github.com/roach88/blitcore/internal/engine"
	"github.com/roach88/blitcore/internal/pipeline"
)

// Name identifies this generation in the device registry.
const Name = "g2d4x"

// Device implements engine.Ops over a Regs window.
type Device struct {
	regs   *Regs
	gate   *hw.ClockGate
	faults hw.FaultTable
	sink   hw.DumpSink

	// seq of the command last configured, for dumps.
	seq atomic.Uint64
}

var (
	_ engine.Ops             = (*Device)(nil)
	_ engine.InterruptSource = (*Device)(nil)
)

// Option configures a Device.
type Option func(*Device)

// WithLatency sets the emulated transfer time.
//
// Default: 200µs (DefaultLatency)
func WithLatency(d time.Duration) Option {
	return func(dev *Device) {
		dev.regs.latency = d
	}
}

// WithDumpSink also sends register dumps to sink.
func WithDumpSink(sink hw.DumpSink) Option {
	return func(dev *Device) {
		dev.sink = sink
	}
}

// New creates a device with its clock gated off.
func New(opts ...Option) *Device {
	d := &Device{
		regs: NewRegs(DefaultLatency),
		gate: hw.NewClockGate(Name),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Regs returns the register window.
func (d *Device) Regs() *Regs { return d.regs }

// Power returns the clock gate for engine.WithPower.
func (d *Device) Power() engine.Power { return d.gate }

// Gate returns the clock gate.
func (d *Device) Gate() *hw.ClockGate { return d.gate }

// InjectFault arms f for the command with sequence number seq.
func (d *Device) InjectFault(seq uint64, f hw.Fault) {
	d.faults.Set(seq, f)
}

// SetInterruptHandler implements engine.InterruptSource.
func (d *Device) SetInterruptHandler(h func()) {
	d.regs.SetInterruptHandler(h)
}

// Configure implements engine.Ops.
func (d *Device) Configure(_ *engine.State, cmd *blit.Command) (blit.Op, error) {
	if !d.gate.On() {
		slog.Warn("g2d4x: configure with clock gated", "seq", cmd.Seq)
	}
	d.seq.Store(cmd.Seq)
	d.regs.Arm(d.faults.Take(cmd.Seq))
	return pipeline.Configure(&programmer{regs: d.regs}, cmd)
}

// Run implements engine.Ops.
func (d *Device) Run(s *engine.State) {
	slog.Debug("g2d4x: start blit", "seq", d.seq.Load())
	d.regs.Write(RegIntEn, IntDone)
	d.regs.Write(RegIntcPend, IntDone)
	s.ClearSignal()
	s.MarkStarted()
	d.regs.Write(RegBitbltStart, StartBit)
}

// Stop implements engine.Ops.
func (d *Device) Stop(s *engine.State) bool {
	if d.regs.Read(RegFifoStat)&FifoDone == 0 {
		return false
	}
	slog.Debug("g2d4x: blit done", "seq", d.seq.Load())
	d.regs.Write(RegIntEn, 0)
	d.regs.Write(RegIntcPend, IntDone)
	s.Complete()
	return true
}

// Dump implements engine.Ops.
func (d *Device) Dump(_ *engine.State) {
	snap := d.regs.Snapshot()
	seq := d.seq.Load()

	attrs := make([]any, 0, 2+2*len(snap))
	attrs = append(attrs, "seq", seq)
	for _, w := range snap {
		attrs = append(attrs, RegName(w.Off), w.Val)
	}
	slog.Error("g2d4x register dump", attrs...)

	if d.sink != nil {
		if err := d.sink.WriteDump(seq, "registers", Format(snap)); err != nil {
			slog.Error("g2d4x: write register dump", "seq", seq, "error", err)
		}
	}
}
