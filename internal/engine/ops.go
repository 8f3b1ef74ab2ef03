package engine

import (
	"log/slog"

	"github.com/roach88/blitcore/internal/blit"
)

// Ops is the device operations table. One hardware generation supplies it at
// initialization; the supervisor never calls the generation directly.
type Ops interface {
	// Configure programs the device for cmd and returns the effective
	// operator. It returns ErrSkip when there is nothing to execute.
	Configure(s *State, cmd *blit.Command) (blit.Op, error)

	// Run clears any stale completion signal and starts the transfer.
	Run(s *State)

	// Stop is the completion handler. If the hardware reports the transfer
	// done it acknowledges the interrupt, calls s.Complete and returns true.
	Stop(s *State) bool

	// Dump writes the device registers to the diagnostic log.
	Dump(s *State)
}

// InterruptSource is implemented by devices that raise a completion
// interrupt. Register installs a handler that calls Ops.Stop.
type InterruptSource interface {
	SetInterruptHandler(func())
}

// Queue is the pending command queue as seen by the drain worker.
type Queue interface {
	// Next returns the head command without removing it, or nil when empty.
	Next() *blit.Command
	// Remove drops cmd from the queue and decrements its context's in-flight count.
	Remove(cmd *blit.Command)
}

// Power gates clocks and power domains around a drain activation.
type Power interface {
	Acquire()
	Release()
}

// Diagnostics receives postmortem dumps. It has no effect on control flow.
type Diagnostics interface {
	DumpCommand(cmd *blit.Command)
}

// TraceRecord is the result of one command.
type TraceRecord struct {
	Seq       uint64
	Context   string
	Op        blit.Op
	Effective blit.Op
	Outcome   Outcome
	Err       error
}

// Tracer receives start and end events for each command.
type Tracer interface {
	// BlitStart is called immediately before the hardware is started.
	BlitStart(cmd *blit.Command)
	// BlitEnd is called once per command, before its context is notified.
	BlitEnd(rec TraceRecord)
}

type nopPower struct{}

func (nopPower) Acquire() {}
func (nopPower) Release() {}

type nopTracer struct{}

func (nopTracer) BlitStart(*blit.Command) {}
func (nopTracer) BlitEnd(TraceRecord)     {}

// logDiagnostics dumps commands to the structured log.
type logDiagnostics struct{}

func (logDiagnostics) DumpCommand(cmd *blit.Command) {
	p := &cmd.Params
	slog.Error("blit command dump",
		"seq", cmd.Seq,
		"op", cmd.Op,
		"global_alpha", p.GlobalAlpha,
		"solid_color", p.SolidColor,
		"premultiplied", p.Premultiplied,
		"repeat", p.Repeat.Mode,
		"scaling", p.Scaling.Mode,
		"rotate", p.Rotate,
		"src", surfaceAttr(cmd.Src),
		"msk", surfaceAttr(cmd.Msk),
		"dst", surfaceAttr(cmd.Dst),
	)
}

func surfaceAttr(s blit.Surface) slog.Value {
	return slog.GroupValue(
		slog.String("addr", s.Addr.String()),
		slog.String("format", s.Format.String()),
		slog.String("rect", s.Rect.String()),
		slog.Uint64("dma", s.DMA),
	)
}

// MultiTracer fans events out to several tracers in order.
type MultiTracer []Tracer

func (m MultiTracer) BlitStart(cmd *blit.Command) {
	for _, t := range m {
		t.BlitStart(cmd)
	}
}

func (m MultiTracer) BlitEnd(rec TraceRecord) {
	for _, t := range m {
		t.BlitEnd(rec)
	}
}
