package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/blitcore/internal/blit"
)

const testTimeout = 30 * time.Millisecond

type behavior int

const (
	behaveComplete behavior = iota
	behaveLostIRQ
	behaveHang
)

// fakeOps is a device whose completion behaviour is chosen per seq.
type fakeOps struct {
	mu        sync.Mutex
	behave    map[uint64]behavior
	irq       func()
	current   uint64
	statusOK  bool
	runs      []uint64
	busyAtRun []bool
	stops     int
	dumps     int
}

func newFakeOps() *fakeOps {
	return &fakeOps{behave: make(map[uint64]behavior)}
}

func (f *fakeOps) set(seq uint64, b behavior) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behave[seq] = b
}

func (f *fakeOps) SetInterruptHandler(h func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.irq = h
}

func (f *fakeOps) Configure(_ *State, cmd *blit.Command) (blit.Op, error) {
	op := cmd.EffectiveOp()
	if err := cmd.Validate(); err != nil {
		return op, err
	}
	if op == blit.OpDst {
		return op, ErrSkip
	}
	f.mu.Lock()
	f.current = cmd.Seq
	f.mu.Unlock()
	return op, nil
}

func (f *fakeOps) Run(s *State) {
	s.ClearSignal()
	s.MarkStarted()

	f.mu.Lock()
	f.statusOK = false
	f.runs = append(f.runs, f.current)
	f.busyAtRun = append(f.busyAtRun, s.Busy())
	b := f.behave[f.current]
	irq := f.irq
	f.mu.Unlock()

	switch b {
	case behaveComplete:
		go func() {
			f.mu.Lock()
			f.statusOK = true
			f.mu.Unlock()
			irq()
		}()
	case behaveLostIRQ:
		f.mu.Lock()
		f.statusOK = true
		f.mu.Unlock()
	case behaveHang:
	}
}

func (f *fakeOps) Stop(s *State) bool {
	f.mu.Lock()
	f.stops++
	done := f.statusOK
	f.statusOK = false
	f.mu.Unlock()
	if !done {
		return false
	}
	s.Complete()
	return true
}

func (f *fakeOps) Dump(*State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dumps++
}

func (f *fakeOps) ranSeqs() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.runs...)
}

type recTracer struct {
	mu     sync.Mutex
	starts []uint64
	ends   []TraceRecord
}

func (r *recTracer) BlitStart(cmd *blit.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, cmd.Seq)
}

func (r *recTracer) BlitEnd(rec TraceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, rec)
}

func (r *recTracer) records() []TraceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceRecord(nil), r.ends...)
}

func (r *recTracer) outcomes() []Outcome {
	var out []Outcome
	for _, rec := range r.records() {
		out = append(out, rec.Outcome)
	}
	return out
}

type countPower struct {
	acquired atomic.Int32
	released atomic.Int32
}

func (p *countPower) Acquire() { p.acquired.Add(1) }
func (p *countPower) Release() { p.released.Add(1) }

type countDiag struct{ n atomic.Int32 }

func (d *countDiag) DumpCommand(*blit.Command) { d.n.Add(1) }

func memSurface() blit.Surface {
	return blit.Surface{
		Addr:   blit.AddrMemory,
		Format: blit.FormatARGB8888,
		Width:  8,
		Height: 8,
		Rect:   blit.Rect{X1: 0, Y1: 0, X2: 8, Y2: 8},
	}
}

func testCmd(op blit.Op) *blit.Command {
	return &blit.Command{
		Op:     op,
		Params: blit.Params{GlobalAlpha: 0xff},
		Src:    memSurface(),
		Dst:    memSurface(),
	}
}

// newTestSupervisor builds a supervisor over q with the fake's interrupt
// wired straight to Stop.
func newTestSupervisor(f *fakeOps, q *CommandQueue, tr Tracer) (*Supervisor, *State) {
	st := NewState()
	f.SetInterruptHandler(func() { f.Stop(st) })
	if tr == nil {
		tr = nopTracer{}
	}
	return &Supervisor{
		state:   st,
		ops:     f,
		queue:   q,
		power:   nopPower{},
		diag:    logDiagnostics{},
		tracer:  tr,
		timeout: testTimeout,
	}, st
}
