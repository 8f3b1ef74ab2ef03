package g2d4x

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/blitcore/internal/device/hw"
)

// DefaultLatency is the emulated transfer time.
const DefaultLatency = 200 * time.Microsecond

// Write is one logged register write.
type Write struct {
	Off uint32
	Val uint32
}

func (w Write) String() string {
	return fmt.Sprintf("%s=0x%08X", RegName(w.Off), w.Val)
}

// Regs emulates the register window. Writes to RegBitbltStart begin a
// transfer that finishes after the configured latency: the done status is
// set, the pending bit latched and, if enabled, the interrupt raised.
//
// Thread-safety: all methods are safe for concurrent use. The interrupt
// handler runs on a timer goroutine without the lock held.
type Regs struct {
	mu      sync.Mutex
	file    [RegSpace / 4]uint32
	log     []Write
	latency time.Duration
	fault   hw.Fault
	gen     uint64 // transfer generation, stale timers compare against it
	irq     func()
}

// NewRegs creates a register file in its reset state.
func NewRegs(latency time.Duration) *Regs {
	return &Regs{latency: latency}
}

// SetInterruptHandler installs the completion interrupt handler.
func (r *Regs) SetInterruptHandler(h func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.irq = h
}

// Arm applies f to the next transfer started.
func (r *Regs) Arm(f hw.Fault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fault = f
}

// Read returns the register at off.
func (r *Regs) Read(off uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file[off/4]
}

// Write stores val at off, applying the register's side effects.
func (r *Regs) Write(off, val uint32) {
	if off >= RegSpace || off%4 != 0 {
		slog.Error("g2d4x: bad register write", "offset", RegName(off), "value", val)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch off {
	case RegSoftReset:
		if val&ResetBit != 0 {
			r.reset()
		}
		return
	case RegIntcPend:
		r.file[off/4] &^= val
		// Acknowledging the done interrupt retires the done status with it.
		if val&IntDone != 0 {
			r.file[RegFifoStat/4] &^= FifoDone
		}
	case RegFifoStat:
		// Read-only.
		return
	case RegBitbltStart:
		if val&StartBit != 0 {
			r.start()
		}
	default:
		r.file[off/4] = val
	}
	r.log = append(r.log, Write{Off: off, Val: val})
}

// Writes returns the writes logged since the last soft reset.
func (r *Regs) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Write(nil), r.log...)
}

// Snapshot returns every non-zero register, ordered by offset.
func (r *Regs) Snapshot() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Write
	for i, v := range r.file {
		if v != 0 {
			out = append(out, Write{Off: uint32(i * 4), Val: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Off < out[j].Off })
	return out
}

// Format renders a snapshot one register per line.
func Format(regs []Write) string {
	var b strings.Builder
	for _, w := range regs {
		fmt.Fprintf(&b, "%-16s [0x%03X] 0x%08X\n", RegName(w.Off), w.Off, w.Val)
	}
	return b.String()
}

// reset clears configuration state. Interrupt enable, pending and status
// survive, as on the hardware.
func (r *Regs) reset() {
	keep := [...]uint32{RegIntEn, RegIntcPend, RegFifoStat}
	var saved [len(keep)]uint32
	for i, off := range keep {
		saved[i] = r.file[off/4]
	}
	r.file = [RegSpace / 4]uint32{}
	for i, off := range keep {
		r.file[off/4] = saved[i]
	}
	r.log = r.log[:0]
}

func (r *Regs) start() {
	r.gen++
	gen := r.gen
	fault := r.fault
	r.fault = hw.FaultNone

	r.file[RegFifoStat/4] &^= FifoDone

	if fault == hw.FaultHang {
		slog.Debug("g2d4x: injected hang")
		return
	}
	time.AfterFunc(r.latency, func() { r.finish(gen, fault) })
}

func (r *Regs) finish(gen uint64, fault hw.Fault) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.file[RegFifoStat/4] |= FifoDone
	r.file[RegIntcPend/4] |= IntDone
	raise := r.file[RegIntEn/4]&IntDone != 0 && fault != hw.FaultLostIRQ
	irq := r.irq
	r.mu.Unlock()

	if fault == hw.FaultLostIRQ {
		slog.Debug("g2d4x: injected lost interrupt")
	}
	if raise && irq != nil {
		irq()
	}
}
