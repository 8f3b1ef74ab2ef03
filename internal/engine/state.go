package engine

import (
	"fmt"
	"sync/atomic"
)

// Phase is the supervisor's position in the per-command state machine.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseConfiguring
	PhaseRunning
	PhaseAwaiting
	// PhaseRecheck is the single grace status check after a wait timeout.
	PhaseRecheck
	// PhaseError is terminal until Reset.
	PhaseError
)

var phaseNames = []string{"idle", "configuring", "running", "awaiting", "recheck", "error"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// State is the engine state of one physical accelerator. It is created once
// and lives as long as the driver.
type State struct {
	busy   atomic.Bool
	active atomic.Bool
	err    atomic.Bool
	phase  atomic.Int32

	// starts counts hardware starts since creation.
	starts atomic.Uint64

	// done carries the completion signal from the interrupt path to the
	// drain worker. Buffered so Complete never blocks.
	done chan struct{}

	// observe, if set, is called on every phase change. Test hook.
	observe func(Phase)
}

// NewState creates an idle engine state.
func NewState() *State {
	return &State{done: make(chan struct{}, 1)}
}

// Busy reports whether a command currently owns the hardware.
func (s *State) Busy() bool { return s.busy.Load() }

// Active reports whether a drain activation is running.
func (s *State) Active() bool { return s.active.Load() }

// Faulted reports the sticky device error.
func (s *State) Faulted() bool { return s.err.Load() }

// Phase returns the current supervisor phase.
func (s *State) Phase() Phase { return Phase(s.phase.Load()) }

// Starts returns the number of hardware starts issued.
func (s *State) Starts() uint64 { return s.starts.Load() }

// Complete is called from the device's completion path once the hardware
// reports the transfer finished. It releases the hardware and wakes the
// drain worker.
func (s *State) Complete() {
	s.busy.Store(false)
	select {
	case s.done <- struct{}{}:
	default:
	}
}

// ClearSignal discards a completion signal left over from an earlier
// transfer. Devices call it from Run before starting the hardware.
func (s *State) ClearSignal() {
	select {
	case <-s.done:
	default:
	}
}

// MarkStarted records a hardware start. Devices call it from Run.
func (s *State) MarkStarted() {
	s.starts.Add(1)
}

// Reset clears the sticky device error. This is the external reset; the
// supervisor never calls it.
func (s *State) Reset() {
	s.err.Store(false)
	s.busy.Store(false)
	s.ClearSignal()
	s.setPhase(PhaseIdle)
}

func (s *State) setPhase(p Phase) {
	s.phase.Store(int32(p))
	if s.observe != nil {
		s.observe(p)
	}
}

func (s *State) fault() {
	s.err.Store(true)
	s.setPhase(PhaseError)
}
