package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/blitcore/internal/blit"
)

// DefaultTimeout bounds the wait for a completion signal.
const DefaultTimeout = 2 * time.Second

// Supervisor drains the queue on a single worker and owns the hardware for
// the duration of each command.
type Supervisor struct {
	state   *State
	ops     Ops
	queue   Queue
	power   Power
	diag    Diagnostics
	tracer  Tracer
	timeout time.Duration
}

// Drain runs one drain activation: it executes queued commands in FIFO order
// until the queue is empty, then marks the engine inactive. Power is acquired
// once on entry and released once on exit.
//
// CRITICAL: at most one Drain may run at a time. Engine enforces this through
// the active flag; callers using a Supervisor directly must do the same.
func (s *Supervisor) Drain() {
	slog.Debug("enter blitter")
	s.state.active.Store(true)
	s.power.Acquire()

	for {
		cmd := s.queue.Next()
		if cmd == nil {
			break
		}
		rec := s.execute(cmd)
		s.finish(cmd, rec)
	}

	s.state.active.Store(false)
	s.power.Release()
	slog.Debug("exit blitter")
}

// execute takes one command through configure, run and wait.
func (s *Supervisor) execute(cmd *blit.Command) TraceRecord {
	rec := TraceRecord{
		Seq:       cmd.Seq,
		Op:        cmd.Op,
		Effective: cmd.Op,
	}
	if cmd.Ctx != nil {
		rec.Context = cmd.Ctx.ID()
	}

	if s.state.Faulted() {
		slog.Error("device error, draining command without execution", "seq", cmd.Seq)
		rec.Outcome = OutcomeDrained
		rec.Err = &DeviceError{Code: ErrCodeFaulted, Seq: cmd.Seq}
		return rec
	}

	if !s.state.busy.CompareAndSwap(false, true) {
		// Only a completion arriving for an abandoned transfer can leave
		// busy set here; the sticky error prevents that, so this is a bug.
		slog.Error("engine busy at command start", "seq", cmd.Seq)
		s.state.busy.Store(true)
	}
	defer s.state.busy.Store(false)

	s.state.setPhase(PhaseConfiguring)
	op, err := s.ops.Configure(s.state, cmd)
	rec.Effective = op
	switch {
	case errors.Is(err, ErrSkip):
		slog.Debug("blit skipped", "seq", cmd.Seq, "op", cmd.Op, "effective", op)
		rec.Outcome = OutcomeSkipped
		s.state.setPhase(PhaseIdle)
		return rec
	case err != nil:
		slog.Error("blit configuration failed", "seq", cmd.Seq, "op", cmd.Op, "error", err)
		rec.Outcome = OutcomeRejected
		rec.Err = err
		s.state.setPhase(PhaseIdle)
		return rec
	}

	s.tracer.BlitStart(cmd)
	s.state.setPhase(PhaseRunning)
	s.ops.Run(s.state)

	rec.Outcome, rec.Err = s.await(cmd)
	if rec.Outcome != OutcomeFailed {
		s.state.setPhase(PhaseIdle)
	}
	return rec
}

// await blocks for the completion signal with a bounded timeout. A timeout
// gets one status re-check, covering a signal that was raised but missed.
func (s *Supervisor) await(cmd *blit.Command) (Outcome, error) {
	s.state.setPhase(PhaseAwaiting)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-s.state.done:
		return OutcomeCompleted, nil
	case <-timer.C:
	}

	slog.Error("blit wait timeout", "seq", cmd.Seq, "timeout", s.timeout)
	s.diag.DumpCommand(cmd)

	s.state.setPhase(PhaseRecheck)
	if s.ops.Stop(s.state) {
		slog.Warn("blit completion found on status re-check", "seq", cmd.Seq)
		return OutcomeRecovered, nil
	}

	s.state.fault()
	s.ops.Dump(s.state)
	return OutcomeFailed, &DeviceError{Code: ErrCodeTimeout, Seq: cmd.Seq, Timeout: s.timeout}
}

// finish dequeues cmd and wakes its context if it was the last one in flight.
// The supervisor keeps no reference to cmd afterwards.
func (s *Supervisor) finish(cmd *blit.Command, rec TraceRecord) {
	s.tracer.BlitEnd(rec)

	s.queue.Remove(cmd)

	if owner := cmd.Ctx; owner != nil && owner.InFlight() == 0 {
		owner.WakeAll()
	}

	slog.Debug("blit finished",
		"seq", rec.Seq,
		"context", rec.Context,
		"op", rec.Op,
		"effective", rec.Effective,
		"outcome", rec.Outcome,
	)
}
