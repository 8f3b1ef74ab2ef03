package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/device"
	"github.com/roach88/blitcore/internal/device/hw"
	"github.com/roach88/blitcore/internal/device/soft"
	"github.com/roach88/blitcore/internal/engine"
	"github.com/roach88/blitcore/internal/store"
)

// Harness holds the per-run wiring of one scenario.
type Harness struct {
	store    *store.Store
	base     uint64 // highest seq recorded before this run
	recorder *store.Recorder
	memory   *soft.Memory
	device   device.Device
	engine   *engine.Engine
	contexts map[string]*engine.Context
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh device, engine and in-memory database.
// Execution flow:
//  1. Open the store and the device generation
//  2. Pre-fill buffers and arm faults
//  3. Submit every command, then wait for every context
//  4. Read the trace back and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller context bounding the waits.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return RunInStore(ctx, st, scenario)
}

// RunInStore executes a scenario recording its trace into st. Numbering
// continues after the highest seq already in st, so repeated runs can share
// one database; the result only covers this run.
func RunInStore(ctx context.Context, st *store.Store, scenario *Scenario) (*Result, error) {
	h, err := newHarness(ctx, st, scenario)
	if err != nil {
		return nil, err
	}

	if err := h.submit(scenario); err != nil {
		return nil, fmt.Errorf("failed to submit commands: %w", err)
	}
	if err := h.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to drain: %w", err)
	}
	if err := h.recorder.Err(); err != nil {
		return nil, fmt.Errorf("trace store: %w", err)
	}

	result, err := h.result(ctx)
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{Memory: h.memory}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"faulted", result.Faulted,
	)
	return result, nil
}

func newHarness(ctx context.Context, st *store.Store, scenario *Scenario) (*Harness, error) {
	base, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace position: %w", err)
	}

	rec := store.NewRecorder(ctx, st)
	mem := soft.NewMemory()

	for _, b := range scenario.Buffers {
		mem.Alloc(b.DMA, b.Width, b.Height)
		if err := mem.Fill(b.DMA, b.Fill); err != nil {
			return nil, err
		}
	}

	dev, err := device.Open(scenario.Generation, device.Config{
		Latency: scenario.Latency,
		Memory:  mem,
		Dumps:   rec,
	})
	if err != nil {
		return nil, err
	}

	timeout := scenario.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	eng := engine.New(dev,
		engine.WithTimeout(timeout),
		engine.WithPower(dev.Power()),
		engine.WithDiagnostics(rec),
		engine.WithTracer(rec),
		engine.WithIDGenerator(engine.NewFixedGenerator("ctx")),
		engine.WithClock(engine.NewClockAt(base)),
	)

	return &Harness{
		store:    st,
		base:     base,
		recorder: rec,
		memory:   mem,
		device:   dev,
		engine:   eng,
		contexts: make(map[string]*engine.Context),
	}, nil
}

// submit sends every command in file order. The engine clock resumes after
// base, so command i gets seq base+i+1; faults are armed for that seq
// beforehand.
func (h *Harness) submit(scenario *Scenario) error {
	for _, i := range scenario.Faults.Hang {
		h.device.InjectFault(h.base+uint64(i+1), hw.FaultHang)
	}
	for _, i := range scenario.Faults.LostIRQ {
		h.device.InjectFault(h.base+uint64(i+1), hw.FaultLostIRQ)
	}

	for i, step := range scenario.Commands {
		c, ok := h.contexts[step.Context]
		if !ok {
			c = h.engine.NewContext()
			h.contexts[step.Context] = c
		}

		cmd := step.Command()
		for _, s := range []blit.Surface{cmd.Src, cmd.Msk, cmd.Dst} {
			if s.Backed() {
				h.memory.Ensure(s)
			}
		}

		if err := h.engine.Submit(c, cmd); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

// wait blocks until every context drained and the engine went idle.
func (h *Harness) wait(ctx context.Context) error {
	for name, c := range h.contexts {
		if err := c.Wait(ctx); err != nil {
			return fmt.Errorf("context %s: %w", name, err)
		}
	}
	select {
	case <-h.engine.Idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// result reads this run's part of the trace back from the store.
func (h *Harness) result(ctx context.Context) (*Result, error) {
	rows, err := h.store.ReadBlits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	result := NewResult()
	result.Base = h.base
	for _, row := range rows {
		if row.Seq <= h.base {
			continue
		}
		ev := TraceEvent{
			Seq:         row.Seq,
			Context:     row.ContextID,
			Op:          row.Op,
			EffectiveOp: row.EffectiveOp,
			Outcome:     row.Outcome,
			Error:       row.Error,
			Started:     row.Started,
		}

		dumps, err := h.store.ReadDumps(ctx, row.Seq)
		if err != nil {
			return nil, fmt.Errorf("failed to read dumps of seq %d: %w", row.Seq, err)
		}
		for _, d := range dumps {
			ev.Dumps = append(ev.Dumps, d.Kind)
		}
		result.Trace = append(result.Trace, ev)
	}

	state := h.engine.State()
	result.Faulted = state.Faulted()
	result.HardwareStarts = state.Starts()
	return result, nil
}
