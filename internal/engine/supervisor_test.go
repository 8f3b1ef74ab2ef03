package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blitcore/internal/blit"
)

func fill(t *testing.T, q *CommandQueue, c *Context, cmds ...*blit.Command) {
	t.Helper()
	for i, cmd := range cmds {
		cmd.Seq = uint64(i + 1)
		require.True(t, q.Add(c, cmd))
	}
}

func TestSupervisor_DrainsInOrder(t *testing.T) {
	f := newFakeOps()
	q := NewCommandQueue()
	tr := &recTracer{}
	sup, st := newTestSupervisor(f, q, tr)
	c := NewContext("ctx")

	fill(t, q, c, testCmd(blit.OpSrcOver), testCmd(blit.OpSrc), testCmd(blit.OpXor))
	sup.Drain()

	assert.Equal(t, []uint64{1, 2, 3}, f.ranSeqs())
	assert.Equal(t, []uint64{1, 2, 3}, tr.starts)
	assert.Equal(t, []Outcome{OutcomeCompleted, OutcomeCompleted, OutcomeCompleted}, tr.outcomes())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, c.InFlight())
	assert.Equal(t, uint64(3), st.Starts())
	assert.False(t, st.Busy())
	assert.False(t, st.Active())
	assert.False(t, st.Faulted())
	assert.Equal(t, PhaseIdle, st.Phase())
}

func TestSupervisor_BusyHeldWhileRunning(t *testing.T) {
	f := newFakeOps()
	q := NewCommandQueue()
	sup, _ := newTestSupervisor(f, q, nil)

	fill(t, q, NewContext("ctx"), testCmd(blit.OpSrcOver), testCmd(blit.OpAdd))
	sup.Drain()

	assert.Equal(t, []bool{true, true}, f.busyAtRun)
}

func TestSupervisor_SkipNeverStartsHardware(t *testing.T) {
	f := newFakeOps()
	q := NewCommandQueue()
	tr := &recTracer{}
	sup, st := newTestSupervisor(f, q, tr)
	c := NewContext("ctx")

	fill(t, q, c, testCmd(blit.OpDst), testCmd(blit.OpSrcOver))
	sup.Drain()

	assert.Equal(t, []uint64{2}, f.ranSeqs(), "DST must not start the device")
	assert.Equal(t, []uint64{2}, tr.starts)
	recs := tr.records()
	require.Len(t, recs, 2)
	assert.Equal(t, OutcomeSkipped, recs[0].Outcome)
	assert.Equal(t, blit.OpDst, recs[0].Effective)
	assert.NoError(t, recs[0].Err)
	assert.Equal(t, OutcomeCompleted, recs[1].Outcome)
	assert.Equal(t, uint64(1), st.Starts())
	assert.Equal(t, 0, c.InFlight())
}

func TestSupervisor_ReducedOperatorRecorded(t *testing.T) {
	f := newFakeOps()
	q := NewCommandQueue()
	tr := &recTracer{}
	sup, _ := newTestSupervisor(f, q, tr)

	// Opaque source, full global alpha: SRC_OVER becomes SRC.
	cmd := testCmd(blit.OpSrcOver)
	cmd.Src.Format = blit.FormatXRGB8888
	fill(t, q, NewContext("ctx"), cmd)
	sup.Drain()

	recs := tr.records()
	require.Len(t, recs, 1)
	assert.Equal(t, blit.OpSrcOver, recs[0].Op)
	assert.Equal(t, blit.OpSrc, recs[0].Effective)
}

func TestSupervisor_RejectedCommandContinues(t *testing.T) {
	f := newFakeOps()
	q := NewCommandQueue()
	tr := &recTracer{}
	sup, st := newTestSupervisor(f, q, tr)

	bad := testCmd(blit.OpSrcOver)
	bad.Dst.Addr = blit.AddrColor
	fill(t, q, NewContext("ctx"), bad, testCmd(blit.OpSrcOver))
	sup.Drain()

	recs := tr.records()
	require.Len(t, recs, 2)
	assert.Equal(t, OutcomeRejected, recs[0].Outcome)
	assert.ErrorIs(t, recs[0].Err, blit.ErrInvalidCommand)
	assert.Equal(t, OutcomeCompleted, recs[1].Outcome)
	assert.False(t, st.Faulted(), "a rejected command must not fault the engine")
}

func TestSupervisor_LostInterruptRecovered(t *testing.T) {
	f := newFakeOps()
	f.set(1, behaveLostIRQ)
	q := NewCommandQueue()
	tr := &recTracer{}
	diag := &countDiag{}
	sup, st := newTestSupervisor(f, q, tr)
	sup.diag = diag

	var mu sync.Mutex
	var phases []Phase
	st.observe = func(p Phase) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, p)
	}

	fill(t, q, NewContext("ctx"), testCmd(blit.OpSrcOver), testCmd(blit.OpSrcOver))
	sup.Drain()

	assert.Equal(t, []Outcome{OutcomeRecovered, OutcomeCompleted}, tr.outcomes())
	assert.False(t, st.Faulted())
	assert.Equal(t, int32(1), diag.n.Load(), "timeout dumps the command once")
	assert.Equal(t, 0, f.dumps, "registers are only dumped on a confirmed fault")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, phases, PhaseRecheck)
	assert.NotContains(t, phases, PhaseError)
}

func TestSupervisor_HangFaultsAndDrains(t *testing.T) {
	f := newFakeOps()
	f.set(2, behaveHang)
	q := NewCommandQueue()
	tr := &recTracer{}
	sup, st := newTestSupervisor(f, q, tr)
	a := NewContext("a")
	b := NewContext("b")

	cmds := []*blit.Command{
		testCmd(blit.OpSrcOver),
		testCmd(blit.OpSrcOver),
		testCmd(blit.OpSrcOver),
		testCmd(blit.OpSrcOver),
	}
	for i, cmd := range cmds {
		cmd.Seq = uint64(i + 1)
		owner := a
		if i%2 == 1 {
			owner = b
		}
		require.True(t, q.Add(owner, cmd))
	}
	sup.Drain()

	assert.Equal(t, []Outcome{OutcomeCompleted, OutcomeFailed, OutcomeDrained, OutcomeDrained}, tr.outcomes())
	assert.Equal(t, []uint64{1, 2}, f.ranSeqs(), "nothing runs after the fault")
	assert.True(t, st.Faulted())
	assert.Equal(t, PhaseError, st.Phase())
	assert.Equal(t, 1, f.dumps)
	assert.False(t, st.Busy())
	assert.False(t, st.Active())

	// Every context is still notified.
	assert.Equal(t, 0, a.InFlight())
	assert.Equal(t, 0, b.InFlight())
	assert.Equal(t, 0, q.Len())

	recs := tr.records()
	assert.ErrorIs(t, recs[1].Err, ErrDeviceTimeout)
	assert.ErrorIs(t, recs[2].Err, ErrDeviceFault)
	assert.False(t, errors.Is(recs[2].Err, ErrDeviceTimeout))
	assert.True(t, IsDeviceError(recs[3].Err))
}

func TestSupervisor_FaultIsSticky(t *testing.T) {
	f := newFakeOps()
	f.set(1, behaveHang)
	q := NewCommandQueue()
	tr := &recTracer{}
	sup, st := newTestSupervisor(f, q, tr)
	c := NewContext("ctx")

	fill(t, q, c, testCmd(blit.OpSrcOver))
	sup.Drain()
	require.True(t, st.Faulted())

	// A later activation still drains without execution.
	late := testCmd(blit.OpSrcOver)
	late.Seq = 10
	require.True(t, q.Add(c, late))
	sup.Drain()

	assert.Equal(t, []Outcome{OutcomeFailed, OutcomeDrained}, tr.outcomes())
	assert.Equal(t, uint64(1), st.Starts())

	// External reset clears it.
	st.Reset()
	assert.False(t, st.Faulted())
	assert.Equal(t, PhaseIdle, st.Phase())

	again := testCmd(blit.OpSrcOver)
	again.Seq = 11
	require.True(t, q.Add(c, again))
	sup.Drain()

	assert.Equal(t, []Outcome{OutcomeFailed, OutcomeDrained, OutcomeCompleted}, tr.outcomes())
}

func TestSupervisor_PowerOncePerActivation(t *testing.T) {
	f := newFakeOps()
	q := NewCommandQueue()
	sup, _ := newTestSupervisor(f, q, nil)
	p := &countPower{}
	sup.power = p

	fill(t, q, NewContext("ctx"), testCmd(blit.OpSrcOver), testCmd(blit.OpDst), testCmd(blit.OpClear))
	sup.Drain()

	assert.Equal(t, int32(1), p.acquired.Load())
	assert.Equal(t, int32(1), p.released.Load())

	// An empty activation still pairs the gate.
	sup.Drain()
	assert.Equal(t, int32(2), p.acquired.Load())
	assert.Equal(t, int32(2), p.released.Load())
}

func TestSupervisor_TraceEndsBeforeWake(t *testing.T) {
	f := newFakeOps()
	q := NewCommandQueue()
	tr := &recTracer{}
	sup, _ := newTestSupervisor(f, q, tr)
	c := NewContext("ctx")

	fill(t, q, c, testCmd(blit.OpSrcOver))

	c.mu.Lock()
	wake := c.wake
	c.mu.Unlock()

	sup.Drain()

	<-wake
	assert.Len(t, tr.records(), 1)
	assert.Equal(t, "ctx", tr.records()[0].Context)
}
