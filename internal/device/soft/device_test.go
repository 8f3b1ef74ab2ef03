package soft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/device/hw"
	"github.com/roach88/blitcore/internal/engine"
	"github.com/roach88/blitcore/internal/testutil"
)

const (
	srcDMA = 0x1000
	mskDMA = 0x2000
	dstDMA = 0x3000
)

func surf(dma uint64, f blit.Format, w, h int) blit.Surface {
	return blit.Surface{
		Addr:   blit.AddrMemory,
		Format: f,
		Width:  w,
		Height: h,
		Rect:   blit.Rect{X1: 0, Y1: 0, X2: w, Y2: h},
		DMA:    dma,
	}
}

// blitAll runs cmds on d through an engine and returns their records.
func blitAll(t *testing.T, d *Device, timeout time.Duration, cmds ...*blit.Command) []engine.TraceRecord {
	t.Helper()
	tr := &testutil.Tracer{}
	e := engine.New(d, engine.WithPower(d.Power()), engine.WithTimeout(timeout), engine.WithTracer(tr))
	testutil.SubmitAndWait(t, e, cmds...)
	return tr.Records()
}

func run(t *testing.T, d *Device, cmd *blit.Command) {
	t.Helper()
	recs := blitAll(t, d, time.Second, cmd)
	require.Len(t, recs, 1)
	require.True(t, recs[0].Outcome.Executed(), "outcome %s: %v", recs[0].Outcome, recs[0].Err)
}

func pixelAt(t *testing.T, d *Device, dma uint64, x, y int) uint32 {
	t.Helper()
	c, err := d.Memory().Pixel(dma, x, y)
	require.NoError(t, err)
	return c
}

func setup(t *testing.T, w, h int) *Device {
	t.Helper()
	d := New(nil)
	d.Memory().Alloc(srcDMA, w, h)
	d.Memory().Alloc(mskDMA, w, h)
	d.Memory().Alloc(dstDMA, w, h)
	return d
}

func blend(op blit.Op, w, h int) *blit.Command {
	return &blit.Command{
		Op:     op,
		Params: blit.Params{GlobalAlpha: 0xff, Premultiplied: true},
		Src:    surf(srcDMA, blit.FormatARGB8888, w, h),
		Dst:    surf(dstDMA, blit.FormatARGB8888, w, h),
	}
}

func TestSoft_SolidFill(t *testing.T) {
	d := setup(t, 4, 4)
	cmd := blend(blit.OpSrc, 4, 4)
	cmd.Src = blit.Surface{}
	cmd.Params.SolidColor = 0xff112233

	run(t, d, cmd)

	for _, p := range [][2]int{{0, 0}, {3, 3}, {1, 2}} {
		assert.Equal(t, uint32(0xff112233), pixelAt(t, d, dstDMA, p[0], p[1]))
	}
}

func TestSoft_Clear(t *testing.T) {
	d := setup(t, 4, 4)
	require.NoError(t, d.Memory().Fill(dstDMA, 0xffffffff))

	run(t, d, blend(blit.OpClear, 4, 4))
	assert.Zero(t, pixelAt(t, d, dstDMA, 2, 2))
}

func TestSoft_SrcOverPremultiplied(t *testing.T) {
	d := setup(t, 2, 2)
	require.NoError(t, d.Memory().Fill(srcDMA, 0x80800000))
	require.NoError(t, d.Memory().Fill(dstDMA, 0xff0000ff))

	run(t, d, blend(blit.OpSrcOver, 2, 2))
	assert.Equal(t, uint32(0xff80007f), pixelAt(t, d, dstDMA, 1, 1))
}

func TestSoft_PremultipliesStraightAlpha(t *testing.T) {
	d := setup(t, 2, 2)
	require.NoError(t, d.Memory().Fill(srcDMA, 0x80ff0000))
	require.NoError(t, d.Memory().Fill(dstDMA, 0xff0000ff))

	cmd := blend(blit.OpSrcOver, 2, 2)
	cmd.Params.Premultiplied = false
	run(t, d, cmd)
	assert.Equal(t, uint32(0xff80007f), pixelAt(t, d, dstDMA, 0, 0))
}

func TestSoft_GlobalAlpha(t *testing.T) {
	d := setup(t, 2, 2)
	require.NoError(t, d.Memory().Fill(srcDMA, 0x00ff0000))
	require.NoError(t, d.Memory().Fill(dstDMA, 0xff0000ff))

	cmd := blend(blit.OpSrcOver, 2, 2)
	cmd.Src.Format = blit.FormatXRGB8888
	cmd.Params.GlobalAlpha = 0x80
	run(t, d, cmd)
	assert.Equal(t, uint32(0xff80007f), pixelAt(t, d, dstDMA, 0, 1))
}

func TestSoft_OpaqueSourceReducedToCopy(t *testing.T) {
	d := setup(t, 2, 2)
	require.NoError(t, d.Memory().Fill(srcDMA, 0x00abcdef))
	require.NoError(t, d.Memory().Fill(dstDMA, 0x12345678))

	cmd := blend(blit.OpSrcOver, 2, 2)
	cmd.Src.Format = blit.FormatXRGB8888
	recs := blitAll(t, d, time.Second, cmd)
	require.Len(t, recs, 1)
	assert.Equal(t, blit.OpSrc, recs[0].Effective)
	assert.Equal(t, uint32(0xffabcdef), pixelAt(t, d, dstDMA, 1, 0))
}

func TestSoft_MaskCoverage(t *testing.T) {
	d := setup(t, 2, 1)
	require.NoError(t, d.Memory().Fill(srcDMA, 0xffff0000))
	require.NoError(t, d.Memory().Fill(dstDMA, 0xff0000ff))
	require.NoError(t, d.Memory().SetPixel(mskDMA, 0, 0, 0x00000000))
	require.NoError(t, d.Memory().SetPixel(mskDMA, 1, 0, 0xff000000))

	cmd := blend(blit.OpSrcOver, 2, 1)
	cmd.Msk = surf(mskDMA, blit.FormatARGB8888, 2, 1)
	run(t, d, cmd)

	assert.Equal(t, uint32(0xff0000ff), pixelAt(t, d, dstDMA, 0, 0), "zero coverage keeps destination")
	assert.Equal(t, uint32(0xffff0000), pixelAt(t, d, dstDMA, 1, 0), "full coverage replaces it")
}

func TestSoft_Clipping(t *testing.T) {
	d := setup(t, 8, 8)
	cmd := blend(blit.OpSrc, 8, 8)
	cmd.Src = blit.Surface{}
	cmd.Params.SolidColor = 0xffffffff
	cmd.Params.Clipping = blit.Clipping{Enable: true, Rect: blit.Rect{X1: 2, Y1: 2, X2: 4, Y2: 4}}

	run(t, d, cmd)

	assert.Equal(t, uint32(0xffffffff), pixelAt(t, d, dstDMA, 2, 2))
	assert.Equal(t, uint32(0xffffffff), pixelAt(t, d, dstDMA, 3, 3))
	assert.Zero(t, pixelAt(t, d, dstDMA, 1, 1))
	assert.Zero(t, pixelAt(t, d, dstDMA, 4, 4))
}

func TestSoft_Rotation(t *testing.T) {
	const a, b = 0xff0000aa, 0xff0000bb

	tests := []struct {
		name   string
		rotate blit.Rotation
		dw, dh int
		want   [][3]int // x, y, which (0=a, 1=b)
	}{
		{"90", blit.Rotate90, 1, 2, [][3]int{{0, 0, 0}, {0, 1, 1}}},
		{"270", blit.Rotate270, 1, 2, [][3]int{{0, 0, 1}, {0, 1, 0}}},
		{"180", blit.Rotate180, 2, 1, [][3]int{{0, 0, 1}, {1, 0, 0}}},
		{"xflip", blit.FlipX, 2, 1, [][3]int{{0, 0, 1}, {1, 0, 0}}},
		{"yflip", blit.FlipY, 2, 1, [][3]int{{0, 0, 0}, {1, 0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(nil)
			d.Memory().Alloc(srcDMA, 2, 1)
			d.Memory().Alloc(dstDMA, tt.dw, tt.dh)
			require.NoError(t, d.Memory().SetPixel(srcDMA, 0, 0, a))
			require.NoError(t, d.Memory().SetPixel(srcDMA, 1, 0, b))

			cmd := blend(blit.OpSrc, 2, 1)
			cmd.Dst = surf(dstDMA, blit.FormatARGB8888, tt.dw, tt.dh)
			cmd.Params.Rotate = tt.rotate
			run(t, d, cmd)

			for _, w := range tt.want {
				want := uint32(a)
				if w[2] == 1 {
					want = b
				}
				assert.Equal(t, want, pixelAt(t, d, dstDMA, w[0], w[1]), "pixel (%d,%d)", w[0], w[1])
			}
		})
	}
}

func TestSoft_Repeat(t *testing.T) {
	const c00, c10, c01, c11 = 0xff000001, 0xff000002, 0xff000003, 0xff000004

	tests := []struct {
		mode blit.RepeatMode
		x, y int
		want uint32
	}{
		{blit.RepeatNormal, 3, 3, c11},
		{blit.RepeatNormal, 2, 1, c01},
		{blit.RepeatReflect, 2, 0, c10},
		{blit.RepeatReflect, 3, 0, c00},
		{blit.RepeatClamp, 3, 2, c11},
		{blit.RepeatPad, 3, 3, 0xff00ff00},
		{blit.RepeatNone, 3, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			d := New(nil)
			d.Memory().Alloc(srcDMA, 2, 2)
			d.Memory().Alloc(dstDMA, 4, 4)
			require.NoError(t, d.Memory().SetPixel(srcDMA, 0, 0, c00))
			require.NoError(t, d.Memory().SetPixel(srcDMA, 1, 0, c10))
			require.NoError(t, d.Memory().SetPixel(srcDMA, 0, 1, c01))
			require.NoError(t, d.Memory().SetPixel(srcDMA, 1, 1, c11))

			cmd := blend(blit.OpSrc, 2, 2)
			cmd.Dst = surf(dstDMA, blit.FormatARGB8888, 4, 4)
			cmd.Params.Repeat = blit.Repeat{Mode: tt.mode, PadColor: 0xff00ff00}
			run(t, d, cmd)

			assert.Equal(t, tt.want, pixelAt(t, d, dstDMA, tt.x, tt.y))
		})
	}
}

func TestSoft_ScalingNearest(t *testing.T) {
	d := New(nil)
	d.Memory().Alloc(srcDMA, 2, 2)
	d.Memory().Alloc(dstDMA, 4, 4)
	require.NoError(t, d.Memory().SetPixel(srcDMA, 1, 1, 0xff00ff00))

	cmd := blend(blit.OpSrc, 2, 2)
	cmd.Dst = surf(dstDMA, blit.FormatARGB8888, 4, 4)
	cmd.Params.Scaling = blit.Scaling{Mode: blit.ScaleNearest, SrcW: 2, SrcH: 2, DstW: 4, DstH: 4}
	run(t, d, cmd)

	assert.Equal(t, uint32(0xff00ff00), pixelAt(t, d, dstDMA, 2, 2))
	assert.Equal(t, uint32(0xff00ff00), pixelAt(t, d, dstDMA, 3, 3))
	assert.Zero(t, pixelAt(t, d, dstDMA, 1, 1))
}

func TestSoft_Bluescreen(t *testing.T) {
	const key, other, bg, dst = 0xff0000ff, 0xffff0000, 0xff00ff00, 0xff123456

	for _, mode := range []blit.KeyMode{blit.KeyTransparent, blit.KeyBluescreen} {
		t.Run(mode.String(), func(t *testing.T) {
			d := setup(t, 2, 1)
			require.NoError(t, d.Memory().SetPixel(srcDMA, 0, 0, key))
			require.NoError(t, d.Memory().SetPixel(srcDMA, 1, 0, other))
			require.NoError(t, d.Memory().Fill(dstDMA, dst))

			cmd := blend(blit.OpSrc, 2, 1)
			cmd.Params.Bluescreen = blit.Bluescreen{Mode: mode, Key: key, BgColor: bg}
			run(t, d, cmd)

			want := uint32(dst)
			if mode == blit.KeyBluescreen {
				want = bg
			}
			assert.Equal(t, want, pixelAt(t, d, dstDMA, 0, 0))
			assert.Equal(t, uint32(other), pixelAt(t, d, dstDMA, 1, 0))
		})
	}
}

func TestSoft_OpaqueDestinationAlpha(t *testing.T) {
	d := setup(t, 1, 1)
	require.NoError(t, d.Memory().Fill(srcDMA, 0x80800000))

	cmd := blend(blit.OpXor, 1, 1)
	cmd.Dst.Format = blit.FormatXRGB8888
	run(t, d, cmd)

	// XOR against an opaque destination leaves 1-Sa of it; alpha is forced.
	assert.Equal(t, uint32(0xff000000), pixelAt(t, d, dstDMA, 0, 0)&0xff000000)
}

func TestSoft_UnmappedBufferTimesOut(t *testing.T) {
	d := New(nil)
	d.Memory().Alloc(dstDMA, 2, 2)

	recs := blitAll(t, d, 30*time.Millisecond, blend(blit.OpSrcOver, 2, 2), blend(blit.OpSrcOver, 2, 2))
	require.Len(t, recs, 2)
	assert.Equal(t, engine.OutcomeFailed, recs[0].Outcome)
	assert.Equal(t, engine.OutcomeDrained, recs[1].Outcome)
	assert.ErrorIs(t, d.LastError(), errBus)
}

func TestSoft_InjectedFaults(t *testing.T) {
	d := setup(t, 2, 2)
	d.InjectFault(1, hw.FaultLostIRQ)
	d.InjectFault(3, hw.FaultHang)

	recs := blitAll(t, d, 30*time.Millisecond,
		blend(blit.OpSrcOver, 2, 2),
		blend(blit.OpSrcOver, 2, 2),
		blend(blit.OpSrcOver, 2, 2),
		blend(blit.OpSrcOver, 2, 2),
	)
	var got []engine.Outcome
	for _, r := range recs {
		got = append(got, r.Outcome)
	}
	assert.Equal(t, []engine.Outcome{
		engine.OutcomeRecovered,
		engine.OutcomeCompleted,
		engine.OutcomeFailed,
		engine.OutcomeDrained,
	}, got)
}

func TestSoft_DumpPlan(t *testing.T) {
	snk := &testutil.DumpSink{}
	d := New(nil, WithDumpSink(snk))
	d.Memory().Alloc(srcDMA, 2, 2)
	d.Memory().Alloc(dstDMA, 2, 2)
	d.InjectFault(1, hw.FaultHang)

	blitAll(t, d, 20*time.Millisecond, blend(blit.OpXor, 2, 2))

	dumps := snk.Dumps()
	require.Len(t, dumps, 1)
	assert.Equal(t, "plan", dumps[0].Kind)
	assert.Equal(t, uint64(1), dumps[0].Seq)
	assert.Contains(t, dumps[0].Body, "op=XOR")
	assert.Contains(t, dumps[0].Body, "dst dma=0x3000")
}

func TestComposite_Table(t *testing.T) {
	s := pixel{r: 0x80, a: 0x80}
	d := pixel{b: 0xff, a: 0xff}

	tests := []struct {
		op   blit.Op
		want pixel
	}{
		{blit.OpClear, pixel{}},
		{blit.OpSrc, s},
		{blit.OpDst, d},
		{blit.OpSrcOver, pixel{r: 0x80, b: 0x7f, a: 0xff}},
		{blit.OpDstOver, d},
		{blit.OpSrcIn, s},
		{blit.OpDstIn, pixel{b: 0x80, a: 0x80}},
		{blit.OpSrcOut, pixel{}},
		{blit.OpDstOut, pixel{b: 0x7f, a: 0x7f}},
		{blit.OpSrcAtop, pixel{r: 0x80, b: 0x7f, a: 0xff}},
		{blit.OpDstAtop, pixel{b: 0x80, a: 0x80}},
		{blit.OpXor, pixel{b: 0x7f, a: 0x7f}},
		{blit.OpAdd, pixel{r: 0x80, b: 0xff, a: 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, composite(tt.op, s, d))
		})
	}
}
