package soft

import (
	"fmt"
	"strings"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/pipeline"
)

// plan is the programmed state of the soft engine, the equivalent of its
// register file. It is built on the drain goroutine and copied at start.
type plan struct {
	fg        uint32
	fill      bool
	fillColor uint32

	blend       bool
	ga          uint8
	op          blit.Op
	premultiply bool

	srcSel, dstSel pipeline.Source

	img     [3]blit.Surface
	rect    [3]blit.Rect
	repeat  [3]blit.Repeat
	scaling [3]blit.Scaling

	mask   bool
	clip   blit.Clipping
	key    blit.Bluescreen
	rotate blit.Rotation
	dither bool
}

func (p *plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fg=0x%08X fill=%t fill_color=0x%08X\n", p.fg, p.fill, p.fillColor)
	fmt.Fprintf(&b, "blend=%t op=%s ga=0x%02X premultiply=%t\n", p.blend, p.op, p.ga, p.premultiply)
	fmt.Fprintf(&b, "src_select=%s dst_select=%s\n", p.srcSel, p.dstSel)
	for slot, name := range []string{"src", "msk", "dst"} {
		s := p.img[slot]
		if !s.Present() {
			continue
		}
		fmt.Fprintf(&b, "%s dma=0x%X format=%s rect=%s repeat=%s scaling=%s\n",
			name, s.DMA, s.Format, p.rect[slot], p.repeat[slot].Mode, p.scaling[slot].Mode)
	}
	fmt.Fprintf(&b, "mask=%t clip=%t %s key=%s rotate=%s dither=%t\n",
		p.mask, p.clip.Enable, p.clip.Rect, p.key.Mode, p.rotate, p.dither)
	return b.String()
}

// programmer records pipeline steps into a plan.
type programmer struct {
	p *plan
}

var _ pipeline.Programmer = programmer{}

func (g programmer) Reset() { *g.p = plan{} }

func (g programmer) SetFgColor(argb uint32) { g.p.fg = argb }

func (g programmer) SetPremultiplied() { g.p.premultiply = true }

func (g programmer) EnableMask() { g.p.mask = true }

func (g programmer) EnableDithering() { g.p.dither = true }

func (g programmer) SetSrcType(s pipeline.Source) { g.p.srcSel = s }

func (g programmer) SetDstType(s pipeline.Source) { g.p.dstSel = s }

func (g programmer) SetColorFill(argb uint32) {
	g.p.fill = true
	g.p.fillColor = argb
}

func (g programmer) EnableAlpha(globalAlpha uint8) {
	g.p.blend = true
	g.p.ga = globalAlpha
}

func (g programmer) SetAlphaComposite(op blit.Op, globalAlpha uint8) {
	g.p.op = op
	g.p.ga = globalAlpha
}

func (g programmer) SetImage(slot int, s blit.Surface) { g.p.img[slot] = s }

func (g programmer) SetRect(slot int, r blit.Rect) { g.p.rect[slot] = r }

func (g programmer) SetRepeat(slot int, r blit.Repeat) { g.p.repeat[slot] = r }

func (g programmer) SetScaling(slot int, s blit.Scaling, _ blit.Repeat) { g.p.scaling[slot] = s }

func (g programmer) EnableClipping(c blit.Clipping) { g.p.clip = c }

func (g programmer) SetBluescreen(b blit.Bluescreen) { g.p.key = b }

func (g programmer) SetRotation(r blit.Rotation) { g.p.rotate = r }
