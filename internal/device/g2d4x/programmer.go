package g2d4x

import (
	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/pipeline"
)

// programmer encodes pipeline steps as register writes.
type programmer struct {
	regs *Regs
}

var _ pipeline.Programmer = (*programmer)(nil)

func (p *programmer) set(off, bits uint32) {
	p.regs.Write(off, p.regs.Read(off)|bits)
}

func (p *programmer) Reset() {
	p.regs.Write(RegSoftReset, ResetBit)
}

func (p *programmer) SetFgColor(argb uint32) {
	p.regs.Write(RegFgColor, argb)
}

func (p *programmer) SetColorFill(argb uint32) {
	p.regs.Write(RegSfColor, argb)
	p.set(RegBitbltCmd, CmdSolidFill)
}

func (p *programmer) EnableAlpha(globalAlpha uint8) {
	p.regs.Write(RegAlpha, uint32(globalAlpha))
	p.set(RegBitbltCmd, CmdAlphaBlend)
}

func (p *programmer) SetAlphaComposite(op blit.Op, globalAlpha uint8) {
	src, dst := blit.Factors(op)
	v := uint32(src)<<BlendSrcShift | uint32(dst)<<BlendDstShift
	if globalAlpha != 0xff {
		v |= BlendGlobalAlpha
	}
	p.regs.Write(RegBlendFunc, v)
}

func (p *programmer) SetPremultiplied() {
	p.set(RegBlendFunc, BlendPremultiply)
}

func (p *programmer) SetSrcType(src pipeline.Source) {
	p.regs.Write(RegSrcSelect, selectValue(src))
}

func (p *programmer) SetDstType(dst pipeline.Source) {
	p.regs.Write(RegDstSelect, selectValue(dst))
}

func (p *programmer) SetImage(slot int, s blit.Surface) {
	b := bankFor(slot)
	p.regs.Write(b.base, uint32(s.DMA))
	p.regs.Write(b.stride, uint32(s.RowBytes()))
	p.regs.Write(b.colorMode, uint32(s.Format))
}

func (p *programmer) SetRect(slot int, r blit.Rect) {
	b := bankFor(slot)
	p.regs.Write(b.leftTop, packXY(r.X1, r.Y1))
	p.regs.Write(b.rightBot, packXY(r.X2, r.Y2))
}

func (p *programmer) SetRepeat(slot int, r blit.Repeat) {
	b := bankFor(slot)
	p.regs.Write(b.repeat, uint32(r.Mode))
	if r.Mode == blit.RepeatPad {
		p.regs.Write(b.pad, r.PadColor)
	}
}

func (p *programmer) SetScaling(slot int, s blit.Scaling, _ blit.Repeat) {
	b := bankFor(slot)
	ctrl := uint32(ScaleNearest)
	if s.Mode == blit.ScaleBilinear {
		ctrl = ScaleBilinear
	}
	p.regs.Write(b.scaleCtrl, ctrl)
	p.regs.Write(b.xscale, fixed16(s.SrcW, s.DstW))
	p.regs.Write(b.yscale, fixed16(s.SrcH, s.DstH))
}

func (p *programmer) EnableMask() {
	p.set(RegBitbltCmd, CmdMaskEnable)
}

func (p *programmer) EnableClipping(c blit.Clipping) {
	p.regs.Write(RegClipLeftTop, packXY(c.Rect.X1, c.Rect.Y1))
	p.regs.Write(RegClipRightBot, packXY(c.Rect.X2, c.Rect.Y2))
	p.set(RegBitbltCmd, CmdClipEnable)
}

func (p *programmer) SetBluescreen(b blit.Bluescreen) {
	cmd := p.regs.Read(RegBitbltCmd) &^ CmdKeyMask
	p.regs.Write(RegBitbltCmd, cmd|uint32(b.Mode)<<CmdKeyShift)
	p.regs.Write(RegBsColor, b.Key)
	if b.Mode == blit.KeyBluescreen {
		p.regs.Write(RegBgColor, b.BgColor)
	}
}

func (p *programmer) SetRotation(r blit.Rotation) {
	var rot, dir uint32
	switch r {
	case blit.Rotate90:
		rot = Rotate90
	case blit.Rotate180:
		dir = DirFlipX | DirFlipY
	case blit.Rotate270:
		rot = Rotate90
		dir = DirFlipX | DirFlipY
	case blit.FlipX:
		dir = DirFlipX
	case blit.FlipY:
		dir = DirFlipY
	}
	p.regs.Write(RegRotate, rot)
	p.regs.Write(RegSrcMskDir, dir)
}

func (p *programmer) EnableDithering() {
	p.set(RegBitbltCmd, CmdDither)
}

func bankFor(slot int) bank {
	switch slot {
	case blit.IMsk:
		return mskBank
	case blit.IDst:
		return dstBank
	}
	return srcBank
}

func selectValue(s pipeline.Source) uint32 {
	if s == pipeline.SourceColor {
		return SelectFgColor
	}
	return SelectMemory
}

func packXY(x, y int) uint32 {
	return uint32(y&0x1fff)<<16 | uint32(x&0x1fff)
}

// fixed16 returns src/dst as 16.16 fixed point.
func fixed16(src, dst int) uint32 {
	if dst <= 0 {
		return 1 << 16
	}
	return uint32((uint64(src) << 16) / uint64(dst))
}
