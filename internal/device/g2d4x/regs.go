package g2d4x

import "fmt"

// Register offsets.
const (
	RegSoftReset   = 0x000 // Soft reset (WO)
	RegIntEn       = 0x004 // Interrupt enable
	RegIntcPend    = 0x00C // Interrupt pending (W1C)
	RegFifoStat    = 0x010 // FIFO / blit status (RO)
	RegBitbltStart = 0x100 // Start command (WO)
	RegBitbltCmd   = 0x104 // Blit command bits
	RegBlendFunc   = 0x108 // Blend function
	RegRotate      = 0x200 // Rotation
	RegSrcMskDir   = 0x204 // Source and mask flip direction
	RegDstPatDir   = 0x208 // Destination flip direction

	RegSrcSelect    = 0x300
	RegSrcBaseAddr  = 0x304
	RegSrcStride    = 0x308
	RegSrcColorMode = 0x30C
	RegSrcLeftTop   = 0x310
	RegSrcRightBot  = 0x314
	RegSrcRepeat    = 0x31C
	RegSrcPadValue  = 0x320
	RegSrcScaleCtrl = 0x328
	RegSrcXScale    = 0x32C
	RegSrcYScale    = 0x330

	RegDstSelect    = 0x400
	RegDstBaseAddr  = 0x404
	RegDstStride    = 0x408
	RegDstColorMode = 0x40C
	RegDstLeftTop   = 0x410
	RegDstRightBot  = 0x414

	RegMskBaseAddr  = 0x520
	RegMskStride    = 0x524
	RegMskLeftTop   = 0x528
	RegMskRightBot  = 0x52C
	RegMskMode      = 0x530
	RegMskRepeat    = 0x534
	RegMskPadValue  = 0x538
	RegMskScaleCtrl = 0x53C
	RegMskXScale    = 0x540
	RegMskYScale    = 0x544

	RegClipLeftTop  = 0x600
	RegClipRightBot = 0x604

	RegFgColor = 0x700
	RegBgColor = 0x704
	RegBsColor = 0x708
	RegSfColor = 0x70C
	RegAlpha   = 0x730

	// RegSpace is the size of the register window.
	RegSpace = 0x800
)

// Interrupt bits (RegIntEn, RegIntcPend).
const (
	IntDone = 1 << 0 // blit done
)

// RegFifoStat bits.
const (
	FifoDone = 1 << 0 // last blit finished
)

// RegSoftReset / RegBitbltStart bits.
const (
	ResetBit = 1 << 0
	StartBit = 1 << 0
)

// RegBitbltCmd bits.
const (
	CmdSolidFill  = 1 << 0
	CmdAlphaBlend = 1 << 1
	CmdMaskEnable = 1 << 4
	CmdClipEnable = 1 << 8
	CmdDither     = 1 << 12
	CmdKeyShift   = 16 // two bits: blit.KeyMode
	CmdKeyMask    = 3 << CmdKeyShift
)

// RegBlendFunc fields.
const (
	BlendSrcShift    = 0 // blit.Factor
	BlendDstShift    = 8 // blit.Factor
	BlendFactorMask  = 0xff
	BlendGlobalAlpha = 1 << 16 // multiply source by RegAlpha
	BlendPremultiply = 1 << 20 // premultiply source before blending
)

// RegSrcSelect / RegDstSelect values.
const (
	SelectMemory  = 0
	SelectFgColor = 1
)

// RegRotate and direction register bits.
const (
	Rotate90 = 1 << 0
	DirFlipX = 1 << 0
	DirFlipY = 1 << 4
)

// RegSrcScaleCtrl / RegMskScaleCtrl values. Scale factors are 16.16 fixed
// point source-per-destination ratios.
const (
	ScaleNearest  = 1
	ScaleBilinear = 2
)

var regNames = map[uint32]string{
	RegSoftReset:    "SOFT_RESET",
	RegIntEn:        "INTEN",
	RegIntcPend:     "INTC_PEND",
	RegFifoStat:     "FIFO_STAT",
	RegBitbltStart:  "BITBLT_START",
	RegBitbltCmd:    "BITBLT_COMMAND",
	RegBlendFunc:    "BLEND_FUNCTION",
	RegRotate:       "ROTATE",
	RegSrcMskDir:    "SRC_MSK_DIRECT",
	RegDstPatDir:    "DST_PAT_DIRECT",
	RegSrcSelect:    "SRC_SELECT",
	RegSrcBaseAddr:  "SRC_BASE_ADDR",
	RegSrcStride:    "SRC_STRIDE",
	RegSrcColorMode: "SRC_COLOR_MODE",
	RegSrcLeftTop:   "SRC_LEFT_TOP",
	RegSrcRightBot:  "SRC_RIGHT_BOTTOM",
	RegSrcRepeat:    "SRC_REPEAT_MODE",
	RegSrcPadValue:  "SRC_PAD_VALUE",
	RegSrcScaleCtrl: "SRC_SCALE_CTRL",
	RegSrcXScale:    "SRC_XSCALE",
	RegSrcYScale:    "SRC_YSCALE",
	RegDstSelect:    "DST_SELECT",
	RegDstBaseAddr:  "DST_BASE_ADDR",
	RegDstStride:    "DST_STRIDE",
	RegDstColorMode: "DST_COLOR_MODE",
	RegDstLeftTop:   "DST_LEFT_TOP",
	RegDstRightBot:  "DST_RIGHT_BOTTOM",
	RegMskBaseAddr:  "MSK_BASE_ADDR",
	RegMskStride:    "MSK_STRIDE",
	RegMskLeftTop:   "MSK_LEFT_TOP",
	RegMskRightBot:  "MSK_RIGHT_BOTTOM",
	RegMskMode:      "MSK_MODE",
	RegMskRepeat:    "MSK_REPEAT_MODE",
	RegMskPadValue:  "MSK_PAD_VALUE",
	RegMskScaleCtrl: "MSK_SCALE_CTRL",
	RegMskXScale:    "MSK_XSCALE",
	RegMskYScale:    "MSK_YSCALE",
	RegClipLeftTop:  "CW_LEFT_TOP",
	RegClipRightBot: "CW_RIGHT_BOTTOM",
	RegFgColor:      "FG_COLOR",
	RegBgColor:      "BG_COLOR",
	RegBsColor:      "BS_COLOR",
	RegSfColor:      "SF_COLOR",
	RegAlpha:        "ALPHA",
}

// RegName returns the register's mnemonic, or its hex offset.
func RegName(off uint32) string {
	if n, ok := regNames[off]; ok {
		return n
	}
	return fmt.Sprintf("0x%03X", off)
}

// bank groups the per-image registers of one slot.
type bank struct {
	base, stride, colorMode   uint32
	leftTop, rightBot         uint32
	repeat, pad               uint32
	scaleCtrl, xscale, yscale uint32
}

var (
	srcBank = bank{
		base: RegSrcBaseAddr, stride: RegSrcStride, colorMode: RegSrcColorMode,
		leftTop: RegSrcLeftTop, rightBot: RegSrcRightBot,
		repeat: RegSrcRepeat, pad: RegSrcPadValue,
		scaleCtrl: RegSrcScaleCtrl, xscale: RegSrcXScale, yscale: RegSrcYScale,
	}
	mskBank = bank{
		base: RegMskBaseAddr, stride: RegMskStride, colorMode: RegMskMode,
		leftTop: RegMskLeftTop, rightBot: RegMskRightBot,
		repeat: RegMskRepeat, pad: RegMskPadValue,
		scaleCtrl: RegMskScaleCtrl, xscale: RegMskXScale, yscale: RegMskYScale,
	}
	dstBank = bank{
		base: RegDstBaseAddr, stride: RegDstStride, colorMode: RegDstColorMode,
		leftTop: RegDstLeftTop, rightBot: RegDstRightBot,
	}
)
