// Package pipeline turns a blit command into an ordered sequence of
// accelerator programming steps.
//
// The step sequence is shared by every hardware generation. A generation
// supplies a Programmer that encodes each step for its register layout; the
// pipeline decides which steps run and in which order:
//
//  1. reset to the baseline state
//  2. reduce the operator
//  3. select data sources and program the blend unit
//  4. describe source, mask and destination (in that order)
//  5. color key
//  6. rotation
//  7. dithering
//
// Destination setup reads blend state programmed in step 3, and steps 5-7
// modify the pipeline stage left by step 4, so the order is fixed.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/roach88/blitcore/internal/blit"
)

// Source selects where a blend input comes from.
type Source int

const (
	// SourceMemory fetches pixels from the surface image.
	SourceMemory Source = iota
	// SourceColor uses the constant-color generator.
	SourceColor
)

func (s Source) String() string {
	if s == SourceColor {
		return "color"
	}
	return "memory"
}

// Programmer encodes pipeline steps for one hardware generation.
type Programmer interface {
	Reset()

	SetFgColor(argb uint32)
	SetColorFill(argb uint32)
	EnableAlpha(globalAlpha uint8)
	SetAlphaComposite(op blit.Op, globalAlpha uint8)
	SetPremultiplied()

	SetSrcType(src Source)
	SetDstType(dst Source)

	// Slot-addressed steps take blit.ISrc, blit.IMsk or blit.IDst.
	SetImage(slot int, s blit.Surface)
	SetRect(slot int, r blit.Rect)
	SetRepeat(slot int, r blit.Repeat)
	SetScaling(slot int, s blit.Scaling, r blit.Repeat)

	EnableMask()
	EnableClipping(c blit.Clipping)
	SetBluescreen(b blit.Bluescreen)
	SetRotation(r blit.Rotation)
	EnableDithering()
}

// ErrSkip reports that the command needs no hardware execution. It is not a
// failure: the command completes without the device being started.
var ErrSkip = errors.New("blit reduces to a no-op")

// ConfigError is a command the pipeline cannot program.
type ConfigError struct {
	Seq    uint64
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configure seq %d: %s: %v", e.Seq, e.Reason, e.Err)
	}
	return fmt.Sprintf("configure seq %d: %s", e.Seq, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Configure programs p for cmd and returns the effective operator.
//
// It returns ErrSkip when the operator reduces to DST, and a *ConfigError
// when the command is malformed. On ErrSkip the reset has already been
// issued; nothing else is programmed.
func Configure(p Programmer, cmd *blit.Command) (blit.Op, error) {
	if err := cmd.Validate(); err != nil {
		return cmd.Op, &ConfigError{Seq: cmd.Seq, Reason: "invalid command", Err: err}
	}
	params := &cmd.Params

	p.Reset()

	srcSel, dstSel := SourceMemory, SourceMemory
	op := cmd.EffectiveOp()

	switch op {
	case blit.OpSolidFill:
		srcSel, dstSel = SourceColor, SourceColor
		p.SetFgColor(params.SolidColor)
	case blit.OpClear:
		srcSel, dstSel = SourceColor, SourceColor
		p.SetColorFill(0)
	case blit.OpDst:
		return op, ErrSkip
	default:
		if !cmd.Src.Backed() {
			srcSel = SourceColor
			p.SetFgColor(params.SolidColor)
		}
		if op == blit.OpSrc {
			dstSel = SourceColor
		}
		p.EnableAlpha(params.GlobalAlpha)
		p.SetAlphaComposite(op, params.GlobalAlpha)
		if !params.Premultiplied {
			p.SetPremultiplied()
		}
	}

	p.SetSrcType(srcSel)
	p.SetDstType(dstSel)

	if cmd.Src.Backed() {
		programSurface(p, blit.ISrc, cmd.Src, params)
	}

	if cmd.Msk.Backed() {
		p.EnableMask()
		programSurface(p, blit.IMsk, cmd.Msk, params)
	}

	if cmd.Dst.Backed() {
		p.SetImage(blit.IDst, cmd.Dst)
		p.SetRect(blit.IDst, cmd.Dst.Rect)
		if params.Clipping.Enable {
			p.EnableClipping(params.Clipping)
		}
	}

	if params.Bluescreen.Mode != blit.KeyOff {
		p.SetBluescreen(params.Bluescreen)
	}

	if params.Rotate != blit.Rotate0 {
		p.SetRotation(params.Rotate)
	}

	if params.Dither {
		p.EnableDithering()
	}

	return op, nil
}

func programSurface(p Programmer, slot int, s blit.Surface, params *blit.Params) {
	p.SetImage(slot, s)
	p.SetRect(slot, s.Rect)
	p.SetRepeat(slot, params.Repeat)
	if params.Scaling.Mode != blit.ScaleNone {
		p.SetScaling(slot, params.Scaling, params.Repeat)
	}
}
