package blit

import (
	"errors"
	"fmt"
)

// Owner is the submission context a command belongs to. The command holds a
// reference only to report completion; it never owns the context.
type Owner interface {
	// ID identifies the context in traces.
	ID() string
	// InFlight returns the number of commands queued or executing for the context.
	InFlight() int
	// WakeAll releases every task waiting on the context.
	WakeAll()
}

// Image slot indexes, in programming order.
const (
	ISrc = iota
	IMsk
	IDst
)

// Command is one requested compositing operation.
type Command struct {
	Op     Op
	Params Params
	Src    Surface
	Msk    Surface
	Dst    Surface

	// Seq orders commands for tracing. Assigned at submission.
	Seq uint64

	// Ctx is the owning submission context.
	Ctx Owner
}

// Surfaces returns the three slots in programming order.
func (c *Command) Surfaces() [3]Surface {
	return [3]Surface{c.Src, c.Msk, c.Dst}
}

// EffectiveOp reduces the command's operator. See Reduce.
func (c *Command) EffectiveOp() Op {
	p := &c.Params
	return Reduce(c.Op, c.Src, c.Msk, c.Dst, p.GlobalAlpha, p.SolidColor, p.Premultiplied)
}

// ErrInvalidCommand is wrapped by every Validate failure.
var ErrInvalidCommand = errors.New("invalid blit command")

// Validate performs the caller-side checks the reducer relies on: the
// operator is defined, every surface is well formed and there is a
// destination to write to.
func (c *Command) Validate() error {
	if !c.Op.Valid() {
		return fmt.Errorf("%w: undefined operator %d", ErrInvalidCommand, int(c.Op))
	}
	names := [3]string{"src", "msk", "dst"}
	for i, s := range c.Surfaces() {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidCommand, names[i], err)
		}
	}
	if !c.Dst.Backed() {
		return fmt.Errorf("%w: destination must be memory-backed", ErrInvalidCommand)
	}
	if c.Msk.Present() && !c.Msk.Backed() {
		return fmt.Errorf("%w: mask must be memory-backed", ErrInvalidCommand)
	}
	if s := c.Params.Scaling; s.Mode != ScaleNone {
		if s.SrcW <= 0 || s.SrcH <= 0 || s.DstW <= 0 || s.DstH <= 0 {
			return fmt.Errorf("%w: scaling sizes must be positive", ErrInvalidCommand)
		}
	}
	if cl := c.Params.Clipping; cl.Enable && cl.Rect.Empty() {
		return fmt.Errorf("%w: empty clipping rect", ErrInvalidCommand)
	}
	return nil
}

func (c *Command) String() string {
	ctx := "-"
	if c.Ctx != nil {
		ctx = c.Ctx.ID()
	}
	return fmt.Sprintf("blit seq=%d ctx=%s op=%s src=%s/%s dst=%s/%s msk=%s",
		c.Seq, ctx, c.Op, c.Src.Addr, c.Src.Format, c.Dst.Addr, c.Dst.Format, c.Msk.Addr)
}
