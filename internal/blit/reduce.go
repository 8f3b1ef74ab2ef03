package blit

// Opacity holds the three facts the reducer works from. Each is true only when
// the factor is provably 255/255.
type Opacity struct {
	Src    bool
	Dst    bool
	Global bool
}

// OpacityOf computes the opacity facts for a command's surfaces. A source
// that is not memory-backed takes its alpha from the solid color.
func OpacityOf(src, dst Surface, globalAlpha uint8, solidColor uint32) Opacity {
	o := Opacity{
		Dst:    dst.Opaque(),
		Global: globalAlpha == 0xff,
	}
	if src.Backed() {
		o.Src = src.Opaque()
	} else {
		o.Src = Alpha(solidColor) == 0xff
	}
	return o
}

// Reduce returns the cheapest operator producing the same result as op.
//
// Masked composites are returned unchanged. premultiplied does not take part
// in the reduction; it is accepted so the signature carries every parameter
// the blend unit sees.
func Reduce(op Op, src, msk, dst Surface, globalAlpha uint8, solidColor uint32, premultiplied bool) Op {
	if msk.Present() {
		return op
	}
	return reduceOpacity(op, OpacityOf(src, dst, globalAlpha, solidColor), !src.Backed())
}

func reduceOpacity(op Op, o Opacity, constSrc bool) Op {
	fop := op
	srcSolid := o.Src && o.Global
	switch op {
	case OpSrcOver:
		// Sc + (1-Sa)*Dc = Sc
		if srcSolid {
			fop = OpSrc
		}
	case OpDstOver:
		// (1-Da)*Sc + Dc = Dc
		if o.Dst {
			fop = OpDst
		}
	case OpSrcIn:
		// Da*Sc = Sc
		if o.Dst {
			fop = OpSrc
		}
	case OpDstIn:
		// Sa*Dc = Dc
		if srcSolid {
			fop = OpDst
		}
	case OpSrcOut:
		// (1-Da)*Sc = 0
		if o.Dst {
			fop = OpClear
		}
	case OpDstOut:
		// (1-Sa)*Dc = 0
		if srcSolid {
			fop = OpClear
		}
	case OpSrcAtop:
		// Da*Sc + (1-Sa)*Dc = Sc
		if srcSolid && o.Dst {
			fop = OpSrc
		}
	case OpDstAtop:
		// (1-Da)*Sc + Sa*Dc = Dc
		if srcSolid && o.Dst {
			fop = OpDst
		}
	}

	if fop == OpSrc && constSrc && o.Global {
		fop = OpSolidFill
	}
	return fop
}
