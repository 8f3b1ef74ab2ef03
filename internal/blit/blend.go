package blit

// Factor is a Porter-Duff blend coefficient. The composite of premultiplied
// source S and destination D is S*Fs + D*Fd.
type Factor uint8

const (
	FactorZero Factor = iota
	FactorOne
	FactorSrcAlpha
	FactorInvSrcAlpha
	FactorDstAlpha
	FactorInvDstAlpha
)

var factorNames = []string{"0", "1", "Sa", "1-Sa", "Da", "1-Da"}

func (f Factor) String() string { return enumString(factorNames, int(f), "factor") }

// Factors returns the source and destination coefficients of op.
// SOLID_FILL composes like SRC. ADD saturates; the factors are both one.
func Factors(op Op) (src, dst Factor) {
	switch op {
	case OpClear:
		return FactorZero, FactorZero
	case OpSrc, OpSolidFill:
		return FactorOne, FactorZero
	case OpDst:
		return FactorZero, FactorOne
	case OpSrcOver:
		return FactorOne, FactorInvSrcAlpha
	case OpDstOver:
		return FactorInvDstAlpha, FactorOne
	case OpSrcIn:
		return FactorDstAlpha, FactorZero
	case OpDstIn:
		return FactorZero, FactorSrcAlpha
	case OpSrcOut:
		return FactorInvDstAlpha, FactorZero
	case OpDstOut:
		return FactorZero, FactorInvSrcAlpha
	case OpSrcAtop:
		return FactorDstAlpha, FactorInvSrcAlpha
	case OpDstAtop:
		return FactorInvDstAlpha, FactorSrcAlpha
	case OpXor:
		return FactorInvDstAlpha, FactorInvSrcAlpha
	case OpAdd:
		return FactorOne, FactorOne
	}
	return FactorOne, FactorInvSrcAlpha
}

// Weight evaluates f for the given source and destination alpha.
func (f Factor) Weight(sa, da uint8) uint8 {
	switch f {
	case FactorOne:
		return 0xff
	case FactorSrcAlpha:
		return sa
	case FactorInvSrcAlpha:
		return 0xff - sa
	case FactorDstAlpha:
		return da
	case FactorInvDstAlpha:
		return 0xff - da
	}
	return 0
}
