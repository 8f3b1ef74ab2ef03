package blit

import (
	"fmt"
	"strings"
)

// Op is a compositing operator.
type Op int

const (
	OpSrcOver Op = iota
	OpDstOver
	OpSrcIn
	OpDstIn
	OpSrcOut
	OpDstOut
	OpSrcAtop
	OpDstAtop
	OpSrc
	OpDst
	OpClear
	OpSolidFill
	OpXor
	OpAdd

	opCount
)

var opNames = [opCount]string{
	OpSrcOver:   "SRC_OVER",
	OpDstOver:   "DST_OVER",
	OpSrcIn:     "SRC_IN",
	OpDstIn:     "DST_IN",
	OpSrcOut:    "SRC_OUT",
	OpDstOut:    "DST_OUT",
	OpSrcAtop:   "SRC_ATOP",
	OpDstAtop:   "DST_ATOP",
	OpSrc:       "SRC",
	OpDst:       "DST",
	OpClear:     "CLR",
	OpSolidFill: "SOLID_FILL",
	OpXor:       "XOR",
	OpAdd:       "ADD",
}

// Ops returns every defined operator in declaration order.
func Ops() []Op {
	ops := make([]Op, 0, opCount)
	for op := Op(0); op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Valid reports whether op is a defined operator.
func (op Op) Valid() bool {
	return op >= 0 && op < opCount
}

func (op Op) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opNames[op]
}

// ParseOp parses an operator name. Matching is case-insensitive and accepts
// "-" in place of "_", so "src-over" and "SRC_OVER" are the same operator.
func ParseOp(name string) (Op, error) {
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for op, s := range opNames {
		if s == n {
			return Op(op), nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (op Op) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("invalid operator %d", int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Op) UnmarshalText(text []byte) error {
	v, err := ParseOp(string(text))
	if err != nil {
		return err
	}
	*op = v
	return nil
}
