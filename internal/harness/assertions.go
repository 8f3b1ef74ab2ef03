package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/blitcore/internal/device/soft"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s (%s)", ev.Seq, ev.Context, ev.Op, ev.EffectiveOp, ev.Outcome)
			if ev.Error != "" {
				fmt.Fprintf(&buf, ": %s", ev.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext carries the state assertions read besides the trace.
type AssertionContext struct {
	// Memory is the soft generation's buffer space.
	Memory *soft.Memory
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutcome:
			err = assertOutcome(result, assertion)
		case AssertOutcomeCount:
			err = assertOutcomeCount(result, assertion)
		case AssertEffectiveOp:
			err = assertEffectiveOp(result, assertion)
		case AssertEngineError:
			err = assertEngineError(result, assertion)
		case AssertHardwareStarts:
			err = assertHardwareStarts(result, assertion)
		case AssertPixel:
			if actx == nil || actx.Memory == nil {
				err = fmt.Errorf("assertion[%d]: pixel requires soft memory", i)
			} else {
				err = assertPixel(actx.Memory, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertOutcome checks the outcome of one command.
func assertOutcome(result *Result, assertion Assertion) error {
	ev, ok := result.Event(assertion.Command)
	if !ok {
		return missing(result, AssertOutcome, assertion.Command)
	}
	if ev.Outcome != assertion.Outcome {
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: fmt.Sprintf("command %d %s", assertion.Command, assertion.Outcome),
			Actual:   ev.Outcome,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertOutcomeCount checks how many commands ended with an outcome.
func assertOutcomeCount(result *Result, assertion Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Outcome == assertion.Outcome {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d commands %s", assertion.Count, assertion.Outcome),
			Actual:   fmt.Sprintf("%d commands", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEffectiveOp checks the reduced operator of one command.
func assertEffectiveOp(result *Result, assertion Assertion) error {
	ev, ok := result.Event(assertion.Command)
	if !ok {
		return missing(result, AssertEffectiveOp, assertion.Command)
	}
	if ev.EffectiveOp != assertion.Op {
		return &AssertionError{
			Type:     AssertEffectiveOp,
			Expected: fmt.Sprintf("command %d reduced to %s", assertion.Command, assertion.Op),
			Actual:   ev.EffectiveOp,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEngineError checks the sticky engine error.
func assertEngineError(result *Result, assertion Assertion) error {
	if result.Faulted != assertion.Faulted {
		return &AssertionError{
			Type:     AssertEngineError,
			Expected: fmt.Sprintf("faulted=%t", assertion.Faulted),
			Actual:   fmt.Sprintf("faulted=%t", result.Faulted),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHardwareStarts checks the number of device starts.
func assertHardwareStarts(result *Result, assertion Assertion) error {
	if result.HardwareStarts != uint64(assertion.Count) {
		return &AssertionError{
			Type:     AssertHardwareStarts,
			Expected: fmt.Sprintf("%d starts", assertion.Count),
			Actual:   fmt.Sprintf("%d starts", result.HardwareStarts),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertPixel checks one pixel of soft memory.
func assertPixel(mem *soft.Memory, assertion Assertion) error {
	got, err := mem.Pixel(assertion.Buffer, assertion.X, assertion.Y)
	if err != nil {
		return &AssertionError{
			Type:     AssertPixel,
			Expected: fmt.Sprintf("pixel (%d,%d) of 0x%x", assertion.X, assertion.Y, assertion.Buffer),
			Actual:   err.Error(),
		}
	}
	if got != assertion.Color {
		return &AssertionError{
			Type:     AssertPixel,
			Expected: fmt.Sprintf("0x%08x at (%d,%d) of 0x%x", assertion.Color, assertion.X, assertion.Y, assertion.Buffer),
			Actual:   fmt.Sprintf("0x%08x", got),
		}
	}
	return nil
}

func missing(result *Result, typ string, index int) error {
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("command %d in trace", index),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}
