package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/blitcore/internal/pipeline"
)

// ErrSkip is returned by Ops.Configure when the command needs no hardware
// execution. The command is completed without starting the device.
var ErrSkip = pipeline.ErrSkip

var (
	// ErrDeviceTimeout matches a DeviceError raised because the completion
	// signal did not arrive in time.
	ErrDeviceTimeout = errors.New("device timeout")

	// ErrDeviceFault matches every DeviceError: a confirmed timeout, or a
	// command drained while the engine was already faulted.
	ErrDeviceFault = errors.New("device fault")
)

// DeviceErrorCode categorizes device errors.
type DeviceErrorCode string

const (
	// ErrCodeTimeout: the wait timed out and the status re-check also
	// reported the transfer unfinished. This sets the sticky engine error.
	ErrCodeTimeout DeviceErrorCode = "DEVICE_TIMEOUT"

	// ErrCodeFaulted: the command was not executed because the sticky error
	// was already set.
	ErrCodeFaulted DeviceErrorCode = "DEVICE_FAULTED"
)

// DeviceError reports a command that did not execute on the hardware.
type DeviceError struct {
	Code    DeviceErrorCode
	Seq     uint64
	Timeout time.Duration
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	switch e.Code {
	case ErrCodeTimeout:
		return fmt.Sprintf("%s: blit seq %d not complete after %s", e.Code, e.Seq, e.Timeout)
	default:
		return fmt.Sprintf("%s: blit seq %d drained without execution", e.Code, e.Seq)
	}
}

// Is lets errors.Is match the sentinel errors.
func (e *DeviceError) Is(target error) bool {
	switch target {
	case ErrDeviceFault:
		return true
	case ErrDeviceTimeout:
		return e.Code == ErrCodeTimeout
	}
	return false
}

// IsDeviceError reports whether err is, or wraps, a DeviceError.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// Outcome is what happened to one command.
type Outcome int

const (
	// OutcomeCompleted: the hardware signalled completion in time.
	OutcomeCompleted Outcome = iota
	// OutcomeSkipped: the operator reduced to a no-op; the device was not started.
	OutcomeSkipped
	// OutcomeRecovered: the signal was missed but the status re-check found the transfer done.
	OutcomeRecovered
	// OutcomeFailed: confirmed timeout; the engine is now faulted.
	OutcomeFailed
	// OutcomeDrained: the engine was faulted before the command was reached.
	OutcomeDrained
	// OutcomeRejected: the command could not be configured.
	OutcomeRejected
)

var outcomeNames = []string{"completed", "skipped", "recovered", "failed", "drained", "rejected"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// ParseOutcome parses an outcome name.
func ParseOutcome(s string) (Outcome, error) {
	for i, n := range outcomeNames {
		if n == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Executed reports whether the hardware ran the command to completion.
func (o Outcome) Executed() bool {
	return o == OutcomeCompleted || o == OutcomeRecovered
}
