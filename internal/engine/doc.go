// Package engine implements the blit execution supervisor.
//
// ARCHITECTURE:
//
// Single Drain Worker:
// Exactly one goroutine drains the command queue and drives the accelerator.
// Submitters enqueue from any goroutine; the first submission that finds the
// engine inactive starts a drain activation. No two commands ever execute on
// the hardware at the same time.
//
// Per-command flow:
//  1. Queue yields the head command (FIFO, no reordering)
//  2. Sticky device error set: skip straight to cleanup
//  3. busy = true, Ops.Configure programs the device
//  4. pipeline.ErrSkip: cleanup without starting the hardware
//  5. Ops.Run starts the transfer
//  6. Bounded wait for the completion signal; on timeout one status
//     re-check through Ops.Stop, then the sticky error
//  7. Cleanup: trace, remove from queue, wake the context when its last
//     command is done
//
// The device is reached only through the Ops table bound by Register.
//
// STATE:
//
// State holds the busy, active and sticky error flags. They are atomics
// because the completion notification arrives from the device's interrupt
// path, not from the drain worker. The error flag is cleared only by
// State.Reset, which the engine itself never calls.
package engine
