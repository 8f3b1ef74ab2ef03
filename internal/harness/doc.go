// Package harness runs blit scenarios against a device generation and checks
// what the engine did.
//
// A scenario is a YAML file naming a generation, a list of commands tagged
// with their submission context, optional injected faults and a list of
// assertions. Run builds a fresh engine for every scenario:
//
//   - the generation is opened through device.Open with its own soft memory
//   - an in-memory store records every command through a store.Recorder
//   - context ids come from engine.FixedGenerator, so traces are stable
//
// Commands are submitted in file order from one goroutine, so the command at
// index i always gets sequence number i+1. Faults are given by command index.
//
// The trace is read back from the store once every context has drained.
// RunWithGolden compares its canonical JSON with testdata/golden/<name>.golden.
//
// Assertion types:
//
//	outcome          command, outcome       outcome of one command
//	outcome_count    outcome, count         number of commands with the outcome
//	effective_op     command, op            operator after reduction
//	engine_error     faulted                state of the sticky engine error
//	hardware_starts  count                  number of device starts
//	pixel            buffer, x, y, color    soft generation memory contents
package harness
