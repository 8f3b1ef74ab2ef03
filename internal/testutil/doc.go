// Package testutil holds fixtures shared by device and command tests: a
// recording engine tracer, an in-memory dump sink and a submit-and-drain
// helper.
//
// Everything here is safe for concurrent use, since the engine calls
// tracers and sinks from its drain goroutine while tests read them.
package testutil
