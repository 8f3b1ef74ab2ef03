// Package store provides the SQLite-backed trace database.
//
// Every command the engine finishes leaves one row in blits, keyed by its
// sequence number. Postmortem dumps (the command that timed out and the
// device registers after a confirmed fault) go to dumps.
//
// # Ordering
//
// All queries order by seq ASC (then id ASC for dumps). Wall-clock time is
// never recorded, so two runs of the same scenario produce identical
// databases.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: SQLite allows one writer
//
// Recorder adapts a Store to the engine's Tracer and Diagnostics hooks and
// to the devices' dump sink.
package store
