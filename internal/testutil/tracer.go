package testutil

import (
	"sync"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/engine"
)

// Tracer records engine trace events.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Tracer struct {
	mu      sync.Mutex
	starts  []uint64
	records []engine.TraceRecord
}

var _ engine.Tracer = (*Tracer)(nil)

// BlitStart records the seq of a started command.
func (t *Tracer) BlitStart(cmd *blit.Command) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts = append(t.starts, cmd.Seq)
}

// BlitEnd records the result of a command.
func (t *Tracer) BlitEnd(rec engine.TraceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
}

// Starts returns the seqs of started commands, in start order.
func (t *Tracer) Starts() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uint64(nil), t.starts...)
}

// Records returns every finished command, in finish order.
func (t *Tracer) Records() []engine.TraceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]engine.TraceRecord(nil), t.records...)
}

// Outcomes returns the outcome of every finished command.
func (t *Tracer) Outcomes() []engine.Outcome {
	var out []engine.Outcome
	for _, rec := range t.Records() {
		out = append(out, rec.Outcome)
	}
	return out
}
