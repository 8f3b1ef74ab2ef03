package store

import (
	"context"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/device/hw"
	"github.com/roach88/blitcore/internal/engine"
)

// Recorder writes engine events to a Store. It implements engine.Tracer,
// engine.Diagnostics and hw.DumpSink.
//
// The engine hooks cannot return errors, so write failures are logged and
// the first one is kept for Err.
type Recorder struct {
	s   *Store
	ctx context.Context

	mu  sync.Mutex
	err error
}

var (
	_ engine.Tracer      = (*Recorder)(nil)
	_ engine.Diagnostics = (*Recorder)(nil)
	_ hw.DumpSink        = (*Recorder)(nil)
)

// NewRecorder creates a recorder writing to s under ctx.
func NewRecorder(ctx context.Context, s *Store) *Recorder {
	return &Recorder{s: s, ctx: ctx}
}

// BlitStart implements engine.Tracer.
func (r *Recorder) BlitStart(cmd *blit.Command) {
	r.record(r.s.WriteStart(r.ctx, cmd.Seq, ownerID(cmd), cmd.Op.String()))
}

// BlitEnd implements engine.Tracer.
func (r *Recorder) BlitEnd(rec engine.TraceRecord) {
	row := BlitRecord{
		Seq:         rec.Seq,
		ContextID:   rec.Context,
		Op:          rec.Op.String(),
		EffectiveOp: rec.Effective.String(),
		Outcome:     rec.Outcome.String(),
	}
	if rec.Err != nil {
		row.Error = rec.Err.Error()
	}
	r.record(r.s.WriteBlit(r.ctx, row))
}

// commandDump is the YAML body of a "command" dump.
type commandDump struct {
	Seq     uint64       `yaml:"seq"`
	Context string       `yaml:"context"`
	Op      blit.Op      `yaml:"op"`
	Params  blit.Params  `yaml:"params"`
	Src     blit.Surface `yaml:"src"`
	Msk     blit.Surface `yaml:"msk"`
	Dst     blit.Surface `yaml:"dst"`
}

// DumpCommand implements engine.Diagnostics.
func (r *Recorder) DumpCommand(cmd *blit.Command) {
	body, err := yaml.Marshal(commandDump{
		Seq:     cmd.Seq,
		Context: ownerID(cmd),
		Op:      cmd.Op,
		Params:  cmd.Params,
		Src:     cmd.Src,
		Msk:     cmd.Msk,
		Dst:     cmd.Dst,
	})
	if err != nil {
		r.record(err)
		return
	}
	slog.Error("blit command dump", "seq", cmd.Seq, "command", string(body))
	r.record(r.s.WriteDump(r.ctx, cmd.Seq, "command", string(body)))
}

// WriteDump implements hw.DumpSink.
func (r *Recorder) WriteDump(seq uint64, kind, body string) error {
	err := r.s.WriteDump(r.ctx, seq, kind, body)
	r.record(err)
	return err
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) record(err error) {
	if err == nil {
		return
	}
	slog.Error("trace write failed", "error", err)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func ownerID(cmd *blit.Command) string {
	if cmd.Ctx == nil {
		return ""
	}
	return cmd.Ctx.ID()
}
